package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"crowdfund/internal/models"
	"crowdfund/internal/policy"
	"crowdfund/internal/projection"
	"crowdfund/internal/repository"
	"crowdfund/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	now      Clock
}

// UpdateProfileInput carries the editable profile fields. Nil fields are
// left unchanged.
type UpdateProfileInput struct {
	Email     *string
	Bio       *string
	Pic       *string
	FirstName *string
	LastName  *string
}

const (
	maxBioLen  = 500
	maxNameLen = 150
)

func NewUserService(userRepo repository.UserRepository, now Clock) *UserService {
	return &UserService{userRepo: userRepo, now: clockOrDefault(now)}
}

// GetProfile renders the user for the caller: the owner variant for the user
// themselves, the public variant for everyone else.
func (s *UserService) GetProfile(ctx context.Context, caller policy.Caller, username string) (projection.ProfileView, error) {
	user, err := s.userRepo.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	return projection.Profile(user, caller, s.now()), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller policy.Caller, in UpdateProfileInput) (projection.ProfileView, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			fields["email"] = err.Error()
		}
		user.Email = email
	}
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > maxBioLen {
			fields["bio"] = "Bio too long (max 500 characters)"
		}
		user.Bio = *in.Bio
	}
	if in.Pic != nil {
		user.Pic = strings.TrimSpace(*in.Pic)
	}
	if in.FirstName != nil {
		if utf8.RuneCountInString(*in.FirstName) > maxNameLen {
			fields["first_name"] = "Ensure this field has no more than 150 characters."
		}
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		if utf8.RuneCountInString(*in.LastName) > maxNameLen {
			fields["last_name"] = "Ensure this field has no more than 150 characters."
		}
		user.LastName = *in.LastName
	}
	if len(fields) > 0 {
		return nil, models.NewFieldError(fields)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, caller, user.Username)
}

// DeleteAccount removes the caller with everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, caller policy.Caller) error {
	if !caller.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return s.userRepo.Delete(ctx, caller.ID)
}
