package server

import (
	"strings"

	"crowdfund/internal/cache"
	"crowdfund/internal/middleware"
	"crowdfund/internal/models"
	"crowdfund/internal/policy"
	"crowdfund/internal/projection"
	"crowdfund/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Bio       string `json:"bio"`
	Pic       string `json:"pic"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string                 `json:"token"`
	User  projection.ProfileView `json:"user"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string]string{}
	if err := validation.ValidateUsername(req.Username); err != nil {
		fields["username"] = err.Error()
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return respondError(c, models.NewFieldError(fields))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Bio:       req.Bio,
		Pic:       req.Pic,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := s.userRepo.Create(c.UserContext(), user); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			return respondError(c, models.NewConflictError("A user with that username or email already exists"))
		}
		return respondError(c, err)
	}

	token, _, err := s.tokens.Issue(user.ID, user.Username, s.now())
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{
		Token: token,
		User:  projection.Profile(user, policy.Caller{ID: user.ID}, s.now()),
	})
}

// Login handles POST /api/auth/login. The identifier may be a username or an
// email address.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return respondError(c, models.NewValidationError("Username and password are required"))
	}

	ctx := c.UserContext()
	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, identifier)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return respondError(c, models.NewUnauthorizedError("Invalid credentials"))
		}
		return respondError(c, err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return respondError(c, models.NewUnauthorizedError("Invalid credentials"))
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return respondError(c, err)
	}
	user.LastLogin = &now

	token, _, err := s.tokens.Issue(user.ID, user.Username, now)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(authResponse{
		Token: token,
		User:  projection.Profile(user, policy.Caller{ID: user.ID}, now),
	})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals(localsClaims).(*middleware.Claims)
	if !ok {
		return respondError(c, models.NewUnauthorizedError("Authorization required"))
	}
	if err := cache.RevokeToken(c.UserContext(), s.redis, claims.JTI, claims.ExpiresAt); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
