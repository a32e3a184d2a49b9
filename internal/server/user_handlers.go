package server

import (
	"log/slog"

	"crowdfund/internal/cache"
	"crowdfund/internal/middleware"
	"crowdfund/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	Pic       *string `json:"pic"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// GetUserProfile handles GET /api/users/:username
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), s.caller(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.userService.UpdateProfile(c.UserContext(), s.caller(c), service.UpdateProfileInput{
		Email:     req.Email,
		Bio:       req.Bio,
		Pic:       req.Pic,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// DeleteMyAccount handles DELETE /api/users/me. Every token already issued
// to the account stops authenticating.
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caller := s.caller(c)
	if err := s.userService.DeleteAccount(ctx, caller); err != nil {
		return respondError(c, err)
	}

	if err := cache.RevokeUser(ctx, s.redis, caller.ID, s.now(), s.tokens.TTL()); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke tokens of deleted account",
			slog.Uint64("user_id", uint64(caller.ID)),
			slog.String("error", err.Error()),
		)
	}
	if claims, ok := c.Locals(localsClaims).(*middleware.Claims); ok {
		_ = cache.RevokeToken(ctx, s.redis, claims.JTI, claims.ExpiresAt)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
