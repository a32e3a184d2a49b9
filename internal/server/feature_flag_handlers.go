package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns the flags evaluated for the current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	caller := s.caller(c)
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"evaluated": map[string]bool{}})
	}
	return c.JSON(fiber.Map{"evaluated": s.featureFlags.Snapshot(caller.ID)})
}
