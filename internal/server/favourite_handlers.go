package server

import (
	"github.com/gofiber/fiber/v2"
)

type favouriteRequest struct {
	Project uint `json:"project"`
}

// GetFavourites handles GET /api/favourites
func (s *Server) GetFavourites(c *fiber.Ctx) error {
	favourites, err := s.favouriteService.ListFavourites(c.UserContext(), s.caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(favourites)
}

// ToggleFavourite handles POST /api/favourites
func (s *Server) ToggleFavourite(c *fiber.Ctx) error {
	var req favouriteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.favouriteService.ToggleFavourite(c.UserContext(), s.caller(c), req.Project)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if result.Favourited {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}
