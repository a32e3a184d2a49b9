package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory handles GET /api/categories/:key where key is an ID or a name.
func (s *Server) GetCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.GetCategory(c.UserContext(), s.caller(c), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(category)
}
