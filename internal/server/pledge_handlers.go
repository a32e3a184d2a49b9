package server

import (
	"crowdfund/internal/rules"

	"github.com/gofiber/fiber/v2"
)

// pledgeRequest deliberately has no supporter field; the supporter is the caller.
type pledgeRequest struct {
	Project   uint   `json:"project"`
	Amount    int    `json:"amount"`
	Comment   string `json:"comment"`
	Anonymous bool   `json:"anonymous"`
}

// GetPledges handles GET /api/pledges
func (s *Server) GetPledges(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	pledges, err := s.pledgeService.ListPledges(c.UserContext(), s.caller(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pledges)
}

// CreatePledge handles POST /api/pledges
func (s *Server) CreatePledge(c *fiber.Ctx) error {
	var req pledgeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pledge, err := s.pledgeService.CreatePledge(c.UserContext(), s.caller(c), rules.PledgeRequest{
		ProjectID: req.Project,
		Amount:    req.Amount,
		Comment:   req.Comment,
		Anonymous: req.Anonymous,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pledge)
}
