package server

import (
	"time"

	"crowdfund/internal/rules"
	"crowdfund/internal/service"

	"github.com/gofiber/fiber/v2"
)

type projectRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Goal        *int       `json:"goal"`
	Image       *string    `json:"image"`
	Duration    *int       `json:"duration"`
	PubDate     *time.Time `json:"pub_date"`
	Category    *uint      `json:"category"`
}

func (r projectRequest) fields() rules.ProjectFields {
	return rules.ProjectFields{
		Title:       r.Title,
		Description: r.Description,
		Goal:        r.Goal,
		Image:       r.Image,
		Duration:    r.Duration,
		PubDate:     r.PubDate,
		CategoryID:  r.Category,
	}
}

// GetProjects handles GET /api/projects
func (s *Server) GetProjects(c *fiber.Ctx) error {
	return s.listProjects(c, false)
}

// GetMyProjects handles GET /api/projects/mine, drafts included.
func (s *Server) GetMyProjects(c *fiber.Ctx) error {
	return s.listProjects(c, true)
}

func (s *Server) listProjects(c *fiber.Ctx, onlyOwned bool) error {
	in := service.ListProjectsInput{
		OnlyOwned: onlyOwned,
		Ordering:  c.Query("ordering"),
	}

	var err error
	if in.OwnerID, err = parseUintQuery(c, "owner"); err != nil {
		return respondError(c, err)
	}
	if in.CategoryID, err = parseUintQuery(c, "category"); err != nil {
		return respondError(c, err)
	}
	if in.CreatedOn, err = parseDateQuery(c, "date_created"); err != nil {
		return respondError(c, err)
	}
	page := parsePagination(c, defaultPaginationLimit)
	in.Limit, in.Offset = page.Limit, page.Offset

	projects, err := s.projectService.ListProjects(c.UserContext(), s.caller(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projects)
}

// CreateProject handles POST /api/projects
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	project, err := s.projectService.CreateProject(c.UserContext(), s.caller(c), req.fields())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject handles GET /api/projects/:id
func (s *Server) GetProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projectService.GetProject(c.UserContext(), s.caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// UpdateProject handles PUT and PATCH /api/projects/:id. PATCH writes only
// the supplied fields.
func (s *Server) UpdateProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req projectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	partial := c.Method() == fiber.MethodPatch
	project, err := s.projectService.UpdateProject(c.UserContext(), s.caller(c), id, req.fields(), partial)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// PublishProject handles POST /api/projects/:id/publish
func (s *Server) PublishProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projectService.PublishProject(c.UserContext(), s.caller(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject handles DELETE /api/projects/:id
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.projectService.DeleteProject(c.UserContext(), s.caller(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
