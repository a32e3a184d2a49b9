package service

import (
	"context"
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/observability"
	"crowdfund/internal/policy"
	"crowdfund/internal/projection"
	"crowdfund/internal/repository"
	"crowdfund/internal/rules"
)

type ProjectService struct {
	projectRepo  repository.ProjectRepository
	categoryRepo repository.CategoryRepository
	sentinel     string
	now          Clock
}

type ListProjectsInput struct {
	OnlyOwned  bool
	OwnerID    *uint
	CategoryID *uint
	CreatedOn  *time.Time
	Ordering   string
	Limit      int
	Offset     int
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	categoryRepo repository.CategoryRepository,
	sentinel string,
	now Clock,
) *ProjectService {
	return &ProjectService{
		projectRepo:  projectRepo,
		categoryRepo: categoryRepo,
		sentinel:     sentinel,
		now:          clockOrDefault(now),
	}
}

// ListProjects returns published projects, or with OnlyOwned every project
// the caller owns.
func (s *ProjectService) ListProjects(ctx context.Context, caller policy.Caller, in ListProjectsInput) ([]projection.ProjectView, error) {
	if in.OnlyOwned && !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !repository.ValidOrdering(in.Ordering) {
		return nil, models.NewFieldError(map[string]string{
			"ordering": "Select a valid choice. " + in.Ordering + " is not one of the available choices.",
		})
	}

	projects, err := s.projectRepo.List(ctx, repository.ProjectFilter{
		ViewerID:   caller.ID,
		OnlyOwned:  in.OnlyOwned,
		OwnerID:    in.OwnerID,
		CategoryID: in.CategoryID,
		CreatedOn:  in.CreatedOn,
		Ordering:   in.Ordering,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, err
	}
	return projection.Projects(policy.VisibleProjects(caller, projects), s.now()), nil
}

// GetProject returns the project detail. Drafts are NotFound to everyone but
// their owner.
func (s *ProjectService) GetProject(ctx context.Context, caller policy.Caller, id uint) (*projection.ProjectDetailView, error) {
	project, err := s.projectRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewProject(caller, project) {
		return nil, models.NewNotFoundError("Project", id)
	}
	view := projection.ProjectDetail(project, caller, s.now())
	return &view, nil
}

func (s *ProjectService) CreateProject(ctx context.Context, caller policy.Caller, in rules.ProjectFields) (*projection.ProjectView, error) {
	if !policy.CanCreate(caller) {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	now := s.now()
	if err := rules.ValidateProject(in, false, now); err != nil {
		return nil, err
	}

	categoryID, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		OwnerID:     caller.ID,
		DateCreated: now,
	}
	rules.ApplyProject(project, in)
	project.CategoryID = categoryID

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}
	if project.Published() {
		observability.ProjectsPublishedTotal.Inc()
	}
	observability.LogServiceCall(ctx, "project", "create", map[string]interface{}{
		"project_id": project.ID,
		"published":  project.Published(),
	})

	return s.render(ctx, project.ID, now)
}

// UpdateProject applies in to the caller's project. With partial set only the
// supplied fields are written (PATCH); otherwise all are required (PUT).
func (s *ProjectService) UpdateProject(ctx context.Context, caller policy.Caller, id uint, in rules.ProjectFields, partial bool) (*projection.ProjectView, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	project, err := s.loadMutable(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := rules.ValidateProject(in, partial, now); err != nil {
		return nil, err
	}
	if err := rules.ValidatePublishedChange(project, in); err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if _, err := s.resolveCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	wasPublished := project.Published()
	rules.ApplyProject(project, in)
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	if !wasPublished && project.Published() {
		observability.ProjectsPublishedTotal.Inc()
	}

	return s.render(ctx, id, now)
}

// PublishProject stamps pub_date with the current instant on a draft.
func (s *ProjectService) PublishProject(ctx context.Context, caller policy.Caller, id uint) (*projection.ProjectView, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if _, err := s.loadMutable(ctx, caller, id); err != nil {
		return nil, err
	}

	now := s.now()
	published, err := s.projectRepo.Publish(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !published {
		return nil, models.NewFieldError(map[string]string{
			"pub_date": "Project is already published.",
		})
	}
	return s.render(ctx, id, now)
}

func (s *ProjectService) DeleteProject(ctx context.Context, caller policy.Caller, id uint) error {
	if !caller.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	if _, err := s.loadMutable(ctx, caller, id); err != nil {
		return err
	}
	return s.projectRepo.Delete(ctx, id)
}

// loadMutable returns the project when the caller owns it. A draft the
// caller cannot see is NotFound rather than Forbidden.
func (s *ProjectService) loadMutable(ctx context.Context, caller policy.Caller, id uint) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewProject(caller, project) {
		return nil, models.NewNotFoundError("Project", id)
	}
	if !policy.CanMutateProject(caller, project) {
		return nil, models.NewForbiddenError("You do not have permission to perform this action")
	}
	return project, nil
}

func (s *ProjectService) resolveCategory(ctx context.Context, id *uint) (uint, error) {
	if id == nil {
		category, err := s.categoryRepo.GetByName(ctx, s.sentinel)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return 0, models.NewReferentialIntegrityError("sentinel category " + s.sentinel + " does not exist")
			}
			return 0, err
		}
		return category.ID, nil
	}

	category, err := s.categoryRepo.GetByID(ctx, *id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return 0, models.NewFieldError(map[string]string{
				"category": "Invalid pk - object does not exist.",
			})
		}
		return 0, err
	}
	return category.ID, nil
}

func (s *ProjectService) render(ctx context.Context, id uint, now time.Time) (*projection.ProjectView, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := projection.Project(project, now)
	return &view, nil
}
