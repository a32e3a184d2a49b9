package service

import (
	"context"

	"crowdfund/internal/models"
	"crowdfund/internal/policy"
	"crowdfund/internal/projection"
	"crowdfund/internal/repository"
)

type FavouriteService struct {
	favouriteRepo repository.FavouriteRepository
	projectRepo   repository.ProjectRepository
	now           Clock
}

// ToggleFavouriteResult reports the state after a toggle. Favourite is nil
// when the project was unfavourited.
type ToggleFavouriteResult struct {
	Favourited bool                      `json:"favourited"`
	Favourite  *projection.FavouriteView `json:"favourite"`
}

func NewFavouriteService(favouriteRepo repository.FavouriteRepository, projectRepo repository.ProjectRepository, now Clock) *FavouriteService {
	return &FavouriteService{
		favouriteRepo: favouriteRepo,
		projectRepo:   projectRepo,
		now:           clockOrDefault(now),
	}
}

func (s *FavouriteService) ListFavourites(ctx context.Context, caller policy.Caller) ([]projection.FavouriteView, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	favourites, err := s.favouriteRepo.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Favourite, 0, len(favourites))
	for i := range favourites {
		if policy.CanViewProject(caller, &favourites[i].Project) {
			visible = append(visible, favourites[i])
		}
	}
	return projection.Favourites(visible, s.now()), nil
}

// ToggleFavourite favourites projectID for the caller, or removes the
// favourite when it already exists.
func (s *FavouriteService) ToggleFavourite(ctx context.Context, caller policy.Caller, projectID uint) (*ToggleFavouriteResult, error) {
	if !caller.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if projectID == 0 {
		return nil, models.NewFieldError(map[string]string{"project": "This field is required."})
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewProject(caller, project) {
		return nil, models.NewNotFoundError("Project", projectID)
	}

	favourite, favourited, err := s.favouriteRepo.Toggle(ctx, caller.ID, projectID)
	if err != nil {
		return nil, err
	}

	result := &ToggleFavouriteResult{Favourited: favourited}
	if favourited {
		view := projection.Favourite(favourite, s.now())
		result.Favourite = &view
	}
	return result, nil
}
