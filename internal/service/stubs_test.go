package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnexpectedCall = errors.New("unexpected repository call")

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

type projectRepoStub struct {
	listFn      func(context.Context, repository.ProjectFilter) ([]models.Project, error)
	getByIDFn   func(context.Context, uint) (*models.Project, error)
	getDetailFn func(context.Context, uint) (*models.Project, error)
	createFn    func(context.Context, *models.Project) error
	updateFn    func(context.Context, *models.Project) error
	publishFn   func(context.Context, uint, time.Time) (bool, error)
	deleteFn    func(context.Context, uint) error
}

func (s *projectRepoStub) List(ctx context.Context, f repository.ProjectFilter) ([]models.Project, error) {
	return s.listFn(ctx, f)
}
func (s *projectRepoStub) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	return s.getByIDFn(ctx, id)
}
func (s *projectRepoStub) GetDetail(ctx context.Context, id uint) (*models.Project, error) {
	return s.getDetailFn(ctx, id)
}
func (s *projectRepoStub) Create(ctx context.Context, p *models.Project) error {
	return s.createFn(ctx, p)
}
func (s *projectRepoStub) Update(ctx context.Context, p *models.Project) error {
	return s.updateFn(ctx, p)
}
func (s *projectRepoStub) Publish(ctx context.Context, id uint, at time.Time) (bool, error) {
	return s.publishFn(ctx, id, at)
}
func (s *projectRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopProjectRepo() *projectRepoStub {
	return &projectRepoStub{
		listFn:      func(context.Context, repository.ProjectFilter) ([]models.Project, error) { return nil, nil },
		getByIDFn:   func(context.Context, uint) (*models.Project, error) { return nil, errUnexpectedCall },
		getDetailFn: func(context.Context, uint) (*models.Project, error) { return nil, errUnexpectedCall },
		createFn:    func(context.Context, *models.Project) error { return nil },
		updateFn:    func(context.Context, *models.Project) error { return nil },
		publishFn:   func(context.Context, uint, time.Time) (bool, error) { return true, nil },
		deleteFn:    func(context.Context, uint) error { return nil },
	}
}

// projectRepoWith serves p for every lookup by its ID.
func projectRepoWith(p *models.Project) *projectRepoStub {
	repo := noopProjectRepo()
	get := func(_ context.Context, id uint) (*models.Project, error) {
		if id != p.ID {
			return nil, models.NewNotFoundError("Project", id)
		}
		cp := *p
		return &cp, nil
	}
	repo.getByIDFn = get
	repo.getDetailFn = get
	return repo
}

type categoryRepoStub struct {
	listFn              func(context.Context) ([]models.Category, error)
	getByIDFn           func(context.Context, uint) (*models.Category, error)
	getByNameFn         func(context.Context, string) (*models.Category, error)
	loadProjectsFn      func(context.Context, *models.Category) error
	createFn            func(context.Context, *models.Category) error
	deleteReassigningFn func(context.Context, string, string) (int64, error)
}

func (s *categoryRepoStub) List(ctx context.Context) ([]models.Category, error) {
	return s.listFn(ctx)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return s.getByNameFn(ctx, name)
}
func (s *categoryRepoStub) LoadProjects(ctx context.Context, c *models.Category) error {
	return s.loadProjectsFn(ctx, c)
}
func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	return s.createFn(ctx, c)
}
func (s *categoryRepoStub) DeleteReassigning(ctx context.Context, name, sentinel string) (int64, error) {
	return s.deleteReassigningFn(ctx, name, sentinel)
}

// categoryRepoWith serves the given categories by ID and name.
func categoryRepoWith(categories ...models.Category) *categoryRepoStub {
	return &categoryRepoStub{
		listFn: func(context.Context) ([]models.Category, error) { return categories, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Category, error) {
			for _, c := range categories {
				if c.ID == id {
					cp := c
					return &cp, nil
				}
			}
			return nil, models.NewNotFoundError("Category", id)
		},
		getByNameFn: func(_ context.Context, name string) (*models.Category, error) {
			for _, c := range categories {
				if c.Name == name {
					cp := c
					return &cp, nil
				}
			}
			return nil, models.NewNotFoundError("Category", name)
		},
		loadProjectsFn:      func(context.Context, *models.Category) error { return nil },
		createFn:            func(context.Context, *models.Category) error { return nil },
		deleteReassigningFn: func(context.Context, string, string) (int64, error) { return 0, nil },
	}
}

type pledgeRepoStub struct {
	createCheckedFn func(context.Context, uint, repository.AcceptFunc) (*models.Pledge, error)
	listScopedFn    func(context.Context, uint, int, int) ([]models.Pledge, error)
}

func (s *pledgeRepoStub) CreateChecked(ctx context.Context, projectID uint, accept repository.AcceptFunc) (*models.Pledge, error) {
	return s.createCheckedFn(ctx, projectID, accept)
}
func (s *pledgeRepoStub) ListScoped(ctx context.Context, callerID uint, limit, offset int) ([]models.Pledge, error) {
	return s.listScopedFn(ctx, callerID, limit, offset)
}

// pledgeStore runs accept against a single in-memory project and keeps what
// it inserts, mirroring CreateChecked.
type pledgeStore struct {
	project  models.Project
	inserted []models.Pledge
}

func (ps *pledgeStore) repo() *pledgeRepoStub {
	return &pledgeRepoStub{
		createCheckedFn: func(_ context.Context, projectID uint, accept repository.AcceptFunc) (*models.Pledge, error) {
			if projectID != ps.project.ID {
				return nil, models.NewNotFoundError("Project", projectID)
			}
			project := ps.project
			pledge, err := accept(&project)
			if err != nil {
				return nil, err
			}
			pledge.ID = uint(len(ps.inserted) + 1)
			pledge.Project = ps.project
			pledge.Supporter = models.User{ID: pledge.SupporterID, Username: "supporter"}
			ps.inserted = append(ps.inserted, *pledge)
			return pledge, nil
		},
		listScopedFn: func(context.Context, uint, int, int) ([]models.Pledge, error) {
			return ps.inserted, nil
		},
	}
}

type favouriteRepoStub struct {
	listByOwnerFn func(context.Context, uint) ([]models.Favourite, error)
	toggleFn      func(context.Context, uint, uint) (*models.Favourite, bool, error)
}

func (s *favouriteRepoStub) ListByOwner(ctx context.Context, ownerID uint) ([]models.Favourite, error) {
	return s.listByOwnerFn(ctx, ownerID)
}
func (s *favouriteRepoStub) Toggle(ctx context.Context, ownerID, projectID uint) (*models.Favourite, bool, error) {
	return s.toggleFn(ctx, ownerID, projectID)
}

type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	getProfileFn     func(context.Context, string) (*models.User, error)
	createFn         func(context.Context, *models.User) error
	updateFn         func(context.Context, *models.User) error
	touchLastLoginFn func(context.Context, uint, time.Time) error
	deleteFn         func(context.Context, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetProfile(ctx context.Context, username string) (*models.User, error) {
	return s.getProfileFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.touchLastLoginFn(ctx, id, at)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:        func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:     func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		getByUsernameFn:  func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		getProfileFn:     func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		createFn:         func(context.Context, *models.User) error { return nil },
		updateFn:         func(context.Context, *models.User) error { return nil },
		touchLastLoginFn: func(context.Context, uint, time.Time) error { return nil },
		deleteFn:         func(context.Context, uint) error { return nil },
	}
}
