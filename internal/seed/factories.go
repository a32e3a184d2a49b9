// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/policy"
	"crowdfund/internal/repository"
	"crowdfund/internal/rules"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	now    time.Time
	pledge rules.PledgePolicy
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		now:    time.Now().UTC(),
		pledge: rules.DefaultPledgePolicy(),
		nextID: 1000,
	}
}

func (f *Factory) hashPassword() (string, error) {
	if f.opts.SkipBcrypt {
		return defaultPassword, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	password, err := f.hashPassword()
	if err != nil {
		return nil, err
	}

	username := fmt.Sprintf("%s%d", strings.ToLower(f.faker.FirstName()), f.faker.Number(100, 99999))
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  password,
		Bio:       f.faker.Sentence(10),
		Pic:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildProject constructs a project owned by owner without persisting it.
// Roughly one in five projects is left as a draft; the rest were published
// within the last opts.MaxDays days.
func (f *Factory) BuildProject(owner *models.User, category *models.Category, overrides ...func(*models.Project)) *models.Project {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}

	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 6)), ".")
	project := &models.Project{
		Title:       title,
		Description: f.faker.Paragraph(1, 3, 12, "\n"),
		Goal:        f.faker.Number(5, 500) * 100,
		Image:       fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()),
		Duration:    f.faker.Number(7, 60),
		OwnerID:     owner.ID,
		CategoryID:  category.ID,
	}

	back := time.Duration(f.faker.Number(0, maxDays*24)) * time.Hour
	project.DateCreated = f.now.Add(-back - time.Duration(f.faker.Number(1, 72))*time.Hour)
	if f.faker.Number(1, 5) > 1 {
		pub := f.now.Add(-back)
		project.PubDate = &pub
	}

	for _, override := range overrides {
		override(project)
	}
	return project
}

// CreateProject builds and persists a project.
func (f *Factory) CreateProject(ctx context.Context, owner *models.User, category *models.Category, overrides ...func(*models.Project)) (*models.Project, error) {
	project := f.BuildProject(owner, category, overrides...)
	if f.opts.DryRun {
		f.nextID++
		project.ID = f.nextID
		return project, nil
	}
	if err := repository.NewProjectRepository(f.db).Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// CreatePledge pledges from supporter to project through the same gate the
// API uses, dated at a random instant inside the project's open window.
// Projects that were never open return a ProjectClosed or NotFound error.
func (f *Factory) CreatePledge(ctx context.Context, project *models.Project, supporter *models.User) (*models.Pledge, error) {
	at := f.pledgeInstant(project)
	req := rules.PledgeRequest{
		ProjectID: project.ID,
		Amount:    f.faker.Number(1, 50) * 10,
		Comment:   truncate(f.faker.Sentence(f.faker.Number(3, 12)), 200),
		Anonymous: f.faker.Number(1, 6) == 1,
	}
	caller := policy.Caller{ID: supporter.ID}

	if f.opts.DryRun {
		pledge, err := rules.AcceptPledge(project, caller, req, f.pledge, at)
		if err != nil {
			return nil, err
		}
		f.nextID++
		pledge.ID = f.nextID
		return pledge, nil
	}

	return repository.NewPledgeRepository(f.db).CreateChecked(ctx, project.ID, func(locked *models.Project) (*models.Pledge, error) {
		return rules.AcceptPledge(locked, caller, req, f.pledge, at)
	})
}

// pledgeInstant picks a moment between publication and the earlier of close
// and now. Drafts get now, which AcceptPledge rejects.
func (f *Factory) pledgeInstant(project *models.Project) time.Time {
	if project.PubDate == nil {
		return f.now
	}
	end := *rules.ClosesAt(project.PubDate, project.Duration)
	if end.After(f.now) {
		end = f.now
	}
	window := end.Sub(*project.PubDate)
	if window <= time.Minute {
		return *project.PubDate
	}
	offset := time.Duration(f.faker.Number(0, int(window/time.Minute)-1)) * time.Minute
	return project.PubDate.Add(offset)
}

// Favourite toggles a favourite on for user.
func (f *Factory) Favourite(ctx context.Context, user *models.User, project *models.Project) error {
	if f.opts.DryRun {
		return nil
	}
	_, _, err := repository.NewFavouriteRepository(f.db).Toggle(ctx, user.ID, project.ID)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
