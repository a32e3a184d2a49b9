package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crowdfund/internal/middleware"
	"crowdfund/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers          int
	ProjectsPerUser   int
	PledgesPerProject int
	FavouritesPerUser int
	// MaxDays bounds how far back projects are published.
	MaxDays     int
	SkipBcrypt  bool
	DryRun      bool
	ShouldClean bool
	RandSeed    int64
}

// Summary counts what a run produced.
type Summary struct {
	Categories int
	Users      int
	Projects   int
	Pledges    int
	Skipped    int
	Favourites int
}

// Seeder populates a database with categories and fake activity.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed populates the database with test data
func (s *Seeder) Seed(ctx context.Context, categories []BuiltInCategory) (Summary, error) {
	log := middleware.Logger.With(slog.String("component", "seed"))
	log.Info("starting database seeding",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("projects_per_user", s.opts.ProjectsPerUser),
		slog.Bool("dry_run", s.opts.DryRun),
	)

	var sum Summary

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := clearData(s.db); err != nil {
			log.Warn("could not clear existing data, continuing", slog.String("error", err.Error()))
		}
	}

	cats, err := s.categories(categories)
	if err != nil {
		return sum, err
	}
	sum.Categories = len(cats)
	if len(cats) == 0 {
		return sum, errors.New("no categories to seed projects into")
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Warn("failed to create user", slog.String("error", err.Error()))
			continue
		}
		users = append(users, user)
	}
	sum.Users = len(users)

	projects := make([]*models.Project, 0, len(users)*s.opts.ProjectsPerUser)
	for i, owner := range users {
		for j := 0; j < s.opts.ProjectsPerUser; j++ {
			category := &cats[(i+j)%len(cats)]
			project, err := s.factory.CreateProject(ctx, owner, category)
			if err != nil {
				return sum, fmt.Errorf("failed to create project: %w", err)
			}
			projects = append(projects, project)
		}
	}
	sum.Projects = len(projects)

	if len(users) > 1 {
		for i, project := range projects {
			for j := 0; j < s.opts.PledgesPerProject; j++ {
				supporter := users[(i+j+1)%len(users)]
				if supporter.ID == project.OwnerID {
					continue
				}
				if _, err := s.factory.CreatePledge(ctx, project, supporter); err != nil {
					if models.HasCode(err, models.CodeProjectClosed) || models.HasCode(err, models.CodeNotFound) {
						sum.Skipped++
						continue
					}
					return sum, fmt.Errorf("failed to create pledge: %w", err)
				}
				sum.Pledges++
			}
		}

		for i, user := range users {
			for j := 0; j < s.opts.FavouritesPerUser && j < len(projects); j++ {
				project := projects[(i*s.opts.FavouritesPerUser+j)%len(projects)]
				if !project.Published() && project.OwnerID != user.ID {
					continue
				}
				if err := s.factory.Favourite(ctx, user, project); err != nil {
					return sum, fmt.Errorf("failed to create favourite: %w", err)
				}
				sum.Favourites++
			}
		}
	}

	log.Info("database seeding completed",
		slog.Int("categories", sum.Categories),
		slog.Int("users", sum.Users),
		slog.Int("projects", sum.Projects),
		slog.Int("pledges", sum.Pledges),
		slog.Int("pledges_skipped", sum.Skipped),
		slog.Int("favourites", sum.Favourites),
	)
	return sum, nil
}

func (s *Seeder) categories(items []BuiltInCategory) ([]models.Category, error) {
	if s.opts.DryRun {
		out := make([]models.Category, 0, len(items))
		for i, item := range items {
			out = append(out, models.Category{ID: uint(i + 1), Name: item.Name, Description: item.Description})
		}
		return out, nil
	}
	return Categories(s.db, items)
}

// clearData removes seeded activity. Categories are kept because the
// sentinel must survive.
func clearData(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	return db.Session(&gorm.Session{AllowGlobalUpdate: true}).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Favourite{}, &models.Pledge{}, &models.Project{}, &models.User{}} {
			if err := tx.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
