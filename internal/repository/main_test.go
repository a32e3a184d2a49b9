package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crowdfund/internal/database"
	"crowdfund/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB returns a migrated in-memory SQLite database private to t.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

type fixtures struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

func newFixtures(t *testing.T, db *gorm.DB) *fixtures {
	return &fixtures{t: t, db: db}
}

func (f *fixtures) user() *models.User {
	f.t.Helper()
	f.n++
	u := &models.User{
		Username: fmt.Sprintf("user%d", f.n),
		Email:    fmt.Sprintf("user%d@example.com", f.n),
		Password: "hash",
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixtures) category(name string) *models.Category {
	f.t.Helper()
	c := &models.Category{Name: name}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

func (f *fixtures) project(owner *models.User, category *models.Category, pub *time.Time) *models.Project {
	f.t.Helper()
	f.n++
	p := &models.Project{
		Title:       fmt.Sprintf("project %d", f.n),
		Description: "desc",
		Goal:        100,
		Image:       "https://example.com/p.png",
		Duration:    5,
		PubDate:     pub,
		OwnerID:     owner.ID,
		CategoryID:  category.ID,
	}
	require.NoError(f.t, NewProjectRepository(f.db).Create(context.Background(), p))
	return p
}

func (f *fixtures) pledge(project *models.Project, supporter *models.User, amount int) *models.Pledge {
	f.t.Helper()
	pl := &models.Pledge{
		Amount:      amount,
		DateSent:    time.Now().UTC(),
		ProjectID:   project.ID,
		SupporterID: supporter.ID,
	}
	require.NoError(f.t, f.db.Omit("Project", "Supporter").Create(pl).Error)
	return pl
}

func ago(d time.Duration) *time.Time {
	t := time.Now().UTC().Add(-d)
	return &t
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
