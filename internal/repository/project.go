package repository

import (
	"context"
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Project list orderings accepted by ProjectFilter.Ordering.
var projectOrderings = map[string]string{
	"category":      "category_id ASC, date_created DESC",
	"-category":     "category_id DESC, date_created DESC",
	"date_created":  "date_created ASC",
	"-date_created": "date_created DESC",
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	// ViewerID is the caller.
	ViewerID  uint
	// OnlyOwned lists the viewer's own projects, drafts included. Otherwise
	// only published projects are listed, whoever asks.
	OnlyOwned bool

	OwnerID    *uint
	CategoryID *uint
	CreatedOn  *time.Time
	Ordering   string
	Limit      int
	Offset     int
}

// ValidOrdering reports whether ordering is accepted by List.
func ValidOrdering(ordering string) bool {
	if ordering == "" {
		return true
	}
	_, ok := projectOrderings[ordering]
	return ok
}

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	GetDetail(ctx context.Context, id uint) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	Publish(ctx context.Context, id uint, at time.Time) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type projectRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db, log: observability.NewRepoLogger("projects")}
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Model(&models.Project{}).Preload("Owner").Preload("Category")

	if filter.OnlyOwned {
		q = q.Where("owner_id = ?", filter.ViewerID)
	} else {
		q = q.Where("pub_date IS NOT NULL")
	}

	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.CreatedOn != nil {
		start := time.Date(filter.CreatedOn.Year(), filter.CreatedOn.Month(), filter.CreatedOn.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("date_created >= ? AND date_created < ?", start, start.AddDate(0, 0, 1))
	}

	order, ok := projectOrderings[filter.Ordering]
	if !ok {
		order = projectOrderings["-date_created"]
	}

	var projects []models.Project
	err := q.Order(order).Order("id ASC").
		Limit(clampLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&projects).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return projects, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Category").
		First(&project, id).Error
	if err != nil {
		return nil, translate(err, "Project", id)
	}
	return &project, nil
}

func (r *projectRepository) GetDetail(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Category").
		Preload("Pledges", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_sent ASC").Order("id ASC")
		}).
		Preload("Pledges.Supporter").
		First(&project, id).Error
	if err != nil {
		return nil, translate(err, "Project", id)
	}
	return &project, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; err != nil {
		return translate(err, "Project", project.Title)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"project_id": project.ID, "owner_id": project.OwnerID})
	return nil
}

// Update writes the mutable columns. date_created and owner_id are never written.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	err := r.db.WithContext(ctx).
		Model(project).
		Select("title", "description", "goal", "image", "duration", "pub_date", "category_id").
		Omit("date_created", "owner_id", clause.Associations).
		Updates(project).Error
	if err != nil {
		return translate(err, "Project", project.ID)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"project_id": project.ID})
	return nil
}

// Publish sets pub_date on a draft. It reports false when the project was
// already published, leaving pub_date untouched.
func (r *projectRepository) Publish(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND pub_date IS NULL", id).
		Update("pub_date", at.UTC())
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 1 {
		observability.ProjectsPublishedTotal.Inc()
		r.log.LogUpdate(ctx, map[string]interface{}{"project_id": id, "published": true})
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the project with its pledges and favourites.
func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Favourite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Pledge{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Project", id)
		}
		return nil
	})
	if err != nil {
		return translate(err, "Project", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"project_id": id})
	return nil
}
