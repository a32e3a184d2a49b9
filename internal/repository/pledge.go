package repository

import (
	"context"

	"crowdfund/internal/models"
	"crowdfund/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AcceptFunc decides, against the project as read inside the transaction,
// which pledge to insert.
type AcceptFunc func(project *models.Project) (*models.Pledge, error)

// PledgeRepository defines persistence operations for pledges.
type PledgeRepository interface {
	CreateChecked(ctx context.Context, projectID uint, accept AcceptFunc) (*models.Pledge, error)
	ListScoped(ctx context.Context, callerID uint, limit, offset int) ([]models.Pledge, error)
}

type pledgeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPledgeRepository returns a new PledgeRepository implementation.
func NewPledgeRepository(db *gorm.DB) PledgeRepository {
	return &pledgeRepository{db: db, log: observability.NewRepoLogger("pledges")}
}

// CreateChecked reads the project (row-locked where supported), runs accept and
// inserts its pledge in one transaction, so the open check and the insert see
// the same project state.
func (r *pledgeRepository) CreateChecked(ctx context.Context, projectID uint, accept AcceptFunc) (*models.Pledge, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "CreateChecked", "pledges")
	defer span.End()
	defer observability.TrackQuery("create_checked_tx", "pledges")()

	var created models.Pledge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := lockForUpdate(tx).First(&project, projectID).Error; err != nil {
			return translate(err, "Project", projectID)
		}

		pledge, err := accept(&project)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(pledge).Error; err != nil {
			return translate(err, "Pledge", pledge.ProjectID)
		}

		return tx.Preload("Supporter").Preload("Project").First(&created, pledge.ID).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, translate(err, "Pledge", projectID)
	}

	r.log.LogCreate(ctx, map[string]interface{}{
		"pledge_id":  created.ID,
		"project_id": created.ProjectID,
		"amount":     created.Amount,
	})
	return &created, nil
}

// ListScoped returns pledges the caller made or received on their projects.
func (r *pledgeRepository) ListScoped(ctx context.Context, callerID uint, limit, offset int) ([]models.Pledge, error) {
	var pledges []models.Pledge
	err := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = pledges.project_id").
		Where("pledges.supporter_id = ? OR projects.owner_id = ?", callerID, callerID).
		Preload("Supporter").
		Preload("Project").
		Order("pledges.date_sent DESC").
		Order("pledges.id DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&pledges).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pledges, nil
}
