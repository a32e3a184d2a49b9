package repository

import (
	"context"
	"time"

	"crowdfund/internal/models"
	"crowdfund/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetProfile(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "User", username)
	}
	return &user, nil
}

// GetProfile loads the user with owned projects and pledges made.
func (r *userRepository) GetProfile(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Preload("OwnerProjects", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_created DESC")
		}).
		Preload("OwnerProjects.Category").
		Preload("SupporterPledges", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_sent DESC")
		}).
		Preload("SupporterPledges.Project").
		First(&user).Error
	if err != nil {
		return nil, translate(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		return translate(err, "User", user.Username)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

// Update writes the profile columns only.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).
		Model(user).
		Select("email", "bio", "pic", "first_name", "last_name").
		Updates(user).Error
	if err != nil {
		return translate(err, "User", user.ID)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at.UTC()).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the user, their projects (with the pledges and favourites
// those projects received), their pledges and their favourites.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := func() *gorm.DB {
			return tx.Model(&models.Project{}).Select("id").Where("owner_id = ?", id)
		}

		if err := tx.Where("project_id IN (?) OR owner_id = ?", owned(), id).Delete(&models.Favourite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id IN (?) OR supporter_id = ?", owned(), id).Delete(&models.Pledge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		return translate(err, "User", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": id})
	return nil
}
