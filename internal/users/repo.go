package users

import (
	"context"
	"time"

	"github.com/angelmondragon/cinepass/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores storefront customers and their favorite movies.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

// Create inserts a customer built from dto.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail matches on the normalized address. A miss is gorm.ErrRecordNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("password_hash", hash).Error
}

// UpdateProfile applies the non-nil fields of changes and returns the
// customer as stored afterwards.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*models.User, error) {
	if row, cols := changes.row(); len(cols) > 0 {
		res := r.users(ctx).Where("id = ?", id).Select(cols).Updates(&row)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.FindByID(ctx, id)
}

// AddFavorite marks movieID as a favorite. It reports false when it already was.
func (r *Repository) AddFavorite(ctx context.Context, userID uuid.UUID, movieID int) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserFavorite{UserID: userID, MovieID: movieID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveFavorite unmarks movieID. Removing a movie that was not a favorite
// is not an error.
func (r *Repository) RemoveFavorite(ctx context.Context, userID uuid.UUID, movieID int) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&models.UserFavorite{}).Error
}

func (r *Repository) IsFavorite(ctx context.Context, userID uuid.UUID, movieID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserFavorite{}).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Count(&count).Error
	return count > 0, err
}

// ListFavorites returns the favorite movie ids in the order they were added.
func (r *Repository) ListFavorites(ctx context.Context, userID uuid.UUID) ([]int, error) {
	ids := []int{}
	err := r.db.WithContext(ctx).
		Model(&models.UserFavorite{}).
		Where("user_id = ?", userID).
		Order("created_at ASC, movie_id ASC").
		Pluck("movie_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
