package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/clout9/backend/internal/models"
)

// CubeRepository provides cube database operations
type CubeRepository struct {
	*Repository
}

// GetByID retrieves a cube by ID
func (r *CubeRepository) GetByID(ctx context.Context, id int64) (*models.Cube, error) {
	var cube models.Cube
	if err := r.db.WithContext(ctx).First(&cube, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cube, nil
}

// GetByIDAndOwner retrieves a cube by ID restricted to its owner
func (r *CubeRepository) GetByIDAndOwner(ctx context.Context, id, userID int64) (*models.Cube, error) {
	var cube models.Cube
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&cube).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cube, nil
}

// Create creates a new cube
func (r *CubeRepository) Create(ctx context.Context, cube *models.Cube) error {
	return r.db.WithContext(ctx).Create(cube).Error
}

// Update updates a cube
func (r *CubeRepository) Update(ctx context.Context, cube *models.Cube) error {
	return r.db.WithContext(ctx).Save(cube).Error
}

// Delete removes a cube; tiles, comments and favorites cascade
func (r *CubeRepository) Delete(ctx context.Context, cube *models.Cube) error {
	return r.db.WithContext(ctx).Delete(cube).Error
}

// CountByUser counts cubes authored by the user
func (r *CubeRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Cube{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByUser lists the user's cubes, newest first
func (r *CubeRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*models.Cube, error) {
	var cubes []*models.Cube
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&cubes).Error; err != nil {
		return nil, err
	}
	return cubes, nil
}

// ListAll lists every cube, newest first
func (r *CubeRepository) ListAll(ctx context.Context, offset, limit int) ([]*models.Cube, error) {
	var cubes []*models.Cube
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&cubes).Error; err != nil {
		return nil, err
	}
	return cubes, nil
}

// ListDiscover lists cubes authored by users the viewer does not follow,
// excluding the viewer's own, newest first.
func (r *CubeRepository) ListDiscover(ctx context.Context, viewerID int64, excludeUserIDs []int64, offset, limit int) ([]*models.Cube, error) {
	var cubes []*models.Cube
	q := r.db.WithContext(ctx).Where("user_id <> ?", viewerID)
	if len(excludeUserIDs) > 0 {
		q = q.Where("user_id NOT IN ?", excludeUserIDs)
	}
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&cubes).Error; err != nil {
		return nil, err
	}
	return cubes, nil
}

// ListByUsers lists cubes authored by the given users, most favorited
// first. Favorite counts are computed per row with a subquery so the
// ordering survives pagination.
func (r *CubeRepository) ListByUsers(ctx context.Context, userIDs []int64, offset, limit int) ([]*models.Cube, error) {
	if len(userIDs) == 0 {
		return []*models.Cube{}, nil
	}
	var cubes []*models.Cube
	if err := r.db.WithContext(ctx).Model(&models.Cube{}).
		Select("cube.*, (SELECT COUNT(*) FROM cube_favorites WHERE cube_favorites.cube_id = cube.id) AS num_favorites").
		Where("user_id IN ?", userIDs).
		Order("num_favorites DESC").
		Offset(offset).Limit(limit).
		Find(&cubes).Error; err != nil {
		return nil, err
	}
	return cubes, nil
}

// searchQuery matches cubes whose caption, tile description or tile tag
// contains the keyword, case-insensitive.
func (r *CubeRepository) searchQuery(ctx context.Context, keyword string) *gorm.DB {
	pattern := "%" + strings.ToLower(keyword) + "%"
	tileIDs := r.db.Model(&models.HashTag{}).
		Select("tile_id").
		Where("LOWER(tag) LIKE ?", pattern)
	cubeIDs := r.db.Model(&models.Tile{}).
		Select("cube_id").
		Where("LOWER(description) LIKE ? OR id IN (?)", pattern, tileIDs)
	return r.db.WithContext(ctx).Model(&models.Cube{}).
		Where("LOWER(caption) LIKE ? OR id IN (?)", pattern, cubeIDs)
}

// Search lists cubes matching the keyword, most recently updated first
func (r *CubeRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]*models.Cube, error) {
	var cubes []*models.Cube
	if err := r.searchQuery(ctx, keyword).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&cubes).Error; err != nil {
		return nil, err
	}
	return cubes, nil
}

// CountSearch counts cubes matching the keyword
func (r *CubeRepository) CountSearch(ctx context.Context, keyword string) (int64, error) {
	var count int64
	if err := r.searchQuery(ctx, keyword).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CubeRepository) tagQuery(keyword string) *gorm.DB {
	pattern := "%" + strings.ToLower(keyword) + "%"
	tileIDs := r.db.Model(&models.HashTag{}).
		Select("tile_id").
		Where("LOWER(tag) LIKE ?", pattern)
	return r.db.Model(&models.Tile{}).
		Select("cube_id").
		Where("id IN (?)", tileIDs)
}

// ListByTag lists cubes owning a tile whose tag contains the keyword,
// most recently updated first.
func (r *CubeRepository) ListByTag(ctx context.Context, keyword string, offset, limit int) ([]*models.Cube, error) {
	var cubes []*models.Cube
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.tagQuery(keyword)).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&cubes).Error; err != nil {
		return nil, err
	}
	return cubes, nil
}

// CountByTag counts cubes owning a tile whose tag contains the keyword
func (r *CubeRepository) CountByTag(ctx context.Context, keyword string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Cube{}).
		Where("id IN (?)", r.tagQuery(keyword)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
