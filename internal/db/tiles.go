package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/clout9/backend/internal/models"
)

// TileRepository provides tile and hashtag database operations
type TileRepository struct {
	*Repository
}

// GetByID retrieves a tile by ID
func (r *TileRepository) GetByID(ctx context.Context, id int64) (*models.Tile, error) {
	var tile models.Tile
	if err := r.db.WithContext(ctx).First(&tile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tile, nil
}

// GetByIDAndCube retrieves a tile by ID restricted to a cube
func (r *TileRepository) GetByIDAndCube(ctx context.Context, id, cubeID int64) (*models.Tile, error) {
	var tile models.Tile
	if err := r.db.WithContext(ctx).
		Where("id = ? AND cube_id = ?", id, cubeID).
		First(&tile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tile, nil
}

// Create creates a new tile
func (r *TileRepository) Create(ctx context.Context, tile *models.Tile) error {
	return r.db.WithContext(ctx).Create(tile).Error
}

// Update updates a tile
func (r *TileRepository) Update(ctx context.Context, tile *models.Tile) error {
	return r.db.WithContext(ctx).Save(tile).Error
}

// Delete removes a tile; comments, favorites and tags cascade
func (r *TileRepository) Delete(ctx context.Context, tile *models.Tile) error {
	return r.db.WithContext(ctx).Delete(tile).Error
}

// ListByCube lists a cube's tiles in sequence order
func (r *TileRepository) ListByCube(ctx context.Context, cubeID int64) ([]*models.Tile, error) {
	var tiles []*models.Tile
	if err := r.db.WithContext(ctx).
		Where("cube_id = ?", cubeID).
		Order("sequence").
		Find(&tiles).Error; err != nil {
		return nil, err
	}
	return tiles, nil
}

// ListByPhotoHost lists tiles whose photo URL contains host, newest first
func (r *TileRepository) ListByPhotoHost(ctx context.Context, host string, offset, limit int) ([]*models.Tile, error) {
	var tiles []*models.Tile
	if err := r.db.WithContext(ctx).
		Where("photo_url LIKE ?", "%"+host+"%").
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&tiles).Error; err != nil {
		return nil, err
	}
	return tiles, nil
}

// CreateTag attaches a hashtag to a tile
func (r *TileRepository) CreateTag(ctx context.Context, tag *models.HashTag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// ListTagsByTile lists a tile's hashtags
func (r *TileRepository) ListTagsByTile(ctx context.Context, tileID int64) ([]*models.HashTag, error) {
	var tags []*models.HashTag
	if err := r.db.WithContext(ctx).
		Where("tile_id = ?", tileID).
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// DistinctTags lists distinct tag values containing keyword,
// case-insensitive, ordered alphabetically.
func (r *TileRepository) DistinctTags(ctx context.Context, keyword string, offset, limit int) ([]string, error) {
	var tags []string
	q := r.db.WithContext(ctx).Model(&models.HashTag{}).Distinct("tag")
	if keyword != "" {
		q = q.Where("LOWER(tag) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}
	if err := q.Order("tag").Offset(offset).Limit(limit).Pluck("tag", &tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// CountDistinctTags counts distinct tag values containing keyword
func (r *TileRepository) CountDistinctTags(ctx context.Context, keyword string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.HashTag{}).Distinct("tag")
	if keyword != "" {
		q = q.Where("LOWER(tag) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
