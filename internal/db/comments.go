package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/clout9/backend/internal/models"
)

// CommentRepository provides cube and tile comment database operations
type CommentRepository struct {
	*Repository
}

// CreateCubeComment creates a cube comment
func (r *CommentRepository) CreateCubeComment(ctx context.Context, comment *models.CubeComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetCubeCommentByID retrieves a cube comment by ID
func (r *CommentRepository) GetCubeCommentByID(ctx context.Context, id int64) (*models.CubeComment, error) {
	var comment models.CubeComment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// GetTopLevelCubeComment retrieves a cube comment by ID only if it is
// not itself a reply. Replies are never valid reply targets.
func (r *CommentRepository) GetTopLevelCubeComment(ctx context.Context, id int64) (*models.CubeComment, error) {
	var comment models.CubeComment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND parent_id IS NULL", id).
		First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// CountByCube counts a cube's comments
func (r *CommentRepository) CountByCube(ctx context.Context, cubeID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CubeComment{}).
		Where("cube_id = ?", cubeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByCube lists a cube's comments oldest first. Replies sort right
// after their parent because their updated_at is pinned to the parent's
// created_at plus one millisecond.
func (r *CommentRepository) ListByCube(ctx context.Context, cubeID int64, offset, limit int) ([]*models.CubeComment, error) {
	var comments []*models.CubeComment
	if err := r.db.WithContext(ctx).
		Where("cube_id = ?", cubeID).
		Order("updated_at").
		Offset(offset).Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateTileComment creates a tile comment
func (r *CommentRepository) CreateTileComment(ctx context.Context, comment *models.TileComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetTileCommentByID retrieves a tile comment by ID
func (r *CommentRepository) GetTileCommentByID(ctx context.Context, id int64) (*models.TileComment, error) {
	var comment models.TileComment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// GetTopLevelTileComment retrieves a tile comment by ID only if it is
// not itself a reply
func (r *CommentRepository) GetTopLevelTileComment(ctx context.Context, id int64) (*models.TileComment, error) {
	var comment models.TileComment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND parent_id IS NULL", id).
		First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// CountByTile counts a tile's comments
func (r *CommentRepository) CountByTile(ctx context.Context, tileID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TileComment{}).
		Where("tile_id = ?", tileID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByTile lists a tile's comments oldest first
func (r *CommentRepository) ListByTile(ctx context.Context, tileID int64, offset, limit int) ([]*models.TileComment, error) {
	var comments []*models.TileComment
	if err := r.db.WithContext(ctx).
		Where("tile_id = ?", tileID).
		Order("updated_at").
		Offset(offset).Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
