package db

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/clout9/backend/internal/models"
)

// FavoriteRepository provides favorite database operations for cubes,
// tiles and their comments. Creates are idempotent: a second favorite
// of the same target is absorbed by the composite unique index.
type FavoriteRepository struct {
	*Repository
}

// CubeFavoriteExists reports whether the user favorited the cube
func (r *FavoriteRepository) CubeFavoriteExists(ctx context.Context, userID, cubeID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CubeFavorite{}).
		Where("user_id = ? AND cube_id = ?", userID, cubeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCubeFavorite marks a cube as favorited by the user
func (r *FavoriteRepository) CreateCubeFavorite(ctx context.Context, userID, cubeID int64) error {
	fav := &models.CubeFavorite{UserID: userID, CubeID: cubeID, CreatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
}

// DeleteCubeFavorite removes the user's favorite on the cube
func (r *FavoriteRepository) DeleteCubeFavorite(ctx context.Context, userID, cubeID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND cube_id = ?", userID, cubeID).
		Delete(&models.CubeFavorite{}).Error
}

// CountCubeFavorites counts favorites on the cube
func (r *FavoriteRepository) CountCubeFavorites(ctx context.Context, cubeID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CubeFavorite{}).
		Where("cube_id = ?", cubeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TileFavoriteExists reports whether the user favorited the tile
func (r *FavoriteRepository) TileFavoriteExists(ctx context.Context, userID, tileID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TileFavorite{}).
		Where("user_id = ? AND tile_id = ?", userID, tileID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateTileFavorite marks a tile as favorited by the user
func (r *FavoriteRepository) CreateTileFavorite(ctx context.Context, userID, tileID int64) error {
	fav := &models.TileFavorite{UserID: userID, TileID: tileID, CreatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
}

// DeleteTileFavorite removes the user's favorite on the tile
func (r *FavoriteRepository) DeleteTileFavorite(ctx context.Context, userID, tileID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND tile_id = ?", userID, tileID).
		Delete(&models.TileFavorite{}).Error
}

// CountTileFavorites counts favorites on the tile
func (r *FavoriteRepository) CountTileFavorites(ctx context.Context, tileID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TileFavorite{}).
		Where("tile_id = ?", tileID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CubeCommentFavoriteExists reports whether the user favorited the cube comment
func (r *FavoriteRepository) CubeCommentFavoriteExists(ctx context.Context, userID, commentID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CubeCommentFavorite{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCubeCommentFavorite marks a cube comment as favorited by the user
func (r *FavoriteRepository) CreateCubeCommentFavorite(ctx context.Context, userID, commentID int64) error {
	fav := &models.CubeCommentFavorite{UserID: userID, CommentID: commentID, CreatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
}

// DeleteCubeCommentFavorite removes the user's favorite on the cube comment
func (r *FavoriteRepository) DeleteCubeCommentFavorite(ctx context.Context, userID, commentID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.CubeCommentFavorite{}).Error
}

// CountCubeCommentFavorites counts favorites on the cube comment
func (r *FavoriteRepository) CountCubeCommentFavorites(ctx context.Context, commentID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CubeCommentFavorite{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TileCommentFavoriteExists reports whether the user favorited the tile comment
func (r *FavoriteRepository) TileCommentFavoriteExists(ctx context.Context, userID, commentID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TileCommentFavorite{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateTileCommentFavorite marks a tile comment as favorited by the user
func (r *FavoriteRepository) CreateTileCommentFavorite(ctx context.Context, userID, commentID int64) error {
	fav := &models.TileCommentFavorite{UserID: userID, CommentID: commentID, CreatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
}

// DeleteTileCommentFavorite removes the user's favorite on the tile comment
func (r *FavoriteRepository) DeleteTileCommentFavorite(ctx context.Context, userID, commentID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.TileCommentFavorite{}).Error
}

// CountTileCommentFavorites counts favorites on the tile comment
func (r *FavoriteRepository) CountTileCommentFavorites(ctx context.Context, commentID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TileCommentFavorite{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
