package db

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/clout9/backend/internal/models"
)

// FollowRepository provides follow edge database operations
type FollowRepository struct {
	*Repository
}

// Create inserts a follower -> followed edge. Duplicate follows are
// absorbed by the composite unique index.
func (r *FollowRepository) Create(ctx context.Context, followerID, followedID int64) error {
	edge := &models.Following{
		FollowerID: followerID,
		FollowedID: followedID,
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(edge).Error
}

// Delete removes a follower -> followed edge
func (r *FollowRepository) Delete(ctx context.Context, followerID, followedID int64) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Following{}).Error
}

// Exists reports whether follower follows followed
func (r *FollowRepository) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Following{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountFollowers counts edges pointing at the user
func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Following{}).
		Where("followed_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountFollowing counts edges originating from the user
func (r *FollowRepository) CountFollowing(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Following{}).
		Where("follower_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListFollowers lists the users following userID
func (r *FollowRepository) ListFollowers(ctx context.Context, userID int64) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN following ON following.follower_id = users.id").
		Where("following.followed_id = ?", userID).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListFollowing lists the users userID follows
func (r *FollowRepository) ListFollowing(ctx context.Context, userID int64) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN following ON following.followed_id = users.id").
		Where("following.follower_id = ?", userID).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListFollowedIDs lists ids of users the follower follows
func (r *FollowRepository) ListFollowedIDs(ctx context.Context, followerID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.Following{}).
		Where("follower_id = ?", followerID).
		Pluck("followed_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
