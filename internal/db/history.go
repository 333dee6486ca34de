package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/clout9/backend/internal/models"
)

// HistoryRepository provides notification history database operations
type HistoryRepository struct {
	*Repository
}

// Create appends a history row
func (r *HistoryRepository) Create(ctx context.Context, history *models.History) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// GetByID retrieves a history row by ID
func (r *HistoryRepository) GetByID(ctx context.Context, id int64) (*models.History, error) {
	var history models.History
	if err := r.db.WithContext(ctx).First(&history, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &history, nil
}

// Update updates a history row
func (r *HistoryRepository) Update(ctx context.Context, history *models.History) error {
	return r.db.WithContext(ctx).Save(history).Error
}

// ListByTo lists the recipient's history, newest first
func (r *HistoryRepository) ListByTo(ctx context.Context, toID int64) ([]*models.History, error) {
	var rows []*models.History
	if err := r.db.WithContext(ctx).
		Where("to_id = ?", toID).
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountUnread counts the recipient's unread history rows
func (r *HistoryRepository) CountUnread(ctx context.Context, toID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.History{}).
		Where("to_id = ? AND new_notification = ?", toID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
