package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clout9/backend/internal/models"
)

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByAppleID retrieves a user by Apple subject id
func (r *UserRepository) GetByAppleID(ctx context.Context, appleID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("apple_id = ?", appleID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByResetToken retrieves a user by password reset token
func (r *UserRepository) GetByResetToken(ctx context.Context, token int) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("password_reset_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete removes a user; dependent rows cascade
func (r *UserRepository) Delete(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Delete(user).Error
}

// Search lists users whose username contains keyword, case-insensitive.
// An empty keyword matches all users.
func (r *UserRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]*models.User, error) {
	var users []*models.User
	q := r.db.WithContext(ctx).Model(&models.User{})
	if keyword != "" {
		q = q.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}
	if err := q.Order("id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CountSearch counts users matching a username keyword
func (r *UserRepository) CountSearch(ctx context.Context, keyword string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{})
	if keyword != "" {
		q = q.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TokenRepository provides auth token database operations
type TokenRepository struct {
	*Repository
}

// GetByKey retrieves a token (with its user) by key
func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*models.AuthToken, error) {
	var token models.AuthToken
	if err := r.db.WithContext(ctx).Preload("User").Where("key = ?", key).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// GetOrCreate returns the user's token, creating one if absent
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int64) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	token = models.AuthToken{
		Key:       strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteByUser removes the user's token
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AuthToken{}).Error
}

// DeviceRepository provides push device database operations
type DeviceRepository struct {
	*Repository
}

// ListByUser lists the user's registered devices
func (r *DeviceRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Device, error) {
	var devices []*models.Device
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// ExistsByRegistrationID reports whether a device with the registration id exists
func (r *DeviceRepository) ExistsByRegistrationID(ctx context.Context, registrationID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Device{}).
		Where("registration_id = ?", registrationID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create registers a device
func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

// DeleteByRegistrationID removes devices with the registration id
func (r *DeviceRepository) DeleteByRegistrationID(ctx context.Context, registrationID string) error {
	return r.db.WithContext(ctx).Where("registration_id = ?", registrationID).Delete(&models.Device{}).Error
}

// DeleteByUser removes all of the user's devices
func (r *DeviceRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Device{}).Error
}
