package models

import (
	"database/sql"
	"time"
)

// User represents a registered account. Password is a bcrypt hash and is
// null for accounts created through social login.
type User struct {
	ID                  int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Email               string         `gorm:"size:255;not null;uniqueIndex;column:email"`
	Username            string         `gorm:"size:255;column:username"`
	Password            sql.NullString `gorm:"size:128;column:password"`
	AppleID             sql.NullString `gorm:"size:255;column:apple_id"`
	IsActive            bool           `gorm:"not null;default:true;column:is_active"`
	EmailConfirmed      bool           `gorm:"not null;default:false;column:email_confirmed"`
	Overview            sql.NullString `gorm:"type:text;column:overview"`
	Location            sql.NullString `gorm:"size:128;column:location"`
	Avatar              sql.NullString `gorm:"type:text;column:avatar"`
	PasswordResetToken  sql.NullInt64  `gorm:"column:password_reset_token"`
	PasswordResetSentAt sql.NullTime   `gorm:"column:password_reset_sent_at"`
	PasswordResetState  int16          `gorm:"type:smallint;not null;default:0;column:password_reset_state"`
	CreatedAt           time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt           time.Time      `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Password reset lifecycle states. The reset token moves strictly
// issued -> confirmed -> consumed; confirm requires a fresh issued token
// and reset-password requires a confirmed one.
const (
	ResetStateNone      int16 = 0
	ResetStateIssued    int16 = 1
	ResetStateConfirmed int16 = 2
	ResetStateConsumed  int16 = 3
)

// ResetTokenTTL is how long an issued reset token stays confirmable.
const ResetTokenTTL = 10 * time.Minute

// AuthToken is an opaque bearer token tied to a user, presented as
// "Authorization: Token <key>".
type AuthToken struct {
	Key       string    `gorm:"primaryKey;size:40;column:key"`
	UserID    int64     `gorm:"not null;uniqueIndex;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for AuthToken
func (AuthToken) TableName() string {
	return "auth_tokens"
}

// Device is a registered push notification endpoint for a user.
type Device struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID         int64     `gorm:"not null;index;column:user_id"`
	RegistrationID string    `gorm:"size:255;not null;index;column:registration_id"`
	CreatedAt      time.Time `gorm:"not null;column:created_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Device
func (Device) TableName() string {
	return "devices"
}
