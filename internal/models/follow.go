package models

import (
	"time"
)

// Following represents a directed follower -> followed edge.
// The composite unique index makes repeated follows idempotent at the
// storage layer instead of relying on a check-then-insert in the handler.
type Following struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	FollowerID int64     `gorm:"not null;uniqueIndex:idx_following_pair;column:follower_id"`
	FollowedID int64     `gorm:"not null;uniqueIndex:idx_following_pair;column:followed_id"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`

	Follower *User `gorm:"foreignKey:FollowerID;references:ID;constraint:OnDelete:CASCADE"`
	Followed *User `gorm:"foreignKey:FollowedID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Following
func (Following) TableName() string {
	return "following"
}
