package models

import (
	"database/sql"
	"time"
)

// Cube is a user-authored post, a container of ordered media tiles.
type Cube struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;index;column:user_id"`
	Type      int       `gorm:"not null;column:type"`
	Caption   string    `gorm:"type:text;column:caption"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Cube
func (Cube) TableName() string {
	return "cube"
}

// CubeFavorite marks a cube as favorited by a user.
type CubeFavorite struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_cube_favorite_pair;column:user_id"`
	CubeID    int64     `gorm:"not null;uniqueIndex:idx_cube_favorite_pair;column:cube_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Cube *Cube `gorm:"foreignKey:CubeID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for CubeFavorite
func (CubeFavorite) TableName() string {
	return "cube_favorites"
}

// CubeComment is a comment on a cube. ParentID is set only on replies
// ("subscriptions") and replies may never themselves be reply targets.
// Timestamps are caller-managed: a reply's updated_at is pinned to the
// parent's created_at plus one millisecond for feed ordering.
type CubeComment struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64         `gorm:"not null;column:user_id"`
	ParentID  sql.NullInt64 `gorm:"column:parent_id"`
	CubeID    int64         `gorm:"not null;index;column:cube_id"`
	Comment   string        `gorm:"type:text;column:comment"`
	CreatedAt time.Time     `gorm:"autoCreateTime:false;column:created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime:false;column:updated_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Cube *Cube `gorm:"foreignKey:CubeID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for CubeComment
func (CubeComment) TableName() string {
	return "cube_comment"
}

// CubeCommentFavorite marks a cube comment as favorited by a user.
type CubeCommentFavorite struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_cube_comment_favorite_pair;column:user_id"`
	CommentID int64     `gorm:"not null;uniqueIndex:idx_cube_comment_favorite_pair;column:comment_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	User    *User        `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Comment *CubeComment `gorm:"foreignKey:CommentID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for CubeCommentFavorite
func (CubeCommentFavorite) TableName() string {
	return "cube_comment_favorite"
}
