package models

import (
	"database/sql"
	"time"
)

// Tile is one media item belonging to a cube, with a caller-supplied
// display sequence. Sequence is not validated for uniqueness or order.
type Tile struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	CubeID         int64     `gorm:"not null;index;column:cube_id"`
	Description    string    `gorm:"type:text;column:description"`
	Link           string    `gorm:"type:text;column:link"`
	Sequence       int       `gorm:"not null;column:sequence"`
	PhotoURL       string    `gorm:"type:text;column:photo_url"`
	ThumbURL       string    `gorm:"type:text;column:thumb_url"`
	VideoEmbedCode string    `gorm:"type:text;column:video_embed_code"`
	CreatedAt      time.Time `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time `gorm:"not null;column:updated_at"`

	Cube *Cube `gorm:"foreignKey:CubeID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Tile
func (Tile) TableName() string {
	return "tile"
}

// TileFavorite marks a tile as favorited by a user.
type TileFavorite struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_tile_favorite_pair;column:user_id"`
	TileID    int64     `gorm:"not null;uniqueIndex:idx_tile_favorite_pair;column:tile_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Tile *Tile `gorm:"foreignKey:TileID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for TileFavorite
func (TileFavorite) TableName() string {
	return "tile_favorites"
}

// HashTag is a free-text tag attached to a tile. No case or duplicate
// normalization is applied.
type HashTag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	TileID    int64     `gorm:"not null;index;column:tile_id"`
	Tag       string    `gorm:"size:255;not null;column:tag"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`

	Tile *Tile `gorm:"foreignKey:TileID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for HashTag
func (HashTag) TableName() string {
	return "tile_hashtags"
}

// TileComment is a comment on a tile; same single-level reply rules as
// CubeComment.
type TileComment struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64         `gorm:"not null;column:user_id"`
	ParentID  sql.NullInt64 `gorm:"column:parent_id"`
	TileID    int64         `gorm:"not null;index;column:tile_id"`
	Comment   string        `gorm:"type:text;column:comment"`
	CreatedAt time.Time     `gorm:"autoCreateTime:false;column:created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime:false;column:updated_at"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Tile *Tile `gorm:"foreignKey:TileID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for TileComment
func (TileComment) TableName() string {
	return "tile_comment"
}

// TileCommentFavorite marks a tile comment as favorited by a user.
type TileCommentFavorite struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_tile_comment_favorite_pair;column:user_id"`
	CommentID int64     `gorm:"not null;uniqueIndex:idx_tile_comment_favorite_pair;column:comment_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	User    *User        `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Comment *TileComment `gorm:"foreignKey:CommentID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for TileCommentFavorite
func (TileCommentFavorite) TableName() string {
	return "tile_comment_favorite"
}
