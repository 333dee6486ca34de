package models

import (
	"database/sql"
	"time"
)

// History is the append-only notification/activity log. Rows are
// immutable except for the unread flag, which flips to read once via
// the notification detail endpoint.
type History struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;column:id"`
	FromID    sql.NullInt64 `gorm:"column:from_id"`
	ToID      sql.NullInt64 `gorm:"index;column:to_id"`
	CubeID    sql.NullInt64 `gorm:"column:cube_id"`
	TileID    sql.NullInt64 `gorm:"column:tile_id"`
	CommentID sql.NullInt64 `gorm:"column:comment_id"`
	Unread    bool          `gorm:"not null;default:true;column:new_notification"`
	Type      int16         `gorm:"type:smallint;not null;column:type"`
	CreatedAt time.Time     `gorm:"not null;column:created_at"`
	UpdatedAt time.Time     `gorm:"not null;column:updated_at"`

	From *User `gorm:"foreignKey:FromID;references:ID;constraint:OnDelete:CASCADE"`
	To   *User `gorm:"foreignKey:ToID;references:ID;constraint:OnDelete:CASCADE"`
	Cube *Cube `gorm:"foreignKey:CubeID;references:ID;constraint:OnDelete:CASCADE"`
	Tile *Tile `gorm:"foreignKey:TileID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for History
func (History) TableName() string {
	return "history"
}

// History type constants. Type 5 is shared by tile favorites and cube
// comment replies, matching the event numbering of the mobile clients.
const (
	HistoryTypeFollow              int16 = 1
	HistoryTypeCubeFavorite        int16 = 2
	HistoryTypeCubeComment         int16 = 3
	HistoryTypeCommentFavorite     int16 = 4
	HistoryTypeTileFavorite        int16 = 5
	HistoryTypeTileComment         int16 = 6
	HistoryTypeTileCommentFavorite int16 = 7
	HistoryTypeTileSubscription    int16 = 8
)
