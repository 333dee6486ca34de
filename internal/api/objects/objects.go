// Package objects builds the JSON views shared across API handlers.
// Field names and shapes are part of the mobile client contract and
// must not change.
package objects

import (
	"context"
	"database/sql"

	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/models"
)

// M is a generic JSON object
type M = map[string]interface{}

func nullString(ns sql.NullString) interface{} {
	if ns.Valid {
		return ns.String
	}
	return nil
}

func nullInt(ni sql.NullInt64) interface{} {
	if ni.Valid {
		return ni.Int64
	}
	return nil
}

// User is the compact user view embedded in most responses
func User(u *models.User) M {
	return M{
		"user_id":   u.ID,
		"username":  u.Username,
		"createdAt": u.CreatedAt,
		"updatedAt": u.CreatedAt,
		"avatar":    nullString(u.Avatar),
	}
}

// Cube is the bare cube view without counts or tiles
func Cube(c *models.Cube) M {
	return M{
		"cube_id":   c.ID,
		"type":      c.Type,
		"caption":   c.Caption,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
}

// Tile is the bare tile view without counts or tags
func Tile(t *models.Tile) M {
	return M{
		"tile_id":          t.ID,
		"description":      t.Description,
		"link":             t.Link,
		"photo_url":        t.PhotoURL,
		"thumb_url":        t.ThumbURL,
		"video_embed_code": t.VideoEmbedCode,
		"sequence":         t.Sequence,
		"createdAt":        t.CreatedAt,
		"updatedAt":        t.UpdatedAt,
	}
}

// CubeComment is the cube comment view. Top-level comments report a
// parent_id of zero.
func CubeComment(c *models.CubeComment) M {
	var parentID int64
	if c.ParentID.Valid {
		parentID = c.ParentID.Int64
	}
	return M{
		"comment_id": c.ID,
		"parent_id":  parentID,
		"cube_id":    c.CubeID,
		"comment":    c.Comment,
		"createdAt":  c.CreatedAt,
	}
}

// TileComment is the tile comment view
func TileComment(c *models.TileComment) M {
	var parentID int64
	if c.ParentID.Valid {
		parentID = c.ParentID.Int64
	}
	return M{
		"comment_id": c.ID,
		"parent_id":  parentID,
		"tile_id":    c.TileID,
		"comment":    c.Comment,
		"createdAt":  c.CreatedAt,
	}
}

// Notification is the history row view
func Notification(h *models.History) M {
	return M{
		"id":               h.ID,
		"created_at":       h.CreatedAt,
		"type":             h.Type,
		"new_notification": h.Unread,
		"cube_id":          nullInt(h.CubeID),
		"tile_id":          nullInt(h.TileID),
		"comment_id":       nullInt(h.CommentID),
	}
}

// TileView is a tile with its favorite and comment counts and tags
func TileView(ctx context.Context, repo *db.Repository, tile *models.Tile) (M, error) {
	favorites, err := repo.Favorites().CountTileFavorites(ctx, tile.ID)
	if err != nil {
		return nil, err
	}
	comments, err := repo.Comments().CountByTile(ctx, tile.ID)
	if err != nil {
		return nil, err
	}
	tags, err := repo.Tiles().ListTagsByTile(ctx, tile.ID)
	if err != nil {
		return nil, err
	}

	view := Tile(tile)
	view["number_of_likes"] = favorites
	view["number_of_comments"] = comments
	view["tags"] = TagNames(tags)
	return view, nil
}

// CubeView is a cube with author, counts, viewer favorite state and
// fully expanded tiles.
func CubeView(ctx context.Context, repo *db.Repository, cube *models.Cube, viewerID int64) (M, error) {
	owner, err := repo.Users().GetByID(ctx, cube.UserID)
	if err != nil {
		return nil, err
	}
	favorites, err := repo.Favorites().CountCubeFavorites(ctx, cube.ID)
	if err != nil {
		return nil, err
	}
	isFavorite, err := repo.Favorites().CubeFavoriteExists(ctx, viewerID, cube.ID)
	if err != nil {
		return nil, err
	}
	comments, err := repo.Comments().CountByCube(ctx, cube.ID)
	if err != nil {
		return nil, err
	}
	tiles, err := repo.Tiles().ListByCube(ctx, cube.ID)
	if err != nil {
		return nil, err
	}

	tileViews := make([]M, 0, len(tiles))
	for _, tile := range tiles {
		tv, err := TileView(ctx, repo, tile)
		if err != nil {
			return nil, err
		}
		tileViews = append(tileViews, tv)
	}

	view := Cube(cube)
	view["number_of_likes"] = favorites
	view["number_of_comments"] = comments
	view["is_favorite"] = isFavorite
	view["tiles"] = tileViews
	if owner != nil {
		view["user"] = User(owner)
	}
	return view, nil
}

// CubeViews expands a list of cubes
func CubeViews(ctx context.Context, repo *db.Repository, cubes []*models.Cube, viewerID int64) ([]M, error) {
	views := make([]M, 0, len(cubes))
	for _, cube := range cubes {
		view, err := CubeView(ctx, repo, cube, viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// TagNames extracts the plain tag strings
func TagNames(tags []*models.HashTag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Tag)
	}
	return names
}
