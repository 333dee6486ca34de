package tiles

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clout9/backend/internal/api/objects"
	"github.com/clout9/backend/internal/api/respond"
	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/models"
	"github.com/clout9/backend/internal/notify"
	"github.com/clout9/backend/internal/queue"
	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/logging"
)

const (
	pageSize    = 5
	tagPageSize = 10
)

// API handles tile, tile comment and tag search endpoints
type API struct {
	repo   *db.Repository
	queue  queue.Queue
	share  *config.ShareConfig
	logger *zap.Logger
}

// NewAPI creates the tiles API
func NewAPI(repo *db.Repository, q queue.Queue, shareCfg *config.ShareConfig) *API {
	return &API{
		repo:   repo,
		queue:  q,
		share:  shareCfg,
		logger: logging.WithComponent("tiles-api"),
	}
}

type createRequest struct {
	CubeID         int64    `json:"cube_id"`
	Description    string   `json:"description"`
	Link           string   `json:"link"`
	Sequence       int      `json:"sequence"`
	PhotoURL       string   `json:"photo_url"`
	ThumbURL       string   `json:"thumb_url"`
	VideoEmbedCode string   `json:"video_embed_code"`
	Tags           []string `json:"tags"`
}

// Create appends a tile to a cube
func (a *API) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CubeID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube is invalid.")
		return
	}
	if req.Sequence == 0 {
		respond.Error(c, http.StatusInternalServerError, 13, "sequence is Empty.")
		return
	}
	cube, err := a.repo.Cubes().GetByID(ctx, req.CubeID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if cube == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube is invalid.")
		return
	}

	now := time.Now().UTC()
	tile := &models.Tile{
		CubeID:         cube.ID,
		Description:    req.Description,
		Link:           req.Link,
		Sequence:       req.Sequence,
		PhotoURL:       req.PhotoURL,
		ThumbURL:       req.ThumbURL,
		VideoEmbedCode: req.VideoEmbedCode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.repo.Tiles().Create(ctx, tile); err != nil {
		a.serverError(c, err)
		return
	}
	if err := a.createTags(c, tile.ID, req.Tags); err != nil {
		return
	}

	view := objects.Tile(tile)
	view["tags"] = req.Tags
	respond.Data(c, gin.H{"tile": view})
}

type updateRequest struct {
	CubeID         int64    `json:"cube_id"`
	TileID         int64    `json:"tile_id"`
	Description    string   `json:"description"`
	Link           string   `json:"link"`
	Sequence       int      `json:"sequence"`
	PhotoURL       string   `json:"photo_url"`
	ThumbURL       string   `json:"thumb_url"`
	VideoEmbedCode string   `json:"video_embed_code"`
	Tags           []string `json:"tags"`
}

// Update replaces a tile's fields. Tags are appended, never replaced.
func (a *API) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CubeID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube is invalid.")
		return
	}
	if req.TileID == 0 {
		respond.Error(c, http.StatusInternalServerError, 11, "Tile is invalid.")
		return
	}
	if req.Sequence == 0 {
		respond.Error(c, http.StatusInternalServerError, 14, "sequence is Empty.")
		return
	}
	tile, err := a.repo.Tiles().GetByIDAndCube(ctx, req.TileID, req.CubeID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if tile == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube is invalid.")
		return
	}

	tile.Description = req.Description
	tile.Link = req.Link
	tile.Sequence = req.Sequence
	tile.PhotoURL = req.PhotoURL
	tile.ThumbURL = req.ThumbURL
	tile.VideoEmbedCode = req.VideoEmbedCode
	if err := a.repo.Tiles().Update(ctx, tile); err != nil {
		a.serverError(c, err)
		return
	}
	if err := a.createTags(c, tile.ID, req.Tags); err != nil {
		return
	}

	view := objects.Tile(tile)
	view["tags"] = req.Tags
	respond.Data(c, gin.H{"tile": view})
}

// Detail returns one tile with counts and the cube owner
func (a *API) Detail(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	tile, ok := a.tileByParam(c)
	if !ok {
		return
	}
	cube, err := a.repo.Cubes().GetByID(ctx, tile.CubeID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	isFavorite, err := a.repo.Favorites().TileFavoriteExists(ctx, viewer.ID, tile.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	favorites, err := a.repo.Favorites().CountTileFavorites(ctx, tile.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	comments, err := a.repo.Comments().CountByTile(ctx, tile.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	view := objects.Tile(tile)
	view["number_of_likes"] = favorites
	view["number_of_comments"] = comments
	view["is_favorite"] = isFavorite
	if cube != nil {
		owner, err := a.repo.Users().GetByID(ctx, cube.UserID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		if owner != nil {
			view["user"] = objects.User(owner)
		}
	}
	respond.Data(c, gin.H{"tile": view})
}

// Delete removes a tile
func (a *API) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, 1, "Tile is invalid.")
		return
	}
	tile, err := a.repo.Tiles().GetByID(c.Request.Context(), id)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if tile == nil {
		respond.Error(c, http.StatusInternalServerError, 1, "Tile is invalid.")
		return
	}

	if err := a.repo.Tiles().Delete(c.Request.Context(), tile); err != nil {
		a.serverError(c, err)
		return
	}
	respond.Data(c, gin.H{"msg": "Tile deleted"})
}

// CommentList returns one page of a tile's comments, oldest first. The
// favorite flag reports whether the comment's author favorited the
// tile, which is what the clients render next to each comment.
func (a *API) CommentList(c *gin.Context) {
	ctx := c.Request.Context()

	tile, ok := a.tileByParam(c)
	if !ok {
		return
	}

	total, err := a.repo.Comments().CountByTile(ctx, tile.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	page, empty := respond.ParsePage(c)
	var comments []*models.TileComment
	if !empty {
		comments, err = a.repo.Comments().ListByTile(ctx, tile.ID, (page-1)*pageSize, pageSize)
		if err != nil {
			a.serverError(c, err)
			return
		}
	}

	views := make([]objects.M, 0, len(comments))
	for _, comment := range comments {
		author, err := a.repo.Users().GetByID(ctx, comment.UserID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		followers, err := a.repo.Follows().CountFollowers(ctx, comment.UserID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		isFavorite, err := a.repo.Favorites().TileFavoriteExists(ctx, comment.UserID, tile.ID)
		if err != nil {
			a.serverError(c, err)
			return
		}

		view := objects.TileComment(comment)
		view["number_of_follower"] = followers
		view["is_favorite"] = isFavorite
		if author != nil {
			view["user"] = objects.User(author)
		}
		views = append(views, view)
	}

	respond.Data(c, gin.H{"number_of_comments": total, "comments": views})
}

type commentCreateRequest struct {
	TileID  int64  `json:"tile_id"`
	Comment string `json:"comment"`
}

// CommentCreate adds a top-level comment to a tile, notifying the
// cube's owner.
func (a *API) CommentCreate(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	var req commentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TileID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Tile is invalid.")
		return
	}
	if req.Comment == "" {
		respond.Error(c, http.StatusInternalServerError, 11, "Comment is invalid.")
		return
	}
	tile, err := a.repo.Tiles().GetByID(ctx, req.TileID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if tile == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Tile is invalid.")
		return
	}

	now := time.Now().UTC()
	comment := &models.TileComment{
		UserID:    viewer.ID,
		TileID:    tile.ID,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.Comments().CreateTileComment(ctx, comment); err != nil {
		a.serverError(c, err)
		return
	}

	cube, err := a.repo.Cubes().GetByID(ctx, tile.CubeID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if cube != nil && viewer.ID != cube.UserID {
		if err := a.repo.Histories().Create(ctx, &models.History{
			FromID:    nullID(viewer.ID),
			ToID:      nullID(cube.UserID),
			CubeID:    nullID(cube.ID),
			TileID:    nullID(tile.ID),
			CommentID: nullID(comment.ID),
			Unread:    true,
			Type:      models.HistoryTypeTileComment,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			a.serverError(c, err)
			return
		}
		notify.Enqueue(ctx, a.queue, &queue.Task{
			Name:       queue.TaskTileCommentNotification,
			FromUserID: viewer.ID,
			ToUserID:   cube.UserID,
		})
	}

	view := objects.TileComment(comment)
	view["user"] = objects.User(viewer)
	respond.Data(c, gin.H{"comment": view})
}

type commentFavoriteRequest struct {
	CommentID int64 `json:"comment_id"`
}

// CommentFavorite marks a tile comment as favorited
func (a *API) CommentFavorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	comment, ok := a.commentFavoriteTarget(c)
	if !ok {
		return
	}

	exists, err := a.repo.Favorites().TileCommentFavoriteExists(ctx, viewer.ID, comment.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if !exists {
		if err := a.repo.Favorites().CreateTileCommentFavorite(ctx, viewer.ID, comment.ID); err != nil {
			a.serverError(c, err)
			return
		}
		if viewer.ID != comment.UserID {
			tile, err := a.repo.Tiles().GetByID(ctx, comment.TileID)
			if err != nil {
				a.serverError(c, err)
				return
			}
			history := &models.History{
				FromID:    nullID(viewer.ID),
				ToID:      nullID(comment.UserID),
				TileID:    nullID(comment.TileID),
				CommentID: nullID(comment.ID),
				Unread:    true,
				Type:      models.HistoryTypeTileCommentFavorite,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			if tile != nil {
				history.CubeID = nullID(tile.CubeID)
			}
			if err := a.repo.Histories().Create(ctx, history); err != nil {
				a.serverError(c, err)
				return
			}
			notify.Enqueue(ctx, a.queue, &queue.Task{
				Name:       queue.TaskCommentFavoriteNotification,
				FromUserID: viewer.ID,
				ToUserID:   comment.UserID,
			})
		}
	}

	respond.Data(c, gin.H{"comment": gin.H{"comment_id": comment.ID}})
}

// CommentUnfavorite removes the caller's favorite on a tile comment
func (a *API) CommentUnfavorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)

	comment, ok := a.commentFavoriteTarget(c)
	if !ok {
		return
	}

	if err := a.repo.Favorites().DeleteTileCommentFavorite(c.Request.Context(), viewer.ID, comment.ID); err != nil {
		a.serverError(c, err)
		return
	}
	respond.Success(c)
}

type subscriptionRequest struct {
	ParentID int64  `json:"parent_id"`
	Comment  string `json:"comment"`
}

// SubscriptionCreate replies to a top-level tile comment
func (a *API) SubscriptionCreate(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ParentID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Parent comment is invalid.")
		return
	}
	if req.Comment == "" {
		respond.Error(c, http.StatusInternalServerError, 11, "comment is Empty.")
		return
	}
	parent, err := a.repo.Comments().GetTopLevelTileComment(ctx, req.ParentID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if parent == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Parent comment is invalid.")
		return
	}

	now := time.Now().UTC()
	reply := &models.TileComment{
		UserID:    viewer.ID,
		ParentID:  nullID(parent.ID),
		TileID:    parent.TileID,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: parent.CreatedAt.Add(time.Millisecond),
	}
	if err := a.repo.Comments().CreateTileComment(ctx, reply); err != nil {
		a.serverError(c, err)
		return
	}

	if viewer.ID != parent.UserID {
		tile, err := a.repo.Tiles().GetByID(ctx, parent.TileID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		history := &models.History{
			FromID:    nullID(viewer.ID),
			ToID:      nullID(parent.UserID),
			TileID:    nullID(parent.TileID),
			CommentID: nullID(parent.ID),
			Unread:    true,
			Type:      models.HistoryTypeTileSubscription,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if tile != nil {
			history.CubeID = nullID(tile.CubeID)
		}
		if err := a.repo.Histories().Create(ctx, history); err != nil {
			a.serverError(c, err)
			return
		}
		notify.Enqueue(ctx, a.queue, &queue.Task{
			Name:       queue.TaskSubscriptionNotification,
			FromUserID: viewer.ID,
			ToUserID:   parent.UserID,
		})
	}

	view := objects.TileComment(reply)
	view["user"] = objects.User(viewer)
	respond.Data(c, gin.H{"comment": view})
}

type favoriteRequest struct {
	TileID int64 `json:"tile_id"`
}

// Favorite marks a tile as favorited, notifying the cube's owner
func (a *API) Favorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	tile, ok := a.favoriteTarget(c)
	if !ok {
		return
	}

	exists, err := a.repo.Favorites().TileFavoriteExists(ctx, viewer.ID, tile.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if !exists {
		if err := a.repo.Favorites().CreateTileFavorite(ctx, viewer.ID, tile.ID); err != nil {
			a.serverError(c, err)
			return
		}
		cube, err := a.repo.Cubes().GetByID(ctx, tile.CubeID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		if cube != nil && viewer.ID != cube.UserID {
			if err := a.repo.Histories().Create(ctx, &models.History{
				FromID:    nullID(viewer.ID),
				ToID:      nullID(cube.UserID),
				CubeID:    nullID(cube.ID),
				TileID:    nullID(tile.ID),
				Unread:    true,
				Type:      models.HistoryTypeTileFavorite,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}); err != nil {
				a.serverError(c, err)
				return
			}
			notify.Enqueue(ctx, a.queue, &queue.Task{
				Name:       queue.TaskTileFavoriteNotification,
				FromUserID: viewer.ID,
				ToUserID:   cube.UserID,
			})
		}
	}

	respond.Data(c, gin.H{"tile": gin.H{"tile_id": tile.ID}})
}

// Unfavorite removes the caller's favorite on a tile
func (a *API) Unfavorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)

	tile, ok := a.favoriteTarget(c)
	if !ok {
		return
	}

	if err := a.repo.Favorites().DeleteTileFavorite(c.Request.Context(), viewer.ID, tile.ID); err != nil {
		a.serverError(c, err)
		return
	}
	respond.Success(c)
}

// Search returns one page of distinct tag names matching the keyword
func (a *API) Search(c *gin.Context) {
	ctx := c.Request.Context()
	keyword := c.Query("keyword")
	page, empty := respond.ParsePage(c)

	total, err := a.repo.Tiles().CountDistinctTags(ctx, keyword)
	if err != nil {
		a.serverError(c, err)
		return
	}
	tags := []string{}
	if !empty {
		tags, err = a.repo.Tiles().DistinctTags(ctx, keyword, (page-1)*tagPageSize, tagPageSize)
		if err != nil {
			a.serverError(c, err)
			return
		}
	}

	respond.Data(c, gin.H{"number_of_tags": total, "tags": tags})
}

// SearchTag returns one page of cubes carrying a tile tag matching the
// keyword. An empty keyword matches nothing.
func (a *API) SearchTag(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()
	keyword := c.Query("keyword")

	if keyword == "" {
		respond.Data(c, gin.H{"number_of_cubes": 0, "cubes": []objects.M{}})
		return
	}

	page, empty := respond.ParsePage(c)
	total, err := a.repo.Cubes().CountByTag(ctx, keyword)
	if err != nil {
		a.serverError(c, err)
		return
	}
	var found []*models.Cube
	if !empty {
		found, err = a.repo.Cubes().ListByTag(ctx, keyword, (page-1)*pageSize, pageSize)
		if err != nil {
			a.serverError(c, err)
			return
		}
	}

	views, err := objects.CubeViews(ctx, a.repo, found, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	respond.Data(c, gin.H{"number_of_cubes": total, "cubes": views})
}

// All lists every tile hosted on the configured media host. This is the
// unauthenticated audit feed used by content review tooling.
func (a *API) All(c *gin.Context) {
	ctx := c.Request.Context()

	tiles, err := a.repo.Tiles().ListByPhotoHost(ctx, a.share.MediaHost, 0, -1)
	if err != nil {
		a.serverError(c, err)
		return
	}

	views := make([]objects.M, 0, len(tiles))
	for _, tile := range tiles {
		cube, err := a.repo.Cubes().GetByID(ctx, tile.CubeID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		tags, err := a.repo.Tiles().ListTagsByTile(ctx, tile.ID)
		if err != nil {
			a.serverError(c, err)
			return
		}

		view := objects.Tile(tile)
		view["tags"] = objects.TagNames(tags)
		if cube != nil {
			view["cube_id"] = cube.ID
			view["cube_type"] = cube.Type
		}
		views = append(views, view)
	}

	respond.Data(c, gin.H{"tiles": views})
}

func (a *API) createTags(c *gin.Context, tileID int64, tags []string) error {
	now := time.Now().UTC()
	for _, tag := range tags {
		if err := a.repo.Tiles().CreateTag(c.Request.Context(), &models.HashTag{
			TileID:    tileID,
			Tag:       tag,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			a.serverError(c, err)
			return err
		}
	}
	return nil
}

func (a *API) tileByParam(c *gin.Context) (*models.Tile, bool) {
	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, 3, "Tile not found.")
		return nil, false
	}
	tile, err := a.repo.Tiles().GetByID(c.Request.Context(), id)
	if err != nil {
		a.serverError(c, err)
		return nil, false
	}
	if tile == nil {
		respond.Error(c, http.StatusInternalServerError, 3, "Tile not found.")
		return nil, false
	}
	return tile, true
}

func (a *API) favoriteTarget(c *gin.Context) (*models.Tile, bool) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TileID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Tile_id is Empty.")
		return nil, false
	}
	tile, err := a.repo.Tiles().GetByID(c.Request.Context(), req.TileID)
	if err != nil {
		a.serverError(c, err)
		return nil, false
	}
	if tile == nil {
		respond.Error(c, http.StatusInternalServerError, 11, "Tile_id is Invalid.")
		return nil, false
	}
	return tile, true
}

func (a *API) commentFavoriteTarget(c *gin.Context) (*models.TileComment, bool) {
	var req commentFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CommentID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Comment_id is Empty.")
		return nil, false
	}
	comment, err := a.repo.Comments().GetTileCommentByID(c.Request.Context(), req.CommentID)
	if err != nil {
		a.serverError(c, err)
		return nil, false
	}
	if comment == nil {
		respond.Error(c, http.StatusInternalServerError, 11, "Comment_id is Invalid.")
		return nil, false
	}
	return comment, true
}

func (a *API) serverError(c *gin.Context, err error) {
	a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	respond.Error(c, http.StatusInternalServerError, 0, "internal error")
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: true}
}
