package cubes

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
	"github.com/clout9/backend/pkg/logging"
)

const pageSize = 5

// API handles cube feed, favorite and comment endpoints
type API struct {
	repo   *db.Repository
	queue  queue.Queue
	logger *zap.Logger
}

// NewAPI creates the cubes API
func NewAPI(repo *db.Repository, q queue.Queue) *API {
	return &API{
		repo:   repo,
		queue:  q,
		logger: logging.WithComponent("cubes-api"),
	}
}

type tilePayload struct {
	Description    string   `json:"description"`
	Link           string   `json:"link"`
	Sequence       int      `json:"sequence"`
	PhotoURL       string   `json:"photo_url"`
	ThumbURL       string   `json:"thumb_url"`
	VideoEmbedCode string   `json:"video_embed_code"`
	Tags           []string `json:"tags"`
}

type createRequest struct {
	Type    int           `json:"type"`
	Caption string        `json:"caption"`
	Tiles   []tilePayload `json:"tiles"`
}

// Create creates a cube together with its nested tiles and tags
func (a *API) Create(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "type is invalid.")
		return
	}

	now := time.Now().UTC()
	cube := &models.Cube{
		UserID:    viewer.ID,
		Type:      req.Type,
		Caption:   req.Caption,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.Cubes().Create(ctx, cube); err != nil {
		a.serverError(c, err)
		return
	}

	tileViews := make([]objects.M, 0, len(req.Tiles))
	for _, payload := range req.Tiles {
		tile := &models.Tile{
			CubeID:         cube.ID,
			Description:    payload.Description,
			Link:           payload.Link,
			Sequence:       payload.Sequence,
			PhotoURL:       payload.PhotoURL,
			ThumbURL:       payload.ThumbURL,
			VideoEmbedCode: payload.VideoEmbedCode,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := a.repo.Tiles().Create(ctx, tile); err != nil {
			a.serverError(c, err)
			return
		}
		for _, tag := range payload.Tags {
			if err := a.repo.Tiles().CreateTag(ctx, &models.HashTag{
				TileID:    tile.ID,
				Tag:       tag,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				a.serverError(c, err)
				return
			}
		}
		view := objects.Tile(tile)
		view["number_of_likes"] = 0
		view["number_of_comments"] = 0
		view["tags"] = payload.Tags
		tileViews = append(tileViews, view)
	}

	view := objects.Cube(cube)
	view["user"] = objects.User(viewer)
	view["number_of_likes"] = 0
	view["number_of_comments"] = 0
	view["tiles"] = tileViews
	respond.Data(c, gin.H{"cube": view})
}

// List returns one page of a user's cubes, newest first
func (a *API) List(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "user_id is Empty.")
		return
	}
	user, err := a.repo.Users().GetByID(ctx, userID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil {
		respond.Error(c, http.StatusInternalServerError, 11, "user_id is invalid.")
		return
	}

	page, empty := respond.ParsePage(c)
	var found []*models.Cube
	if !empty {
		found, err = a.repo.Cubes().ListByUser(ctx, user.ID, (page-1)*pageSize, pageSize)
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
	respond.Data(c, gin.H{"cubes": views})
}

// Detail returns one cube with its tiles expanded
func (a *API) Detail(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	cube, ok := a.cubeByParam(c)
	if !ok {
		return
	}

	view, err := objects.CubeView(ctx, a.repo, cube, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	respond.Data(c, gin.H{"cube": view})
}

// Delete removes a cube the caller owns
func (a *API) Delete(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, 1, "Cube is invalid or you can't delete this cube.")
		return
	}
	cube, err := a.repo.Cubes().GetByIDAndOwner(ctx, id, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if cube == nil {
		respond.Error(c, http.StatusInternalServerError, 1, "Cube is invalid or you can't delete this cube.")
		return
	}

	if err := a.repo.Cubes().Delete(ctx, cube); err != nil {
		a.serverError(c, err)
		return
	}
	respond.Data(c, gin.H{"msg": "Cube deleted"})
}

type updateRequest struct {
	CubeID  int64  `json:"cube_id"`
	Type    int    `json:"type"`
	Caption string `json:"caption"`
}

// Update changes a cube's type, caption and claims ownership for the
// caller.
func (a *API) Update(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CubeID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube is invalid.")
		return
	}
	if req.Type == 0 {
		respond.Error(c, http.StatusInternalServerError, 11, "type is invalid.")
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

	cube.UserID = viewer.ID
	cube.Type = req.Type
	if req.Caption != "" {
		cube.Caption = req.Caption
	}
	if err := a.repo.Cubes().Update(ctx, cube); err != nil {
		a.serverError(c, err)
		return
	}

	favorites, err := a.repo.Favorites().CountCubeFavorites(ctx, cube.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	comments, err := a.repo.Comments().CountByCube(ctx, cube.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	view := objects.Cube(cube)
	view["user"] = objects.User(viewer)
	view["number_of_likes"] = favorites
	view["number_of_comments"] = comments
	respond.Data(c, gin.H{"cube": view})
}

// Discover returns one page of cubes from users the caller does not
// follow.
func (a *API) Discover(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	followedIDs, err := a.repo.Follows().ListFollowedIDs(ctx, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	page, empty := respond.ParsePage(c)
	var found []*models.Cube
	if !empty {
		found, err = a.repo.Cubes().ListDiscover(ctx, viewer.ID, followedIDs, (page-1)*pageSize, pageSize)
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
	respond.Data(c, gin.H{"cubes": views})
}

// FollowingFeed returns one page of cubes from followed users, most
// favorited first.
func (a *API) FollowingFeed(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	followedIDs, err := a.repo.Follows().ListFollowedIDs(ctx, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	page, empty := respond.ParsePage(c)
	var found []*models.Cube
	if !empty {
		found, err = a.repo.Cubes().ListByUsers(ctx, followedIDs, (page-1)*pageSize, pageSize)
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
	respond.Data(c, gin.H{"cubes": views})
}

// All returns one page of every cube, newest first
func (a *API) All(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	page, empty := respond.ParsePage(c)
	var found []*models.Cube
	if !empty {
		var err error
		found, err = a.repo.Cubes().ListAll(ctx, (page-1)*pageSize, pageSize)
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
	respond.Data(c, gin.H{"cubes": views})
}

type favoriteRequest struct {
	CubeID int64 `json:"cube_id"`
}

// Favorite marks a cube as favorited. Favoriting twice is a no-op and
// favoriting your own cube records no notification.
func (a *API) Favorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	cube, ok := a.favoriteTarget(c)
	if !ok {
		return
	}

	exists, err := a.repo.Favorites().CubeFavoriteExists(ctx, viewer.ID, cube.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if !exists {
		if err := a.repo.Favorites().CreateCubeFavorite(ctx, viewer.ID, cube.ID); err != nil {
			a.serverError(c, err)
			return
		}
		if viewer.ID != cube.UserID {
			if err := a.repo.Histories().Create(ctx, &models.History{
				FromID:    nullID(viewer.ID),
				ToID:      nullID(cube.UserID),
				CubeID:    nullID(cube.ID),
				Unread:    true,
				Type:      models.HistoryTypeCubeFavorite,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}); err != nil {
				a.serverError(c, err)
				return
			}
			notify.Enqueue(ctx, a.queue, &queue.Task{
				Name:       queue.TaskCubeFavoriteNotification,
				FromUserID: viewer.ID,
				ToUserID:   cube.UserID,
			})
		}
	}

	respond.Data(c, gin.H{"cube": gin.H{"cube_id": cube.ID}})
}

// Unfavorite removes the caller's favorite; a missing favorite is a
// no-op.
func (a *API) Unfavorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	cube, ok := a.favoriteTarget(c)
	if !ok {
		return
	}

	if err := a.repo.Favorites().DeleteCubeFavorite(ctx, viewer.ID, cube.ID); err != nil {
		a.serverError(c, err)
		return
	}
	respond.Success(c)
}

// CommentList returns one page of a cube's comments, oldest first, with
// the comment author's follower count and the caller's favorite state.
func (a *API) CommentList(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	cube, ok := a.cubeByParam(c)
	if !ok {
		return
	}

	total, err := a.repo.Comments().CountByCube(ctx, cube.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	page, empty := respond.ParsePage(c)
	var comments []*models.CubeComment
	if !empty {
		comments, err = a.repo.Comments().ListByCube(ctx, cube.ID, (page-1)*pageSize, pageSize)
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
		isFavorite, err := a.repo.Favorites().CubeCommentFavoriteExists(ctx, viewer.ID, comment.ID)
		if err != nil {
			a.serverError(c, err)
			return
		}

		view := objects.CubeComment(comment)
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
	CubeID  int64  `json:"cube_id"`
	Comment string `json:"comment"`
}

// CommentCreate adds a top-level comment to a cube
func (a *API) CommentCreate(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	var req commentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CubeID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube is invalid.")
		return
	}
	if req.Comment == "" {
		respond.Error(c, http.StatusInternalServerError, 11, "Comment is invalid.")
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
	comment := &models.CubeComment{
		UserID:    viewer.ID,
		CubeID:    cube.ID,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.Comments().CreateCubeComment(ctx, comment); err != nil {
		a.serverError(c, err)
		return
	}

	if viewer.ID != cube.UserID {
		if err := a.repo.Histories().Create(ctx, &models.History{
			FromID:    nullID(viewer.ID),
			ToID:      nullID(cube.UserID),
			CubeID:    nullID(cube.ID),
			CommentID: nullID(comment.ID),
			Unread:    true,
			Type:      models.HistoryTypeCubeComment,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			a.serverError(c, err)
			return
		}
		notify.Enqueue(ctx, a.queue, &queue.Task{
			Name:       queue.TaskCubeCommentNotification,
			FromUserID: viewer.ID,
			ToUserID:   cube.UserID,
		})
	}

	view := objects.CubeComment(comment)
	view["user"] = objects.User(viewer)
	respond.Data(c, gin.H{"comment": view})
}

type commentFavoriteRequest struct {
	CommentID int64 `json:"comment_id"`
}

// CommentFavorite marks a cube comment as favorited
func (a *API) CommentFavorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	comment, ok := a.commentFavoriteTarget(c)
	if !ok {
		return
	}

	exists, err := a.repo.Favorites().CubeCommentFavoriteExists(ctx, viewer.ID, comment.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if !exists {
		if err := a.repo.Favorites().CreateCubeCommentFavorite(ctx, viewer.ID, comment.ID); err != nil {
			a.serverError(c, err)
			return
		}
		if viewer.ID != comment.UserID {
			if err := a.repo.Histories().Create(ctx, &models.History{
				FromID:    nullID(viewer.ID),
				ToID:      nullID(comment.UserID),
				CubeID:    nullID(comment.CubeID),
				CommentID: nullID(comment.ID),
				Unread:    true,
				Type:      models.HistoryTypeCommentFavorite,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}); err != nil {
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

// CommentUnfavorite removes the caller's favorite on a cube comment
func (a *API) CommentUnfavorite(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	comment, ok := a.commentFavoriteTarget(c)
	if !ok {
		return
	}

	if err := a.repo.Favorites().DeleteCubeCommentFavorite(ctx, viewer.ID, comment.ID); err != nil {
		a.serverError(c, err)
		return
	}
	respond.Success(c)
}

type subscriptionRequest struct {
	ParentID int64  `json:"parent_id"`
	Comment  string `json:"comment"`
}

// SubscriptionCreate replies to a top-level cube comment. The reply's
// updated_at is pinned just after the parent's created_at so it sorts
// directly under it; replies to replies are rejected.
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
	parent, err := a.repo.Comments().GetTopLevelCubeComment(ctx, req.ParentID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if parent == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Parent comment is invalid.")
		return
	}

	now := time.Now().UTC()
	reply := &models.CubeComment{
		UserID:    viewer.ID,
		ParentID:  nullID(parent.ID),
		CubeID:    parent.CubeID,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: parent.CreatedAt.Add(time.Millisecond),
	}
	if err := a.repo.Comments().CreateCubeComment(ctx, reply); err != nil {
		a.serverError(c, err)
		return
	}

	if viewer.ID != parent.UserID {
		if err := a.repo.Histories().Create(ctx, &models.History{
			FromID:    nullID(viewer.ID),
			ToID:      nullID(parent.UserID),
			CubeID:    nullID(parent.CubeID),
			CommentID: nullID(parent.ID),
			Unread:    true,
			Type:      models.HistoryTypeTileFavorite,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			a.serverError(c, err)
			return
		}
		notify.Enqueue(ctx, a.queue, &queue.Task{
			Name:       queue.TaskSubscriptionNotification,
			FromUserID: viewer.ID,
			ToUserID:   parent.UserID,
		})
	}

	view := objects.CubeComment(reply)
	view["user"] = objects.User(viewer)
	respond.Data(c, gin.H{"comment": view})
}

// Search returns one page of cubes whose caption, tile description or
// tag matches the keyword, most recently updated first.
func (a *API) Search(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()
	keyword := c.Query("keyword")
	page, empty := respond.ParsePage(c)

	total, err := a.repo.Cubes().CountSearch(ctx, keyword)
	if err != nil {
		a.serverError(c, err)
		return
	}
	var found []*models.Cube
	if !empty {
		found, err = a.repo.Cubes().Search(ctx, keyword, (page-1)*pageSize, pageSize)
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

// Report acknowledges a cube report
func (a *API) Report(c *gin.Context) {
	if _, ok := a.cubeByParam(c); !ok {
		return
	}
	respond.Data(c, gin.H{"msg": "Cube reported successfully."})
}

func (a *API) cubeByParam(c *gin.Context) (*models.Cube, bool) {
	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, 3, "Cube not found.")
		return nil, false
	}
	cube, err := a.repo.Cubes().GetByID(c.Request.Context(), id)
	if err != nil {
		a.serverError(c, err)
		return nil, false
	}
	if cube == nil {
		respond.Error(c, http.StatusInternalServerError, 3, "Cube not found.")
		return nil, false
	}
	return cube, true
}

func (a *API) favoriteTarget(c *gin.Context) (*models.Cube, bool) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CubeID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Cube_id is Empty.")
		return nil, false
	}
	cube, err := a.repo.Cubes().GetByID(c.Request.Context(), req.CubeID)
	if err != nil {
		a.serverError(c, err)
		return nil, false
	}
	if cube == nil {
		respond.Error(c, http.StatusInternalServerError, 11, "Cube_id is Invalid.")
		return nil, false
	}
	return cube, true
}

func (a *API) commentFavoriteTarget(c *gin.Context) (*models.CubeComment, bool) {
	var req commentFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CommentID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "Comment_id is Empty.")
		return nil, false
	}
	comment, err := a.repo.Comments().GetCubeCommentByID(c.Request.Context(), req.CommentID)
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
