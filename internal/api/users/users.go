package users

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

const searchPageSize = 10

// API handles user profile, follow graph and notification endpoints
type API struct {
	repo   *db.Repository
	queue  queue.Queue
	logger *zap.Logger
}

// NewAPI creates the users API
func NewAPI(repo *db.Repository, q queue.Queue) *API {
	return &API{
		repo:   repo,
		queue:  q,
		logger: logging.WithComponent("users-api"),
	}
}

// Detail returns a user profile. The caller's own profile includes the
// email; other profiles include the follow state instead.
func (a *API) Detail(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	userID, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil || userID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "User_id is required.")
		return
	}
	user, err := a.repo.Users().GetByID(ctx, userID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil {
		respond.Error(c, http.StatusInternalServerError, 11, "User not found.")
		return
	}

	cubes, err := a.repo.Cubes().CountByUser(ctx, user.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	followers, err := a.repo.Follows().CountFollowers(ctx, user.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	following, err := a.repo.Follows().CountFollowing(ctx, user.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	view := objects.User(user)
	view["overview"] = nullable(user.Overview.Valid, user.Overview.String)
	view["location"] = nullable(user.Location.Valid, user.Location.String)
	view["number_of_cubes"] = cubes
	view["number_of_followers"] = followers
	view["number_of_following"] = following

	if user.ID == viewer.ID {
		view["email"] = user.Email
	} else {
		isFollow, err := a.repo.Follows().Exists(ctx, viewer.ID, user.ID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		view["is_follow"] = isFollow
	}

	respond.Data(c, gin.H{"user": view})
}

type editRequest struct {
	Username string `json:"username"`
	Overview string `json:"overview"`
	Location string `json:"location"`
	Avatar   string `json:"avatar"`
}

// Edit replaces the caller's profile fields
func (a *API) Edit(c *gin.Context) {
	user := respond.CurrentUser(c)

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.serverError(c, err)
		return
	}

	user.Username = req.Username
	user.Overview = nullStr(req.Overview)
	user.Location = nullStr(req.Location)
	user.Avatar = nullStr(req.Avatar)
	if err := a.repo.Users().Update(c.Request.Context(), user); err != nil {
		a.serverError(c, err)
		return
	}

	view := objects.User(user)
	view["email"] = user.Email
	view["overview"] = nullable(user.Overview.Valid, user.Overview.String)
	view["location"] = nullable(user.Location.Valid, user.Location.String)
	respond.Data(c, gin.H{"user": view})
}

type followRequest struct {
	UserID int64 `json:"user_id"`
}

// Follow creates a follow edge towards another user. Following someone
// twice is a no-op; following yourself is rejected.
func (a *API) Follow(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	target, ok := a.followTarget(c)
	if !ok {
		return
	}
	if target.ID == viewer.ID {
		respond.Error(c, http.StatusInternalServerError, 1, "You can't follow yourself")
		return
	}

	exists, err := a.repo.Follows().Exists(ctx, viewer.ID, target.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if !exists {
		if err := a.repo.Follows().Create(ctx, viewer.ID, target.ID); err != nil {
			a.serverError(c, err)
			return
		}
		if err := a.repo.Histories().Create(ctx, &models.History{
			FromID:    nullID(viewer.ID),
			ToID:      nullID(target.ID),
			Unread:    true,
			Type:      models.HistoryTypeFollow,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			a.serverError(c, err)
			return
		}
		notify.Enqueue(ctx, a.queue, &queue.Task{
			Name:       queue.TaskFollowNotification,
			FromUserID: viewer.ID,
			ToUserID:   target.ID,
		})
	}

	respond.Data(c, gin.H{"follower": viewer.ID, "followed": target.ID})
}

// Unfollow removes a follow edge; removing a missing edge is a no-op
func (a *API) Unfollow(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	target, ok := a.followTarget(c)
	if !ok {
		return
	}
	if target.ID == viewer.ID {
		respond.Error(c, http.StatusInternalServerError, 1, "You can't unfollow yourself")
		return
	}

	if err := a.repo.Follows().Delete(ctx, viewer.ID, target.ID); err != nil {
		a.serverError(c, err)
		return
	}

	respond.Data(c, gin.H{"unfollower": viewer.ID, "unfollowed": target.ID})
}

// Followers lists the users following pk
func (a *API) Followers(c *gin.Context) {
	a.followList(c, func(ctx *gin.Context, userID int64) ([]*models.User, error) {
		return a.repo.Follows().ListFollowers(ctx.Request.Context(), userID)
	})
}

// Following lists the users pk follows
func (a *API) Following(c *gin.Context) {
	a.followList(c, func(ctx *gin.Context, userID int64) ([]*models.User, error) {
		return a.repo.Follows().ListFollowing(ctx.Request.Context(), userID)
	})
}

func (a *API) followList(c *gin.Context, list func(*gin.Context, int64) ([]*models.User, error)) {
	userID, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil || userID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "User_id is required.")
		return
	}
	user, err := a.repo.Users().GetByID(c.Request.Context(), userID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil {
		respond.Error(c, http.StatusInternalServerError, 11, "User not found.")
		return
	}

	found, err := list(c, user.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	views := make([]objects.M, 0, len(found))
	for _, u := range found {
		cubes, err := a.repo.Cubes().CountByUser(c.Request.Context(), u.ID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		view := objects.User(u)
		view["number_of_cubes"] = cubes
		views = append(views, view)
	}

	respond.Data(c, gin.H{"users": views})
}

// Search lists users whose username matches the keyword
func (a *API) Search(c *gin.Context) {
	ctx := c.Request.Context()
	keyword := c.Query("keyword")
	page, empty := respond.ParsePage(c)

	total, err := a.repo.Users().CountSearch(ctx, keyword)
	if err != nil {
		a.serverError(c, err)
		return
	}
	var found []*models.User
	if !empty {
		found, err = a.repo.Users().Search(ctx, keyword, (page-1)*searchPageSize, searchPageSize)
		if err != nil {
			a.serverError(c, err)
			return
		}
	}

	views := make([]objects.M, 0, len(found))
	for _, u := range found {
		cubes, err := a.repo.Cubes().CountByUser(ctx, u.ID)
		if err != nil {
			a.serverError(c, err)
			return
		}
		view := objects.User(u)
		view["number_of_cubes"] = cubes
		views = append(views, view)
	}

	respond.Data(c, gin.H{"number_of_users": total, "users": views})
}

// NotificationList lists the caller's notification history, newest
// first.
func (a *API) NotificationList(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	rows, err := a.repo.Histories().ListByTo(ctx, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	views := make([]objects.M, 0, len(rows))
	for _, row := range rows {
		view := objects.Notification(row)
		if row.FromID.Valid {
			from, err := a.repo.Users().GetByID(ctx, row.FromID.Int64)
			if err != nil {
				a.serverError(c, err)
				return
			}
			if from != nil {
				view["user"] = objects.User(from)
			}
		}
		views = append(views, view)
	}

	respond.Data(c, gin.H{"notifications": views})
}

// NotificationCount returns the caller's unread notification count
func (a *API) NotificationCount(c *gin.Context) {
	viewer := respond.CurrentUser(c)

	count, err := a.repo.Histories().CountUnread(c.Request.Context(), viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	respond.Data(c, gin.H{"number_of_notification": count})
}

// NotificationDetail marks one notification as read and returns the
// remaining unread count.
func (a *API) NotificationDetail(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Notification not found.")
		return
	}
	row, err := a.repo.Histories().GetByID(ctx, id)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if row == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Notification not found.")
		return
	}

	row.Unread = false
	if err := a.repo.Histories().Update(ctx, row); err != nil {
		a.serverError(c, err)
		return
	}

	count, err := a.repo.Histories().CountUnread(ctx, viewer.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}

	respond.Data(c, gin.H{"number_of_notification": count})
}

// Report acknowledges a user report
func (a *API) Report(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, 3, "User not found.")
		return
	}
	user, err := a.repo.Users().GetByID(c.Request.Context(), id)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil {
		respond.Error(c, http.StatusInternalServerError, 3, "User not found.")
		return
	}

	respond.Data(c, gin.H{"msg": "User reported successfully."})
}

// FCMToken toggles a push device registration: a known registration id
// is removed, an unknown one is registered to the caller.
func (a *API) FCMToken(c *gin.Context) {
	viewer := respond.CurrentUser(c)
	ctx := c.Request.Context()
	registrationID := c.Query("registration_id")

	exists, err := a.repo.Devices().ExistsByRegistrationID(ctx, registrationID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if exists {
		if err := a.repo.Devices().DeleteByRegistrationID(ctx, registrationID); err != nil {
			a.serverError(c, err)
			return
		}
	} else {
		device := &models.Device{
			UserID:         viewer.ID,
			RegistrationID: registrationID,
			CreatedAt:      time.Now().UTC(),
		}
		if err := a.repo.Devices().Create(ctx, device); err != nil {
			a.serverError(c, err)
			return
		}
	}

	respond.Success(c)
}

// RemoveMe deletes the caller's account; dependent rows cascade
func (a *API) RemoveMe(c *gin.Context) {
	viewer := respond.CurrentUser(c)

	if err := a.repo.Users().Delete(c.Request.Context(), viewer); err != nil {
		a.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": true, "msg": "removed me successfully."})
}

func (a *API) followTarget(c *gin.Context) (*models.User, bool) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		respond.Error(c, http.StatusInternalServerError, 10, "User is invalid.")
		return nil, false
	}
	user, err := a.repo.Users().GetByID(c.Request.Context(), req.UserID)
	if err != nil {
		a.serverError(c, err)
		return nil, false
	}
	if user == nil {
		respond.Error(c, http.StatusInternalServerError, 10, "User is invalid.")
		return nil, false
	}
	return user, true
}

func (a *API) serverError(c *gin.Context, err error) {
	a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	respond.Error(c, http.StatusInternalServerError, 0, "internal error")
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: true}
}

func nullable(valid bool, s string) interface{} {
	if valid {
		return s
	}
	return nil
}
