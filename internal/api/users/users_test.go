package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clout9/backend/internal/api/respond"
	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/models"
	"github.com/clout9/backend/internal/queue"
)

type fakeQueue struct {
	tasks []*queue.Task
}

func (q *fakeQueue) Enqueue(_ context.Context, task *queue.Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) Dequeue(context.Context, time.Duration) (*queue.Task, error) {
	return nil, queue.ErrEmpty
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) Health(context.Context) error { return nil }

type envelope struct {
	Result    bool                   `json:"result"`
	ErrorCode int                    `json:"errorCode"`
	ErrorMsg  string                 `json:"errorMsg"`
	Data      map[string]interface{} `json:"data"`
}

type fixture struct {
	engine *gin.Engine
	repo   *db.Repository
	queue  *fakeQueue
	viewer *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	repo := db.NewRepository(gdb)

	q := &fakeQueue{}
	api := NewAPI(repo, q)
	f := &fixture{repo: repo, queue: q}
	f.viewer = seedUser(t, repo, "viewer@example.com", "viewer")

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		respond.SetCurrentUser(c, f.viewer)
		c.Next()
	})
	engine.GET("/api/v1/users/:pk/", api.Detail)
	engine.GET("/api/v1/users/fcm/", api.FCMToken)
	engine.POST("/api/v1/users/following/", api.Follow)
	engine.POST("/api/v1/users/unfollowing/", api.Unfollow)
	engine.GET("/api/v1/users/followers/:pk/", api.Followers)
	engine.GET("/api/v1/users/search/", api.Search)
	engine.GET("/api/v1/users/notification_count/", api.NotificationCount)
	engine.GET("/api/v1/users/notification/", api.NotificationList)
	engine.GET("/api/v1/users/notification/:pk/", api.NotificationDetail)
	f.engine = engine
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func seedUser(t *testing.T, repo *db.Repository, email, username string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Users().Create(context.Background(), user))
	return user
}

func TestFollowYourself(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodPost, "/api/v1/users/following/", gin.H{"user_id": f.viewer.ID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, env.ErrorCode)
	assert.Equal(t, "You can't follow yourself", env.ErrorMsg)
}

func TestFollowIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := seedUser(t, f.repo, "other@example.com", "other")

	for i := 0; i < 2; i++ {
		w, env := f.do(t, http.MethodPost, "/api/v1/users/following/", gin.H{"user_id": other.ID})
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Result)
	}

	exists, err := f.repo.Follows().Exists(ctx, f.viewer.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	followers, err := f.repo.Follows().CountFollowers(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)

	// One notification and one push task, not two
	unread, err := f.repo.Histories().CountUnread(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, queue.TaskFollowNotification, f.queue.tasks[0].Name)
	assert.Equal(t, f.viewer.ID, f.queue.tasks[0].FromUserID)
	assert.Equal(t, other.ID, f.queue.tasks[0].ToUserID)
}

func TestUnfollowMissingEdge(t *testing.T) {
	f := newFixture(t)
	other := seedUser(t, f.repo, "other@example.com", "other")

	w, env := f.do(t, http.MethodPost, "/api/v1/users/unfollowing/", gin.H{"user_id": other.ID})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)
}

func TestFollowUnknownUser(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodPost, "/api/v1/users/following/", gin.H{"user_id": 999})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, env.ErrorCode)
	assert.Equal(t, "User is invalid.", env.ErrorMsg)
}

func TestDetailSelfAndOther(t *testing.T) {
	f := newFixture(t)
	other := seedUser(t, f.repo, "other@example.com", "other")

	_, env := f.do(t, http.MethodGet, "/api/v1/users/"+strconv.FormatInt(f.viewer.ID, 10)+"/", nil)
	require.True(t, env.Result)
	self := env.Data["user"].(map[string]interface{})
	assert.Equal(t, "viewer@example.com", self["email"])
	_, hasFollow := self["is_follow"]
	assert.False(t, hasFollow)

	_, env = f.do(t, http.MethodGet, "/api/v1/users/"+strconv.FormatInt(other.ID, 10)+"/", nil)
	require.True(t, env.Result)
	view := env.Data["user"].(map[string]interface{})
	assert.Equal(t, false, view["is_follow"])
	_, hasEmail := view["email"]
	assert.False(t, hasEmail)
}

func TestSearchPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		seedUser(t, f.repo, "match"+strconv.Itoa(i)+"@example.com", "match"+strconv.Itoa(i))
	}

	_, env := f.do(t, http.MethodGet, "/api/v1/users/search/?keyword=match", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(12), env.Data["number_of_users"])
	assert.Len(t, env.Data["users"], 10)

	_, env = f.do(t, http.MethodGet, "/api/v1/users/search/?keyword=match&page=2", nil)
	require.True(t, env.Result)
	assert.Len(t, env.Data["users"], 2)

	// Pages past the end are empty, not an error
	_, env = f.do(t, http.MethodGet, "/api/v1/users/search/?keyword=match&page=9", nil)
	require.True(t, env.Result)
	assert.Len(t, env.Data["users"], 0)

	// So are pages below one; the total is still reported
	_, env = f.do(t, http.MethodGet, "/api/v1/users/search/?keyword=match&page=0", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(12), env.Data["number_of_users"])
	assert.Len(t, env.Data["users"], 0)
}

func TestNotificationReadFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := seedUser(t, f.repo, "other@example.com", "other")

	row := &models.History{
		FromID:    nullID(other.ID),
		ToID:      nullID(f.viewer.ID),
		Unread:    true,
		Type:      models.HistoryTypeFollow,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.repo.Histories().Create(ctx, row))

	_, env := f.do(t, http.MethodGet, "/api/v1/users/notification_count/", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(1), env.Data["number_of_notification"])

	_, env = f.do(t, http.MethodGet, "/api/v1/users/notification/", nil)
	require.True(t, env.Result)
	rows := env.Data["notifications"].([]interface{})
	require.Len(t, rows, 1)
	first := rows[0].(map[string]interface{})
	assert.Equal(t, true, first["new_notification"])
	assert.Equal(t, "other", first["user"].(map[string]interface{})["username"])

	// Opening the notification flips it to read
	_, env = f.do(t, http.MethodGet, "/api/v1/users/notification/"+strconv.FormatInt(row.ID, 10)+"/", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(0), env.Data["number_of_notification"])

	fresh, err := f.repo.Histories().GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Unread)
}

func TestNotificationNotFound(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodGet, "/api/v1/users/notification/999/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, env.ErrorCode)
	assert.Equal(t, "Notification not found.", env.ErrorMsg)
}

func TestFCMTokenToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, env := f.do(t, http.MethodGet, "/api/v1/users/fcm/?registration_id=reg-1", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)

	devices, err := f.repo.Devices().ListByUser(ctx, f.viewer.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "reg-1", devices[0].RegistrationID)

	// Same registration id again removes the device
	w, env = f.do(t, http.MethodGet, "/api/v1/users/fcm/?registration_id=reg-1", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)

	devices, err = f.repo.Devices().ListByUser(ctx, f.viewer.ID)
	require.NoError(t, err)
	assert.Len(t, devices, 0)
}
