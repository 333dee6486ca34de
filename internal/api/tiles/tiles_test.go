package tiles

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
	"github.com/clout9/backend/pkg/config"
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
	api := NewAPI(repo, q, &config.ShareConfig{MediaHost: "res.cloudinary.com"})
	f := &fixture{repo: repo, queue: q}
	f.viewer = seedUser(t, repo, "viewer@example.com", "viewer")

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		respond.SetCurrentUser(c, f.viewer)
		c.Next()
	})
	engine.POST("/api/v1/tiles/create/", api.Create)
	engine.PUT("/api/v1/tiles/update/", api.Update)
	engine.GET("/api/v1/tiles/:pk/", api.Detail)
	engine.DELETE("/api/v1/tiles/:pk/", api.Delete)
	engine.GET("/api/v1/tiles/comment/:pk/", api.CommentList)
	engine.POST("/api/v1/tiles/comment/create/", api.CommentCreate)
	engine.POST("/api/v1/tiles/comment2/create/", api.SubscriptionCreate)
	engine.POST("/api/v1/tiles/favorite/", api.Favorite)
	engine.POST("/api/v1/tiles/unfavorite/", api.Unfavorite)
	engine.GET("/api/v1/tiles/search/", api.Search)
	engine.GET("/api/v1/tiles/search/tag/", api.SearchTag)
	engine.GET("/api/v1/tiles/all/", api.All)
	f.engine = engine
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
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

func seedCube(t *testing.T, repo *db.Repository, owner *models.User) *models.Cube {
	t.Helper()
	now := time.Now().UTC()
	cube := &models.Cube{
		UserID:    owner.ID,
		Type:      1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Cubes().Create(context.Background(), cube))
	return cube
}

func seedTile(t *testing.T, repo *db.Repository, cube *models.Cube, sequence int, photoURL string) *models.Tile {
	t.Helper()
	now := time.Now().UTC()
	tile := &models.Tile{
		CubeID:    cube.ID,
		Sequence:  sequence,
		PhotoURL:  photoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Tiles().Create(context.Background(), tile))
	return tile
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	cube := seedCube(t, f.repo, f.viewer)

	w, env := f.do(t, http.MethodPost, "/api/v1/tiles/create/", gin.H{"sequence": 1})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, env.ErrorCode)
	assert.Equal(t, "Cube is invalid.", env.ErrorMsg)

	w, env = f.do(t, http.MethodPost, "/api/v1/tiles/create/", gin.H{"cube_id": cube.ID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 13, env.ErrorCode)
	assert.Equal(t, "sequence is Empty.", env.ErrorMsg)
}

func TestCreateWithTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cube := seedCube(t, f.repo, f.viewer)

	w, env := f.do(t, http.MethodPost, "/api/v1/tiles/create/", gin.H{
		"cube_id":   cube.ID,
		"sequence":  1,
		"photo_url": "https://res.cloudinary.com/p1.jpg",
		"tags":      []string{"travel", "food"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Result)

	view := env.Data["tile"].(map[string]interface{})
	assert.Equal(t, float64(1), view["sequence"])
	assert.Len(t, view["tags"], 2)

	tileID := int64(view["tile_id"].(float64))
	tags, err := f.repo.Tiles().ListTagsByTile(ctx, tileID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestUpdateAppendsTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cube := seedCube(t, f.repo, f.viewer)
	tile := seedTile(t, f.repo, cube, 1, "")
	now := time.Now().UTC()
	require.NoError(t, f.repo.Tiles().CreateTag(ctx, &models.HashTag{
		TileID: tile.ID, Tag: "old", CreatedAt: now, UpdatedAt: now,
	}))

	w, env := f.do(t, http.MethodPut, "/api/v1/tiles/update/", gin.H{
		"cube_id":  cube.ID,
		"tile_id":  tile.ID,
		"sequence": 3,
		"tags":     []string{"new"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Result)

	// The response carries only the tags sent with the update
	view := env.Data["tile"].(map[string]interface{})
	assert.Len(t, view["tags"], 1)

	// Existing tags stay; the update appends
	tags, err := f.repo.Tiles().ListTagsByTile(ctx, tile.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	fresh, err := f.repo.Tiles().GetByID(ctx, tile.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Sequence)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	cube := seedCube(t, f.repo, f.viewer)
	tile := seedTile(t, f.repo, cube, 1, "")

	w, env := f.do(t, http.MethodPut, "/api/v1/tiles/update/", gin.H{
		"cube_id": cube.ID, "sequence": 1,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 11, env.ErrorCode)
	assert.Equal(t, "Tile is invalid.", env.ErrorMsg)

	w, env = f.do(t, http.MethodPut, "/api/v1/tiles/update/", gin.H{
		"cube_id": cube.ID, "tile_id": tile.ID,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 14, env.ErrorCode)
	assert.Equal(t, "sequence is Empty.", env.ErrorMsg)
}

func TestDeleteAnyTile(t *testing.T) {
	f := newFixture(t)
	other := seedUser(t, f.repo, "other@example.com", "other")
	cube := seedCube(t, f.repo, other)
	tile := seedTile(t, f.repo, cube, 1, "")

	w, env := f.do(t, http.MethodDelete, "/api/v1/tiles/"+strconv.FormatInt(tile.ID, 10)+"/", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Result)
	assert.Equal(t, "Tile deleted", env.Data["msg"])

	fresh, err := f.repo.Tiles().GetByID(context.Background(), tile.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh)
}

func TestFavoriteNotifiesCubeOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.repo, "owner@example.com", "owner")
	cube := seedCube(t, f.repo, owner)
	tile := seedTile(t, f.repo, cube, 1, "")

	for i := 0; i < 2; i++ {
		w, env := f.do(t, http.MethodPost, "/api/v1/tiles/favorite/", gin.H{"tile_id": tile.ID})
		assert.Equal(t, http.StatusCreated, w.Code)
		require.True(t, env.Result)
		view := env.Data["tile"].(map[string]interface{})
		assert.Equal(t, float64(tile.ID), view["tile_id"])
	}

	count, err := f.repo.Favorites().CountTileFavorites(ctx, tile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rows, err := f.repo.Histories().ListByTo(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.HistoryTypeTileFavorite, rows[0].Type)

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, queue.TaskTileFavoriteNotification, f.queue.tasks[0].Name)
	assert.Equal(t, owner.ID, f.queue.tasks[0].ToUserID)
}

func TestCommentListAuthorFavoriteFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	commenter := seedUser(t, f.repo, "commenter@example.com", "commenter")
	cube := seedCube(t, f.repo, f.viewer)
	tile := seedTile(t, f.repo, cube, 1, "")

	now := time.Now().UTC()
	require.NoError(t, f.repo.Comments().CreateTileComment(ctx, &models.TileComment{
		UserID:    commenter.ID,
		TileID:    tile.ID,
		Comment:   "love it",
		CreatedAt: now,
		UpdatedAt: now,
	}))
	// The comment author favorited the tile; the caller did not
	require.NoError(t, f.repo.Favorites().CreateTileFavorite(ctx, commenter.ID, tile.ID))

	_, env := f.do(t, http.MethodGet, "/api/v1/tiles/comment/"+strconv.FormatInt(tile.ID, 10)+"/", nil)
	require.True(t, env.Result)
	comments := env.Data["comments"].([]interface{})
	require.Len(t, comments, 1)
	first := comments[0].(map[string]interface{})
	assert.Equal(t, true, first["is_favorite"])
	assert.Equal(t, "commenter", first["user"].(map[string]interface{})["username"])
}

func TestCommentNotifiesCubeOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.repo, "owner@example.com", "owner")
	cube := seedCube(t, f.repo, owner)
	tile := seedTile(t, f.repo, cube, 1, "")

	w, env := f.do(t, http.MethodPost, "/api/v1/tiles/comment/create/", gin.H{
		"tile_id": tile.ID,
		"comment": "great shot",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Result)

	rows, err := f.repo.Histories().ListByTo(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.HistoryTypeTileComment, rows[0].Type)
	assert.Equal(t, tile.ID, rows[0].TileID.Int64)
	assert.Equal(t, cube.ID, rows[0].CubeID.Int64)

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, queue.TaskTileCommentNotification, f.queue.tasks[0].Name)
}

func TestSubscriptionRejectsReplyToReply(t *testing.T) {
	f := newFixture(t)
	cube := seedCube(t, f.repo, f.viewer)
	tile := seedTile(t, f.repo, cube, 1, "")

	_, env := f.do(t, http.MethodPost, "/api/v1/tiles/comment/create/", gin.H{
		"tile_id": tile.ID,
		"comment": "top level",
	})
	require.True(t, env.Result)
	parentID := int64(env.Data["comment"].(map[string]interface{})["comment_id"].(float64))

	_, env = f.do(t, http.MethodPost, "/api/v1/tiles/comment2/create/", gin.H{
		"parent_id": parentID,
		"comment":   "reply",
	})
	require.True(t, env.Result)
	replyID := int64(env.Data["comment"].(map[string]interface{})["comment_id"].(float64))

	w, env := f.do(t, http.MethodPost, "/api/v1/tiles/comment2/create/", gin.H{
		"parent_id": replyID,
		"comment":   "reply to reply",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, env.ErrorCode)
	assert.Equal(t, "Parent comment is invalid.", env.ErrorMsg)
}

func TestSearchDistinctTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cube := seedCube(t, f.repo, f.viewer)
	a := seedTile(t, f.repo, cube, 1, "")
	b := seedTile(t, f.repo, cube, 2, "")

	now := time.Now().UTC()
	for _, tag := range []struct {
		tileID int64
		name   string
	}{
		{a.ID, "travel"},
		{b.ID, "travel"},
		{b.ID, "trains"},
		{b.ID, "food"},
	} {
		require.NoError(t, f.repo.Tiles().CreateTag(ctx, &models.HashTag{
			TileID: tag.tileID, Tag: tag.name, CreatedAt: now, UpdatedAt: now,
		}))
	}

	_, env := f.do(t, http.MethodGet, "/api/v1/tiles/search/?keyword=tra", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(2), env.Data["number_of_tags"])
	assert.ElementsMatch(t, []interface{}{"trains", "travel"}, env.Data["tags"])
}

func TestSearchTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cube := seedCube(t, f.repo, f.viewer)
	tile := seedTile(t, f.repo, cube, 1, "")
	seedCube(t, f.repo, f.viewer)

	now := time.Now().UTC()
	require.NoError(t, f.repo.Tiles().CreateTag(ctx, &models.HashTag{
		TileID: tile.ID, Tag: "sunset", CreatedAt: now, UpdatedAt: now,
	}))

	// An empty keyword matches nothing
	_, env := f.do(t, http.MethodGet, "/api/v1/tiles/search/tag/", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(0), env.Data["number_of_cubes"])
	assert.Len(t, env.Data["cubes"], 0)

	_, env = f.do(t, http.MethodGet, "/api/v1/tiles/search/tag/?keyword=sun", nil)
	require.True(t, env.Result)
	assert.Equal(t, float64(1), env.Data["number_of_cubes"])
	found := env.Data["cubes"].([]interface{})
	require.Len(t, found, 1)
	assert.Equal(t, float64(cube.ID), found[0].(map[string]interface{})["cube_id"])
}

func TestAllFiltersByMediaHost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cube := seedCube(t, f.repo, f.viewer)
	hosted := seedTile(t, f.repo, cube, 1, "https://res.cloudinary.com/demo/p1.jpg")
	seedTile(t, f.repo, cube, 2, "https://elsewhere.example.com/p2.jpg")

	now := time.Now().UTC()
	require.NoError(t, f.repo.Tiles().CreateTag(ctx, &models.HashTag{
		TileID: hosted.ID, Tag: "hosted", CreatedAt: now, UpdatedAt: now,
	}))

	_, env := f.do(t, http.MethodGet, "/api/v1/tiles/all/", nil)
	require.True(t, env.Result)
	tiles := env.Data["tiles"].([]interface{})
	require.Len(t, tiles, 1)
	first := tiles[0].(map[string]interface{})
	assert.Equal(t, float64(hosted.ID), first["tile_id"])
	assert.Equal(t, float64(cube.ID), first["cube_id"])
	assert.Equal(t, float64(1), first["cube_type"])
	assert.ElementsMatch(t, []interface{}{"hosted"}, first["tags"])
}
