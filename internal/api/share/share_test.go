package share

import (
	"context"
	"encoding/json"
	"html/template"
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

	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/models"
)

func newFixture(t *testing.T) (*gin.Engine, *db.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	repo := db.NewRepository(gdb)

	api := NewAPI(repo)
	engine := gin.New()
	engine.SetHTMLTemplate(pageTemplate(t))
	engine.GET("/share/:pk/", api.CubePage)
	engine.GET("/share/url/:pk/", api.URLList)
	return engine, repo
}

func pageTemplate(t *testing.T) *template.Template {
	t.Helper()
	tpl, err := template.New("index.html").Parse(`{{range .tiles}}<img src="{{.PhotoURL}}">{{end}}`)
	require.NoError(t, err)
	return tpl
}

func seedCubeWithTiles(t *testing.T, repo *db.Repository) (*models.Cube, []*models.Tile) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	user := &models.User{Email: "owner@example.com", Username: "owner", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Users().Create(ctx, user))

	cube := &models.Cube{UserID: user.ID, Type: 2, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Cubes().Create(ctx, cube))

	var tiles []*models.Tile
	for i, seq := range []int{2, 1} {
		tile := &models.Tile{
			CubeID:    cube.ID,
			Sequence:  seq,
			PhotoURL:  "https://cdn/p" + strconv.Itoa(i) + ".jpg",
			Link:      "https://example.com/" + strconv.Itoa(i),
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, repo.Tiles().Create(ctx, tile))
		tiles = append(tiles, tile)
	}
	return cube, tiles
}

func TestURLListOrderedBySequence(t *testing.T) {
	engine, repo := newFixture(t)
	cube, _ := seedCubeWithTiles(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/share/url/"+strconv.FormatInt(cube.ID, 10)+"/", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var env struct {
		Result bool `json:"result"`
		Data   struct {
			Type int `json:"type"`
			URLs []struct {
				Sequence int    `json:"sequence"`
				URL      string `json:"url"`
				Link     string `json:"link"`
			} `json:"urls"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Result)
	assert.Equal(t, 2, env.Data.Type)
	require.Len(t, env.Data.URLs, 2)
	assert.Equal(t, 1, env.Data.URLs[0].Sequence)
	assert.Equal(t, 2, env.Data.URLs[1].Sequence)
	assert.NotEmpty(t, env.Data.URLs[0].URL)
}

func TestCubePageUnknownCube(t *testing.T) {
	engine, _ := newFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/share/999/", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestCubePageRendersTiles(t *testing.T) {
	engine, repo := newFixture(t)
	cube, tiles := seedCubeWithTiles(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/share/"+strconv.FormatInt(cube.ID, 10)+"/", nil)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	for _, tile := range tiles {
		assert.Contains(t, w.Body.String(), tile.PhotoURL)
	}
}
