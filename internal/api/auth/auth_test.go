package auth

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

func newTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return db.NewRepository(gdb)
}

func newTestAPI(t *testing.T) (*gin.Engine, *API, *fakeQueue, *db.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := newTestRepo(t)
	q := &fakeQueue{}
	api := NewAPI(repo, q, nil)

	engine := gin.New()
	engine.POST("/api/v1/register/", api.Register)
	engine.POST("/api/v1/login/", api.Login)
	engine.POST("/api/v1/forgot-password/", api.ForgotPassword)
	engine.POST("/api/v1/confirm-token/", api.ConfirmToken)
	engine.POST("/api/v1/reset-password/", api.ResetPassword)
	return engine, api, q, repo
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func seedUser(t *testing.T, repo *db.Repository, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	user := &models.User{
		Email:     email,
		Username:  "seeded",
		Password:  sql.NullString{String: string(hash), Valid: true},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Users().Create(context.Background(), user))
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	engine, _, _, repo := newTestAPI(t)

	w, env := postJSON(t, engine, "/api/v1/register/", gin.H{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)

	user, err := repo.Users().GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.Password.Valid)
	assert.NotEqual(t, "secret1", user.Password.String)

	w, env = postJSON(t, engine, "/api/v1/login/", gin.H{
		"email":    "alice@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Result)
	assert.NotEmpty(t, env.Data["token"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _, _, repo := newTestAPI(t)
	seedUser(t, repo, "taken@example.com", "secret1")

	w, env := postJSON(t, engine, "/api/v1/register/", gin.H{
		"email":    "taken@example.com",
		"username": "bob",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Result)
	assert.Equal(t, 10, env.ErrorCode)
	assert.Equal(t, "Duplicate Email.", env.ErrorMsg)
}

func TestRegisterValidation(t *testing.T) {
	engine, _, _, _ := newTestAPI(t)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{"bad email", gin.H{"email": "not-an-email", "username": "x", "password": "secret1"}, 11},
		{"missing username", gin.H{"email": "a@b.com", "username": "", "password": "secret1"}, 12},
		{"short password", gin.H{"email": "a@b.com", "username": "x", "password": "abc"}, 13},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, env := postJSON(t, engine, "/api/v1/register/", tc.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tc.code, env.ErrorCode)
		})
	}
}

func TestLoginBadCredentials(t *testing.T) {
	engine, _, _, repo := newTestAPI(t)
	seedUser(t, repo, "carol@example.com", "secret1")

	w, env := postJSON(t, engine, "/api/v1/login/", gin.H{
		"email":    "carol@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 11, env.ErrorCode)
	assert.Equal(t, "Unable to login with provided credentials.", env.ErrorMsg)

	w, env = postJSON(t, engine, "/api/v1/login/", gin.H{
		"email":    "nobody@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 11, env.ErrorCode)
}

func TestLoginDisabledAccount(t *testing.T) {
	engine, _, _, repo := newTestAPI(t)
	user := seedUser(t, repo, "dan@example.com", "secret1")
	user.IsActive = false
	require.NoError(t, repo.Users().Update(context.Background(), user))

	w, env := postJSON(t, engine, "/api/v1/login/", gin.H{
		"email":    "dan@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 12, env.ErrorCode)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	engine, _, _, _ := newTestAPI(t)

	w, env := postJSON(t, engine, "/api/v1/forgot-password/", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 11, env.ErrorCode)
	assert.Equal(t, "Can't find Email", env.ErrorMsg)
}

func TestPasswordResetFlow(t *testing.T) {
	engine, _, q, repo := newTestAPI(t)
	ctx := context.Background()
	seedUser(t, repo, "erin@example.com", "oldpass")

	w, env := postJSON(t, engine, "/api/v1/forgot-password/", gin.H{"email": "erin@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, queue.TaskSendEmail, q.tasks[0].Name)
	assert.Equal(t, "erin@example.com", q.tasks[0].Email)
	assert.GreaterOrEqual(t, q.tasks[0].Token, 1000)
	assert.LessOrEqual(t, q.tasks[0].Token, 9999)

	user, err := repo.Users().GetByEmail(ctx, "erin@example.com")
	require.NoError(t, err)
	require.True(t, user.PasswordResetToken.Valid)
	token := strconv.FormatInt(user.PasswordResetToken.Int64, 10)

	// The code must be confirmed before a new password is accepted
	w, env = postJSON(t, engine, "/api/v1/reset-password/", gin.H{
		"token":    token,
		"password": "newpass",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, env.ErrorCode)

	w, env = postJSON(t, engine, "/api/v1/confirm-token/", gin.H{
		"email": "erin@example.com",
		"token": "0",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 11, env.ErrorCode)

	w, env = postJSON(t, engine, "/api/v1/confirm-token/", gin.H{
		"email": "erin@example.com",
		"token": token,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)

	// A confirmed code cannot be confirmed a second time
	w, env = postJSON(t, engine, "/api/v1/confirm-token/", gin.H{
		"email": "erin@example.com",
		"token": token,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 11, env.ErrorCode)

	w, env = postJSON(t, engine, "/api/v1/reset-password/", gin.H{
		"token":    token,
		"password": "abc",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 11, env.ErrorCode)

	w, env = postJSON(t, engine, "/api/v1/reset-password/", gin.H{
		"token":    token,
		"password": "newpass",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)

	user, err = repo.Users().GetByEmail(ctx, "erin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ResetStateConsumed, user.PasswordResetState)
	assert.False(t, user.PasswordResetToken.Valid)

	w, env = postJSON(t, engine, "/api/v1/login/", gin.H{
		"email":    "erin@example.com",
		"password": "newpass",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Result)
}

func TestConfirmTokenExpired(t *testing.T) {
	engine, _, _, repo := newTestAPI(t)
	ctx := context.Background()
	user := seedUser(t, repo, "fred@example.com", "secret1")

	user.PasswordResetToken = sql.NullInt64{Int64: 4321, Valid: true}
	user.PasswordResetSentAt = sql.NullTime{Time: time.Now().UTC().Add(-11 * time.Minute), Valid: true}
	user.PasswordResetState = models.ResetStateIssued
	require.NoError(t, repo.Users().Update(ctx, user))

	w, env := postJSON(t, engine, "/api/v1/confirm-token/", gin.H{
		"email": "fred@example.com",
		"token": "4321",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 13, env.ErrorCode)
	assert.Equal(t, "Reset Token has been expired.", env.ErrorMsg)
}

func TestChangePassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newTestRepo(t)
	api := NewAPI(repo, &fakeQueue{}, nil)
	user := seedUser(t, repo, "gail@example.com", "oldpass")

	engine := gin.New()
	engine.POST("/api/v1/change-password/", func(c *gin.Context) {
		respond.SetCurrentUser(c, user)
		api.ChangePassword(c)
	})

	w, env := postJSON(t, engine, "/api/v1/change-password/", gin.H{
		"current_password": "wrong",
		"new_password":     "newpass",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 10, env.ErrorCode)
	assert.Equal(t, "Current_password is incorrect.", env.ErrorMsg)

	w, env = postJSON(t, engine, "/api/v1/change-password/", gin.H{
		"current_password": "oldpass",
		"new_password":     "newpass",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Result)

	fresh, err := repo.Users().GetByEmail(context.Background(), "gail@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(fresh.Password.String), []byte("newpass")))
}
