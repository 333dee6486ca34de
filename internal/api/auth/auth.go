package auth

import (
	"database/sql"
	"errors"
	"math/rand"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clout9/backend/internal/api/respond"
	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/models"
	"github.com/clout9/backend/internal/notify"
	"github.com/clout9/backend/internal/queue"
	"github.com/clout9/backend/internal/social"
	"github.com/clout9/backend/pkg/logging"
)

var emailRe = regexp.MustCompile(`^[_aA-zZ0-9-]+(\.[_aA-zZ0-9-]+)*@[aA-zZ0-9-]+(\.[aA-zZ0-9-]+)*(\.[aA-zZ]{2,4})$`)

// API handles account lifecycle endpoints
type API struct {
	repo   *db.Repository
	queue  queue.Queue
	social *social.Client
	logger *zap.Logger
}

// NewAPI creates the auth API
func NewAPI(repo *db.Repository, q queue.Queue, socialClient *social.Client) *API {
	return &API{
		repo:   repo,
		queue:  q,
		social: socialClient,
		logger: logging.WithComponent("auth-api"),
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 11, "Email is invalid or already taken.")
		return
	}

	if req.Email == "" || !emailRe.MatchString(req.Email) {
		respond.Error(c, http.StatusInternalServerError, 11, "Email is invalid or already taken.")
		return
	}
	existing, err := a.repo.Users().GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if existing != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Duplicate Email.")
		return
	}
	if req.Username == "" {
		respond.Error(c, http.StatusInternalServerError, 12, "Username is invalid.")
		return
	}
	if len(req.Password) < 6 {
		respond.Error(c, http.StatusInternalServerError, 13, "Password must have at least 6 characters.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.serverError(c, err)
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:     req.Email,
		Username:  req.Username,
		Password:  sql.NullString{String: string(hash), Valid: true},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.Users().Create(c.Request.Context(), user); err != nil {
		a.serverError(c, err)
		return
	}

	respond.Success(c)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password and returns a token
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "email is required.")
		return
	}
	if req.Email == "" {
		respond.Error(c, http.StatusInternalServerError, 10, "email is required.")
		return
	}

	user, err := a.repo.Users().GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil || !user.Password.Valid {
		respond.Error(c, http.StatusInternalServerError, 11, "Unable to login with provided credentials.")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password.String), []byte(req.Password)) != nil {
		respond.Error(c, http.StatusInternalServerError, 11, "Unable to login with provided credentials.")
		return
	}
	if !user.IsActive {
		respond.Error(c, http.StatusInternalServerError, 12, "User account is disabled.")
		return
	}

	a.tokenResponse(c, user)
}

type socialLoginRequest struct {
	AccessToken string `json:"access_token"`
	Provider    string `json:"provider"`
}

// SocialLogin authenticates through Google, Facebook or Apple, creating
// the account on first login.
func (a *API) SocialLogin(c *gin.Context) {
	var req socialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Access Token is invalid.")
		return
	}
	if req.AccessToken == "" {
		respond.Error(c, http.StatusInternalServerError, 10, "Access Token is invalid.")
		return
	}

	ctx := c.Request.Context()
	var info *social.UserInfo
	var err error
	switch req.Provider {
	case "google":
		info, err = a.social.GoogleUserInfo(ctx, req.AccessToken)
	case "facebook":
		info, err = a.social.FacebookUserInfo(ctx, req.AccessToken)
	case "apple":
		info, err = a.social.AppleUserInfo(ctx, req.AccessToken)
	default:
		respond.Error(c, http.StatusInternalServerError, 11, "Google or Facebook login is supported.")
		return
	}
	if err != nil {
		var provErr *social.Error
		if errors.As(err, &provErr) {
			respond.Error(c, http.StatusInternalServerError, provErr.Code, provErr.Message)
			return
		}
		a.serverError(c, err)
		return
	}

	var user *models.User
	if req.Provider == "apple" {
		user, err = a.repo.Users().GetByAppleID(ctx, info.UID)
	} else {
		user, err = a.repo.Users().GetByEmail(ctx, info.Email)
	}
	if err != nil {
		a.serverError(c, err)
		return
	}

	if user == nil {
		now := time.Now().UTC()
		user = &models.User{
			Email:     info.Email,
			Username:  info.Name,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.Provider == "apple" {
			user.AppleID = sql.NullString{String: info.UID, Valid: true}
		} else {
			user.EmailConfirmed = true
		}
		if err := a.repo.Users().Create(ctx, user); err != nil {
			a.serverError(c, err)
			return
		}
	}

	if !user.IsActive {
		respond.Error(c, http.StatusInternalServerError, 13, "User account is disabled.")
		return
	}

	a.tokenResponse(c, user)
}

// Logout removes the caller's devices and token
func (a *API) Logout(c *gin.Context) {
	user := respond.CurrentUser(c)
	ctx := c.Request.Context()

	if err := a.repo.Devices().DeleteByUser(ctx, user.ID); err != nil {
		a.serverError(c, err)
		return
	}
	if err := a.repo.Tokens().DeleteByUser(ctx, user.ID); err != nil {
		a.serverError(c, err)
		return
	}

	respond.Success(c)
}

type forgotRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a four digit reset code and emails it
func (a *API) ForgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Email is required.")
		return
	}
	if req.Email == "" {
		respond.Error(c, http.StatusInternalServerError, 10, "Email is required.")
		return
	}

	ctx := c.Request.Context()
	user, err := a.repo.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil {
		respond.Error(c, http.StatusNotFound, 11, "Can't find Email")
		return
	}
	if !user.IsActive {
		respond.Error(c, http.StatusNotFound, 10, "User isn't active status.")
		return
	}

	token := rand.Intn(9000) + 1000
	user.PasswordResetToken = sql.NullInt64{Int64: int64(token), Valid: true}
	user.PasswordResetSentAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	user.PasswordResetState = models.ResetStateIssued
	if err := a.repo.Users().Update(ctx, user); err != nil {
		a.serverError(c, err)
		return
	}

	notify.Enqueue(ctx, a.queue, &queue.Task{
		Name:  queue.TaskSendEmail,
		Token: token,
		Email: user.Email,
	})

	respond.Success(c)
}

type confirmRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// ConfirmToken validates a reset code against its ten minute window
func (a *API) ConfirmToken(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Email is required.")
		return
	}
	if req.Email == "" {
		respond.Error(c, http.StatusInternalServerError, 10, "Email is required.")
		return
	}
	token, ok := parseDigits(req.Token)
	if !ok {
		respond.Error(c, http.StatusInternalServerError, 11, "Token is invalid.")
		return
	}

	ctx := c.Request.Context()
	user, err := a.repo.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil || !user.PasswordResetToken.Valid || user.PasswordResetToken.Int64 != int64(token) ||
		user.PasswordResetState != models.ResetStateIssued {
		respond.Error(c, http.StatusInternalServerError, 11, "Token is invalid.")
		return
	}
	if !user.IsActive {
		respond.Error(c, http.StatusInternalServerError, 12, "User account is disabled.")
		return
	}
	if !user.PasswordResetSentAt.Valid ||
		time.Now().UTC().Sub(user.PasswordResetSentAt.Time) > models.ResetTokenTTL {
		respond.Error(c, http.StatusInternalServerError, 13, "Reset Token has been expired.")
		return
	}

	user.PasswordResetState = models.ResetStateConfirmed
	if err := a.repo.Users().Update(ctx, user); err != nil {
		a.serverError(c, err)
		return
	}

	respond.Success(c)
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword sets a new password for a confirmed reset code
func (a *API) ResetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 10, "Token is invalid.")
		return
	}
	token, ok := parseDigits(req.Token)
	if !ok {
		respond.Error(c, http.StatusInternalServerError, 10, "Token is invalid.")
		return
	}
	if len(req.Password) < 6 {
		respond.Error(c, http.StatusInternalServerError, 11, "Password must have at least 6 characters.")
		return
	}

	ctx := c.Request.Context()
	user, err := a.repo.Users().GetByResetToken(ctx, token)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if user == nil || user.PasswordResetState != models.ResetStateConfirmed {
		respond.Error(c, http.StatusInternalServerError, 10, "Token is invalid.")
		return
	}
	if !user.IsActive {
		respond.Error(c, http.StatusInternalServerError, 12, "User account is disabled.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.serverError(c, err)
		return
	}
	user.Password = sql.NullString{String: string(hash), Valid: true}
	user.PasswordResetToken = sql.NullInt64{}
	user.PasswordResetSentAt = sql.NullTime{}
	user.PasswordResetState = models.ResetStateConsumed
	if err := a.repo.Users().Update(ctx, user); err != nil {
		a.serverError(c, err)
		return
	}

	respond.Success(c)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the caller's password. Accounts created
// through social login have no password and skip the current password
// check.
func (a *API) ChangePassword(c *gin.Context) {
	user := respond.CurrentUser(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusInternalServerError, 11, "Password must have at least 6 characters.")
		return
	}
	if len(req.NewPassword) < 6 {
		respond.Error(c, http.StatusInternalServerError, 11, "Password must have at least 6 characters.")
		return
	}
	if user.Password.Valid {
		if bcrypt.CompareHashAndPassword([]byte(user.Password.String), []byte(req.CurrentPassword)) != nil {
			respond.Error(c, http.StatusInternalServerError, 10, "Current_password is incorrect.")
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		a.serverError(c, err)
		return
	}
	user.Password = sql.NullString{String: string(hash), Valid: true}
	if err := a.repo.Users().Update(c.Request.Context(), user); err != nil {
		a.serverError(c, err)
		return
	}

	respond.SuccessStatus(c, http.StatusOK)
}

func (a *API) tokenResponse(c *gin.Context, user *models.User) {
	token, err := a.repo.Tokens().GetOrCreate(c.Request.Context(), user.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	respond.Data(c, gin.H{
		"token": token.Key,
		"user": gin.H{
			"user_id":  user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
	})
}

func (a *API) serverError(c *gin.Context, err error) {
	a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	respond.Error(c, http.StatusInternalServerError, 0, "internal error")
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
