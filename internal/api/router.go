package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clout9/backend/internal/api/auth"
	"github.com/clout9/backend/internal/api/cubes"
	"github.com/clout9/backend/internal/api/share"
	"github.com/clout9/backend/internal/api/tiles"
	"github.com/clout9/backend/internal/api/users"
	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/queue"
	"github.com/clout9/backend/internal/social"
	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/logging"
)

// Router sets up API routes
type Router struct {
	db     *db.DB
	repo   *db.Repository
	queue  queue.Queue
	auth   *auth.API
	users  *users.API
	cubes  *cubes.API
	tiles  *tiles.API
	share  *share.API
	logger *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, q queue.Queue, socialClient *social.Client, cfg *config.Config) *Router {
	repo := db.NewRepository(database.DB)
	return &Router{
		db:     database,
		repo:   repo,
		queue:  q,
		auth:   auth.NewAPI(repo, q, socialClient),
		users:  users.NewAPI(repo, q),
		cubes:  cubes.NewAPI(repo, q),
		tiles:  tiles.NewAPI(repo, q, &cfg.Share),
		share:  share.NewAPI(repo),
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/api/v1")

	// Account endpoints open to unauthenticated callers
	v1.POST("/login/", r.auth.Login)
	v1.POST("/register/", r.auth.Register)
	v1.POST("/social-login/", r.auth.SocialLogin)
	v1.POST("/forgot-password/", r.auth.ForgotPassword)
	v1.POST("/confirm-token/", r.auth.ConfirmToken)
	v1.POST("/reset-password/", r.auth.ResetPassword)

	// The tile audit feed and the share pages carry no credentials
	v1.GET("/tiles/all/", r.tiles.All)
	engine.GET("/share/:pk/", r.share.CubePage)
	engine.GET("/share/url/:pk/", r.share.URLList)

	authed := v1.Group("", TokenAuth(r.repo))
	authed.POST("/change-password/", r.auth.ChangePassword)
	authed.POST("/logout/", r.auth.Logout)

	u := authed.Group("/users")
	u.GET("/:pk/", r.users.Detail)
	u.GET("/fcm/", r.users.FCMToken)
	u.POST("/edit/", r.users.Edit)
	u.POST("/following/", r.users.Follow)
	u.POST("/unfollowing/", r.users.Unfollow)
	u.GET("/followers/:pk/", r.users.Followers)
	u.GET("/following/:pk/", r.users.Following)
	u.GET("/search/", r.users.Search)
	u.GET("/notification_count/", r.users.NotificationCount)
	u.GET("/notification/", r.users.NotificationList)
	u.GET("/notification/:pk/", r.users.NotificationDetail)
	u.GET("/report/:pk/", r.users.Report)
	u.POST("/remove-me/", r.users.RemoveMe)

	cb := authed.Group("/cubes")
	cb.GET("/", r.cubes.List)
	cb.GET("/:pk/", r.cubes.Detail)
	cb.DELETE("/:pk/", r.cubes.Delete)
	cb.GET("/discover/", r.cubes.Discover)
	cb.GET("/following/", r.cubes.FollowingFeed)
	cb.GET("/all/", r.cubes.All)
	cb.POST("/favorite/", r.cubes.Favorite)
	cb.POST("/unfavorite/", r.cubes.Unfavorite)
	cb.POST("/create/", r.cubes.Create)
	cb.PUT("/update/", r.cubes.Update)
	cb.GET("/comment/:pk/", r.cubes.CommentList)
	cb.POST("/comment/create/", r.cubes.CommentCreate)
	cb.POST("/comment/favorite/", r.cubes.CommentFavorite)
	cb.POST("/comment/unfavorite/", r.cubes.CommentUnfavorite)
	cb.POST("/comment2/create/", r.cubes.SubscriptionCreate)
	cb.GET("/search/", r.cubes.Search)
	cb.GET("/report/:pk/", r.cubes.Report)

	tl := authed.Group("/tiles")
	tl.POST("/create/", r.tiles.Create)
	tl.PUT("/update/", r.tiles.Update)
	tl.GET("/:pk/", r.tiles.Detail)
	tl.DELETE("/:pk/", r.tiles.Delete)
	tl.GET("/comment/:pk/", r.tiles.CommentList)
	tl.POST("/favorite/", r.tiles.Favorite)
	tl.POST("/unfavorite/", r.tiles.Unfavorite)
	tl.POST("/comment/create/", r.tiles.CommentCreate)
	tl.POST("/comment/favorite/", r.tiles.CommentFavorite)
	tl.POST("/comment/unfavorite/", r.tiles.CommentUnfavorite)
	tl.POST("/comment2/create/", r.tiles.SubscriptionCreate)
	tl.GET("/search/", r.tiles.Search)
	tl.GET("/search/tag/", r.tiles.SearchTag)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "clout9-api",
	})
}
