package queue

// Task names understood by the worker. One task is enqueued per social
// event; the worker maps the name to a push template or an email send.
const (
	TaskFollowNotification          = "follow_notification"
	TaskCubeCommentNotification     = "cube_comment_notification"
	TaskCubeFavoriteNotification    = "cube_favorite_notification"
	TaskCommentFavoriteNotification = "comment_favorite_notification"
	TaskSubscriptionNotification    = "subscription_notification"
	TaskTileCommentNotification     = "tile_comment_notification"
	TaskTileFavoriteNotification    = "tile_favorite_notification"
	TaskSendEmail                   = "send_email"
)

// Task is one unit of asynchronous delivery work. FromUserID and
// ToUserID carry the actor and recipient for push tasks; Token and
// Email are set only on send_email tasks.
type Task struct {
	Name       string `json:"name"`
	FromUserID int64  `json:"from_user_id,omitempty"`
	ToUserID   int64  `json:"to_user_id,omitempty"`
	Token      int    `json:"token,omitempty"`
	Email      string `json:"email,omitempty"`
}
