package notify

import "github.com/clout9/backend/internal/queue"

// pushTemplate holds the title and body suffix for one event kind
type pushTemplate struct {
	title string
	body  string
}

// Push message wording is fixed per event kind; only the actor's
// username varies. The wording matches what the mobile clients expect.
var pushTemplates = map[string]pushTemplate{
	queue.TaskFollowNotification:          {title: "Following", body: " followed You"},
	queue.TaskTileCommentNotification:     {title: "Tile Comment", body: " commented Your Tile"},
	queue.TaskTileFavoriteNotification:    {title: "Tile Favorite", body: " favorite Your Tile"},
	queue.TaskCubeCommentNotification:     {title: "Cube Comment", body: " commented Your Cube"},
	queue.TaskCubeFavoriteNotification:    {title: "Cube Favorite", body: " favorite Your Cube"},
	queue.TaskCommentFavoriteNotification: {title: "Comment Favorite", body: " favorite Your comment"},
	queue.TaskSubscriptionNotification:    {title: "Comment", body: " commented Your comment"},
}

// PushMessage returns the push title and body for a task name and actor
// username. ok is false for task names with no push template.
func PushMessage(taskName, username string) (title, body string, ok bool) {
	tpl, ok := pushTemplates[taskName]
	if !ok {
		return "", "", false
	}
	return tpl.title, username + tpl.body, true
}
