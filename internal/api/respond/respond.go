package respond

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clout9/backend/internal/models"
)

// userKey is the context key the auth middleware stores the caller under
const userKey = "current_user"

// Success writes the bare success envelope
func Success(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"result": true})
}

// SuccessStatus writes the bare success envelope with a specific status
func SuccessStatus(c *gin.Context, status int) {
	c.JSON(status, gin.H{"result": true})
}

// Data writes a success envelope carrying a payload
func Data(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"result": true, "data": data})
}

// Error writes a failure envelope. Codes are scoped per endpoint, not
// global.
func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"result": false, "errorCode": code, "errorMsg": msg})
}

// ParsePage reads the page query parameter. Anything non-numeric or
// missing counts as page one. Numeric values below one name a page the
// paginator cannot serve; empty reports that so callers return an
// empty page.
func ParsePage(c *gin.Context) (page int, empty bool) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1, false
	}
	if page < 1 {
		return 0, true
	}
	return page, false
}

// SetCurrentUser stores the authenticated caller on the request context
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the authenticated caller, or nil on
// unauthenticated routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
