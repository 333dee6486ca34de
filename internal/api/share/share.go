// Package share serves the public, unauthenticated cube share pages
// linked from outside the mobile apps.
package share

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clout9/backend/internal/api/respond"
	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/pkg/logging"
)

// API handles the share endpoints
type API struct {
	repo   *db.Repository
	logger *zap.Logger
}

// NewAPI creates the share API
func NewAPI(repo *db.Repository) *API {
	return &API{
		repo:   repo,
		logger: logging.WithComponent("share-api"),
	}
}

// CubePage renders a cube's tiles as a standalone HTML page
func (a *API) CubePage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, nil)
		return
	}
	cube, err := a.repo.Cubes().GetByID(ctx, id)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if cube == nil {
		c.JSON(http.StatusInternalServerError, nil)
		return
	}

	tiles, err := a.repo.Tiles().ListByCube(ctx, cube.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"tiles": tiles})
}

// URLList returns a cube's media URLs in display order, for clients
// that build their own share rendering.
func (a *API) URLList(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("pk"), 10, 64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, nil)
		return
	}
	cube, err := a.repo.Cubes().GetByID(ctx, id)
	if err != nil {
		a.serverError(c, err)
		return
	}
	if cube == nil {
		c.JSON(http.StatusInternalServerError, nil)
		return
	}

	tiles, err := a.repo.Tiles().ListByCube(ctx, cube.ID)
	if err != nil {
		a.serverError(c, err)
		return
	}
	urls := make([]gin.H, 0, len(tiles))
	for _, tile := range tiles {
		urls = append(urls, gin.H{
			"sequence": tile.Sequence,
			"url":      tile.PhotoURL,
			"link":     tile.Link,
		})
	}

	respond.Data(c, gin.H{"type": cube.Type, "urls": urls})
}

func (a *API) serverError(c *gin.Context, err error) {
	a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	respond.Error(c, http.StatusInternalServerError, 0, "internal error")
}
