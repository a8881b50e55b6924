package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a feature's endpoints under the /api group
type RouteRegistrar interface {
	RegisterRoutes(group *gin.RouterGroup)
}

type API struct {
	router   *gin.RouterGroup
	ping     func(ctx context.Context) error
	metrics  http.Handler
	features []RouteRegistrar
}

func New(router *gin.RouterGroup, ping func(ctx context.Context) error, metrics http.Handler, features ...RouteRegistrar) API {
	return API{
		router:   router,
		ping:     ping,
		metrics:  metrics,
		features: features,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.router.GET("/metrics", gin.WrapH(a.metrics))

	apiGroup := a.router.Group("/api")
	for _, f := range a.features {
		f.RegisterRoutes(apiGroup)
	}
}

// Health reports ok when the database answers
func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		if err := a.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
