package match

import (
	"github.com/gin-gonic/gin"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/server"
)

// Registrar ties the match service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts the match routes on the router.
func (r *Registrar) Register(engine *gin.Engine, auth *server.AuthMiddleware) {
	service := NewService(r.appCtx)

	matches := engine.Group("/matches", auth.RequireUser())
	matches.POST("", service.PostMatch)
	matches.GET("/liked-you", service.GetLikedYou)
	matches.GET("/liked-you/new", service.GetNewLikedYou)
	matches.GET("/liked-you/count", service.GetLikedYouCount)
}
