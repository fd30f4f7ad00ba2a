package integrity

import (
	"github.com/gin-gonic/gin"

	"github.com/veloradating/matchsvc/internal/app"
	"github.com/veloradating/matchsvc/internal/server"
)

// Registrar ties the integrity service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the integrity service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts the operator routes on the router.
func (r *Registrar) Register(engine *gin.Engine, auth *server.AuthMiddleware) {
	service := NewService(r.appCtx)

	admin := engine.Group("/admin/data-integrity", auth.RequireAdmin())
	admin.GET("/matches", service.GetScan)
	admin.POST("/matches", service.PostFix)
}
