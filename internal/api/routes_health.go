package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tronobserver/internal/app"
	"github.com/charlesng35/tronobserver/internal/handlers"
	"github.com/charlesng35/tronobserver/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) error {
	if !cfg.Monitoring.Health.Enabled || manager == nil {
		for _, router := range []gin.IRouter{r, r.Group("/api")} {
			router.GET("/health", handlers.HealthDisabled)
			router.GET("/health/live", handlers.HealthDisabled)
			router.GET("/health/ready", handlers.HealthDisabled)
		}
		return nil
	}

	handler, err := handlers.NewHealthHandler(manager)
	if err != nil {
		return err
	}

	registerHealthEndpoints(r, handler)
	registerHealthEndpoints(r.Group("/api"), handler)
	return nil
}

func registerHealthEndpoints(router gin.IRouter, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Summary)
	router.GET("/health/live", handler.Live)
	router.GET("/health/ready", handler.Ready)
}
