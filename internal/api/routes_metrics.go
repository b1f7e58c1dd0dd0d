package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/tronobserver/internal/app"
)

func registerMetricsRoute(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	r.GET(metricsEndpoint(cfg), gin.WrapH(promhttp.Handler()))
}
