package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tronobserver/internal/handlers"
)

func registerLookupRoutes(r *gin.RouterGroup, handler *handlers.LookupHandler) {
	if r == nil || handler == nil {
		return
	}

	tron := r.Group("/tron")
	{
		tron.POST("/account_info", handler.AccountInfo)
		tron.GET("/records_info", handler.Records)
	}
}
