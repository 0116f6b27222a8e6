package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ping handles GET /api/ping
func Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
