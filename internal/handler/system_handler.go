package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/docchat/internal/database"
	"github.com/ashwinyue/docchat/internal/service"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
	db  *database.DB
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services, db *database.DB) *SystemHandler {
	return &SystemHandler{svc: svc, db: db}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, Response{Code: -1, Message: "database unavailable: " + err.Error()})
		return
	}

	success(c, gin.H{
		"status":  "ok",
		"name":    h.svc.Config.App.Name,
		"version": h.svc.Config.App.Version,
	})
}

// Stats 系统统计
// GET /api/v1/stats
func (h *SystemHandler) Stats(c *gin.Context) {
	chatStats, err := h.svc.Chat.GetStats(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	knowledgeStats, err := h.svc.Knowledge.GetStats(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"sessions":  chatStats.Sessions,
		"messages":  chatStats.Messages,
		"documents": knowledgeStats.Documents,
		"chunks":    knowledgeStats.Chunks,
	})
}
