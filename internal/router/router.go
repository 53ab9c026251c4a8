// Package router 提供路由注册
package router

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/docchat/internal/handler"
	"github.com/ashwinyue/docchat/internal/middleware"
	"github.com/ashwinyue/docchat/internal/web"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// 内嵌聊天界面
	staticContent, _ := fs.Sub(web.Assets, "static")
	r.StaticFS("/static", http.FS(staticContent))
	indexPage, _ := web.Assets.ReadFile("static/index.html")
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Session 会话
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.Chat.CreateSession)
			sessions.GET("", h.Chat.ListSessions)
			sessions.GET("/:id", h.Chat.GetSession)
			sessions.PUT("/:id", h.Chat.RenameSession)
			sessions.DELETE("/:id", h.Chat.DeleteSession)
			sessions.GET("/:id/messages", h.Chat.GetMessages)
			sessions.POST("/:id/messages", h.Chat.AppendMessage)
			sessions.POST("/:id/ask", h.Chat.Ask)
		}

		// Document 文档
		docs := v1.Group("/documents")
		{
			docs.POST("", h.Knowledge.UploadDocuments)
			docs.GET("", h.Knowledge.ListDocuments)
			docs.GET("/:id", h.Knowledge.GetDocument)
			docs.DELETE("/:id", h.Knowledge.DeleteDocument)
		}

		// Stats 统计
		v1.GET("/stats", h.System.Stats)
	}

	return r
}
