package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/docchat/internal/service"
	"github.com/ashwinyue/docchat/internal/service/chat"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateSession 创建会话
// POST /api/v1/sessions
func (h *ChatHandler) CreateSession(c *gin.Context) {
	// 请求体可省略, 省略时使用默认标题
	var req chat.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	session, err := h.svc.Chat.CreateSession(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, session)
}

// ListSessions 按创建时间列出会话
// GET /api/v1/sessions
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.svc.Chat.ListSessions(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, sessions)
}

// GetSession 获取会话
// GET /api/v1/sessions/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	session, err := h.svc.Chat.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, session)
}

// RenameSession 重命名会话
// PUT /api/v1/sessions/:id
func (h *ChatHandler) RenameSession(c *gin.Context) {
	var req chat.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	session, err := h.svc.Chat.RenameSession(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, session)
}

// DeleteSession 删除会话及其消息
// DELETE /api/v1/sessions/:id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.svc.Chat.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}

	noContent(c)
}

// GetMessages 按时间顺序获取会话消息
// GET /api/v1/sessions/:id/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.svc.Chat.GetMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, messages)
}

// AppendMessage 向会话追加一条消息
// POST /api/v1/sessions/:id/messages
func (h *ChatHandler) AppendMessage(c *gin.Context) {
	var req chat.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	message, err := h.svc.Chat.AppendMessage(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, message)
}

// Ask 向会话提问, 返回带引用来源的回答
// POST /api/v1/sessions/:id/ask
func (h *ChatHandler) Ask(c *gin.Context) {
	var req chat.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	message, err := h.svc.Chat.Ask(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, message)
}
