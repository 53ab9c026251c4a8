// Package handler 提供 HTTP 接口层
package handler

import (
	"github.com/ashwinyue/docchat/internal/database"
	"github.com/ashwinyue/docchat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat      *ChatHandler
	Knowledge *KnowledgeHandler
	System    *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, db *database.DB) *Handlers {
	return &Handlers{
		Chat:      NewChatHandler(svc),
		Knowledge: NewKnowledgeHandler(svc),
		System:    NewSystemHandler(svc, db),
	}
}
