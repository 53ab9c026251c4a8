package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ashwinyue/docchat/internal/service/rag"
)

// Response 统一响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// success 成功响应 (200)
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// created 创建成功响应 (201)
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// noContent 无内容响应 (204)
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// badRequest 参数错误响应 (400)
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: -1, Message: msg})
}

// errorResponse 按错误类型选择状态码, 错误消息原样返回给前端
// 未命中记录映射 404, 知识库为空映射 400, 其余 500
func errorResponse(c *gin.Context, err error) {
	if err == nil {
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, rag.ErrEmptyKnowledgeBase):
		status = http.StatusBadRequest
	}

	c.JSON(status, Response{Code: -1, Message: err.Error()})
}
