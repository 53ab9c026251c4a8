package handler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/service"
)

// KnowledgeHandler 知识库处理器
type KnowledgeHandler struct {
	svc *service.Services
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(svc *service.Services) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// UploadResult 单个文件的上传结果
type UploadResult struct {
	FileName string          `json:"file_name"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Document *model.Document `json:"document,omitempty"`
}

// UploadDocuments 上传并摄取文档, 一次请求可携带多个文件
// POST /api/v1/documents
func (h *KnowledgeHandler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		badRequest(c, "no files uploaded")
		return
	}

	uploadDir := h.svc.Config.Ingest.UploadDir
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		errorResponse(c, err)
		return
	}

	// 逐个摄取, 单个文件失败不影响其余文件
	results := make([]UploadResult, 0, len(files))
	for _, fileHeader := range files {
		name := filepath.Base(fileHeader.Filename)
		dst := filepath.Join(uploadDir, name)

		if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
			results = append(results, UploadResult{
				FileName: name,
				Status:   model.DocumentStatusFailed,
				Error:    fmt.Sprintf("failed to save file: %v", err),
			})
			continue
		}

		doc, err := h.svc.Knowledge.Ingest(c.Request.Context(), dst)
		if err != nil {
			results = append(results, UploadResult{
				FileName: name,
				Status:   model.DocumentStatusFailed,
				Error:    err.Error(),
			})
			continue
		}

		results = append(results, UploadResult{
			FileName: name,
			Status:   doc.Status,
			Document: doc,
		})
	}

	created(c, results)
}

// ListDocuments 列出知识库文档
// GET /api/v1/documents
func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.Knowledge.ListDocuments(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, docs)
}

// GetDocument 获取文档
// GET /api/v1/documents/:id
func (h *KnowledgeHandler) GetDocument(c *gin.Context) {
	doc, err := h.svc.Knowledge.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, doc)
}

// DeleteDocument 删除文档及其向量
// DELETE /api/v1/documents/:id
func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	if err := h.svc.Knowledge.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}

	noContent(c)
}
