package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/repository"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

// DocumentRepo 文档仓库接口，便于测试
// 未命中时返回 gorm.ErrRecordNotFound
type DocumentRepo interface {
	CreateDocument(doc *model.Document) error
	GetDocumentByID(id string) (*model.Document, error)
	GetDocumentByFileName(fileName string) (*model.Document, error)
	ListDocuments() ([]*model.Document, error)
	CountDocuments() (int64, error)
	UpdateDocument(doc *model.Document) error
	DeleteDocument(id string) error
}

// ChunkStore 向量块存储接口，便于测试
type ChunkStore interface {
	Add(ctx context.Context, chunks []vecstore.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	Count(ctx context.Context) (int, error)
}

var (
	_ DocumentRepo = (*repository.KnowledgeRepository)(nil)
	_ ChunkStore   = (*vecstore.Store)(nil)
)

// Service 知识库服务
type Service struct {
	repo      DocumentRepo
	store     ChunkStore
	processor *DocumentProcessor
}

// NewService 创建知识库服务
func NewService(repos *repository.Repositories, store ChunkStore, embedder embedding.Embedder) *Service {
	return &Service{
		repo:      repos.Knowledge,
		store:     store,
		processor: NewDocumentProcessor(embedder),
	}
}

// Ingest 摄取单个文件: 解析、分块、向量化并写入向量库
// 同名文件重新摄取时先清理旧向量, 文档记录复用
func (s *Service) Ingest(ctx context.Context, filePath string) (*model.Document, error) {
	if !SupportedFile(filePath) {
		return nil, fmt.Errorf("unsupported file type: %s", FileExt(filePath))
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	fileName := filepath.Base(filePath)

	doc, err := s.repo.GetDocumentByFileName(fileName)
	switch {
	case err == nil:
		if err := s.store.DeleteByDocument(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("failed to clear previous chunks: %w", err)
		}
		doc.FilePath = filePath
		doc.FileSize = info.Size()
		doc.Status = model.DocumentStatusProcessing
		doc.ErrorMsg = ""
		if err := s.repo.UpdateDocument(doc); err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = &model.Document{
			ID:          uuid.New().String(),
			FileName:    fileName,
			Title:       strings.TrimSuffix(fileName, filepath.Ext(fileName)),
			ContentType: ContentTypeOf(fileName),
			FilePath:    filePath,
			FileSize:    info.Size(),
			Status:      model.DocumentStatusProcessing,
		}
		if err := s.repo.CreateDocument(doc); err != nil {
			return nil, fmt.Errorf("failed to create document: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	result, err := s.processor.Process(ctx, doc)
	if err != nil {
		s.markFailed(doc, err)
		return nil, err
	}

	if err := s.store.Add(ctx, result.Chunks); err != nil {
		err = fmt.Errorf("failed to store chunks: %w", err)
		s.markFailed(doc, err)
		return nil, err
	}

	doc.Status = model.DocumentStatusCompleted
	doc.PageCount = result.Pages
	doc.ChunkCount = len(result.Chunks)
	doc.ErrorMsg = ""
	if err := s.repo.UpdateDocument(doc); err != nil {
		log.Printf("Warning: failed to update document status: %v", err)
	}

	log.Printf("Ingested %s: %d pages, %d chunks in %v",
		doc.FileName, result.Pages, len(result.Chunks), result.Duration)
	return doc, nil
}

// IngestDir 摄取目录中所有受支持的文件, 返回成功数量
// 单个文件失败不中断其余文件
func (s *Service) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read dir %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !SupportedFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, err := s.Ingest(ctx, path); err != nil {
			log.Printf("Warning: failed to ingest %s: %v", path, err)
			continue
		}
		count++
	}
	return count, nil
}

// GetDocument 获取文档
func (s *Service) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	return s.repo.GetDocumentByID(id)
}

// ListDocuments 列出全部文档
func (s *Service) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	return s.repo.ListDocuments()
}

// DeleteDocument 删除文档记录、向量块与落盘文件
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.repo.GetDocumentByID(id)
	if err != nil {
		return fmt.Errorf("document not found: %w", err)
	}

	if err := s.store.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.repo.DeleteDocument(id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove file %s: %v", doc.FilePath, err)
		}
	}
	return nil
}

// Stats 知识库统计
type Stats struct {
	Documents int64 `json:"documents"`
	Chunks    int   `json:"chunks"`
}

// GetStats 返回文档与向量块数量
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	docs, err := s.repo.CountDocuments()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	chunks, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	return &Stats{Documents: docs, Chunks: chunks}, nil
}

// markFailed 将文档标记为失败并记录原因
func (s *Service) markFailed(doc *model.Document, cause error) {
	doc.Status = model.DocumentStatusFailed
	doc.ErrorMsg = cause.Error()
	if err := s.repo.UpdateDocument(doc); err != nil {
		log.Printf("Warning: failed to mark document %s failed: %v", doc.ID, err)
	}
}
