// Package knowledge 提供文档摄取与知识库管理服务
// 直接使用 eino/eino-ext 组件，避免冗余封装
package knowledge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/cloudwego/eino-ext/components/document/parser/html"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

// 分块与向量化参数
const (
	chunkSize      = 1000
	chunkOverlap   = 200
	embedBatchSize = 10
)

// DocumentProcessor 文档处理器, 解析 -> 分块 -> 向量化
type DocumentProcessor struct {
	embedder embedding.Embedder
}

// NewDocumentProcessor 创建文档处理器
func NewDocumentProcessor(embedder embedding.Embedder) *DocumentProcessor {
	return &DocumentProcessor{embedder: embedder}
}

// ProcessResult 处理结果
type ProcessResult struct {
	Pages    int
	Chunks   []vecstore.Chunk
	Duration time.Duration
}

// Process 处理文档的完整流程
func (p *DocumentProcessor) Process(ctx context.Context, doc *model.Document) (*ProcessResult, error) {
	startTime := time.Now()

	pages, err := p.parseDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no content parsed from %s", doc.FileName)
	}

	chunks, err := p.splitPages(ctx, doc, pages)
	if err != nil {
		return nil, fmt.Errorf("failed to split document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %s", doc.FileName)
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	return &ProcessResult{
		Pages:    len(pages),
		Chunks:   chunks,
		Duration: time.Since(startTime),
	}, nil
}

// parseDocument 解析文档, PDF 按页返回
func (p *DocumentProcessor) parseDocument(ctx context.Context, doc *model.Document) ([]*schema.Document, error) {
	if doc.FilePath == "" {
		return nil, fmt.Errorf("file path is empty")
	}

	fileParser, err := p.newParser(ctx, doc.FilePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	docs, err := fileParser.Parse(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("parser failed: %w", err)
	}
	return docs, nil
}

// newParser 按扩展名创建解析器
func (p *DocumentProcessor) newParser(ctx context.Context, filePath string) (einoparser.Parser, error) {
	switch FileExt(filePath) {
	case ".pdf":
		// 按页解析, 页码进入引用元数据
		return pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	case ".docx":
		return docx.NewDocxParser(ctx, &docx.Config{
			ToSections:      false,
			IncludeComments: false,
			IncludeHeaders:  true,
			IncludeFooters:  false,
			IncludeTables:   true,
		})
	case ".html", ".htm":
		// 使用 body 选择器提取正文内容
		bodySelector := "body"
		return html.NewParser(ctx, &html.Config{
			Selector: &bodySelector,
		})
	case ".txt", ".md":
		return &textParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", FileExt(filePath))
	}
}

// textParser 纯文本解析器
type textParser struct{}

func (p *textParser) Parse(_ context.Context, reader io.Reader, opts ...einoparser.Option) ([]*schema.Document, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}

	text := string(content)
	if text == "" {
		return []*schema.Document{}, nil
	}

	return []*schema.Document{
		{
			Content:  text,
			MetaData: make(map[string]any),
		},
	}, nil
}

// splitPages 逐页分块, 块记录所属页码
// PDF 的页码从 1 开始, 其他格式为 0
func (p *DocumentProcessor) splitPages(ctx context.Context, doc *model.Document, pages []*schema.Document) ([]vecstore.Chunk, error) {
	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: chunkOverlap,
		Separators:  []string{"\n\n", "\n", ". ", "。", "? ", "？", "! ", "！", ", ", "，", " ", ""},
		KeepType:    recursive.KeepTypeNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	isPDF := FileExt(doc.FileName) == ".pdf"

	var chunks []vecstore.Chunk
	chunkIndex := 0
	for i, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}

		splitDocs, err := splitter.Transform(ctx, []*schema.Document{page})
		if err != nil {
			return nil, fmt.Errorf("splitter failed on page %d: %w", i+1, err)
		}

		pageNum := 0
		if isPDF {
			pageNum = i + 1
		}

		for _, splitDoc := range splitDocs {
			if strings.TrimSpace(splitDoc.Content) == "" {
				continue
			}
			chunks = append(chunks, vecstore.Chunk{
				ID:           uuid.New().String(),
				DocumentID:   doc.ID,
				DocumentName: doc.FileName,
				Page:         pageNum,
				ChunkIndex:   chunkIndex,
				Content:      splitDoc.Content,
			})
			chunkIndex++
		}
	}

	return chunks, nil
}

// embedChunks 分批向量化文档块, 向量写回块
func (p *DocumentProcessor) embedChunks(ctx context.Context, chunks []vecstore.Chunk) error {
	if p.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := p.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed strings failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("vector count mismatch: expected %d, got %d", len(batch), len(vectors))
		}

		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
	}

	return nil
}

// FileExt 返回小写文件扩展名
func FileExt(filePath string) string {
	return strings.ToLower(filepath.Ext(filePath))
}

// SupportedFile 检查文件类型是否可摄取
func SupportedFile(filePath string) bool {
	switch FileExt(filePath) {
	case ".pdf", ".docx", ".html", ".htm", ".txt", ".md":
		return true
	}
	return false
}

// ContentTypeOf 返回扩展名对应的 MIME 类型
func ContentTypeOf(filePath string) string {
	switch FileExt(filePath) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".html", ".htm":
		return "text/html"
	case ".md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
