package vecstore

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// 检索结果元数据键
const (
	MetaDocumentID   = "document_id"
	MetaDocumentName = "document_name"
	MetaPage         = "page"
	MetaChunkIndex   = "chunk_index"
)

// Retriever 将 Store 适配为 eino 检索器
type Retriever struct {
	store    *Store
	embedder embedding.Embedder
	topK     int
}

// 确保实现了 eino 检索器接口
var _ retriever.Retriever = (*Retriever)(nil)

// NewRetriever 创建检索器
func NewRetriever(store *Store, embedder embedding.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
	}
}

// Retrieve 实现 retriever.Retriever 接口
// 构建时的 TopK 为默认值, 可被 retriever.WithTopK 覆盖
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &r.topK}, opts...)

	vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	matches, err := r.store.Search(ctx, vectors[0], *options.TopK)
	if err != nil {
		// ErrNoChunks 通过 %w 保留给上层判断
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]*schema.Document, 0, len(matches))
	for _, m := range matches {
		doc := &schema.Document{
			ID:      m.Chunk.ID,
			Content: m.Chunk.Content,
			MetaData: map[string]any{
				MetaDocumentID:   m.Chunk.DocumentID,
				MetaDocumentName: m.Chunk.DocumentName,
				MetaPage:         m.Chunk.Page,
				MetaChunkIndex:   m.Chunk.ChunkIndex,
			},
		}
		docs = append(docs, doc.WithScore(m.Score))
	}
	return docs, nil
}
