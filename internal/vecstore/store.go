// Package vecstore 提供基于 SQLite 的本地向量存储
// 余弦相似度暴力检索, 适合单机知识库规模
package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNoChunks 向量库为空时检索返回的错误
var ErrNoChunks = errors.New("vector store is empty")

// Chunk 向量库中的一个文本块
type Chunk struct {
	ID           string
	DocumentID   string
	DocumentName string
	Page         int // 从 1 开始, 无分页的文档为 0
	ChunkIndex   int
	Content      string
	Embedding    []float64
}

// Match 检索命中结果
type Match struct {
	Chunk Chunk
	Score float64
}

// Store 向量存储
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// New 创建向量存储, 目录不存在时自动创建
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "./data/vectors"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector dir: %w", err)
	}

	path := filepath.Join(dir, "chunks.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init vector schema: %w", err)
	}
	return store, nil
}

// initSchema 创建数据表
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		document_name TEXT NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add 写入文本块, 主键冲突时覆盖
func (s *Store) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, document_id, document_name, page, chunk_index, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has empty embedding", chunk.ID)
		}
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			chunk.ID,
			chunk.DocumentID,
			chunk.DocumentName,
			chunk.Page,
			chunk.ChunkIndex,
			chunk.Content,
			embeddingJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// Search 返回与查询向量最相似的 topK 个块
// 向量库为空时返回 ErrNoChunks
func (s *Store) Search(ctx context.Context, embedding []float64, topK int) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if topK <= 0 {
		topK = 4
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, document_name, page, chunk_index, content, embedding
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var chunk Chunk
		var embeddingJSON []byte

		err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.DocumentName,
			&chunk.Page, &chunk.ChunkIndex, &chunk.Content, &embeddingJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
			// 跳过损坏的向量
			continue
		}

		matches = append(matches, Match{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	if len(matches) == 0 {
		return nil, ErrNoChunks
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByDocument 删除文档的全部块
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	return err
}

// Clear 清空向量库
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// Count 返回块总数
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// CountByDocument 返回指定文档的块数
func (s *Store) CountByDocument(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ?", documentID).Scan(&count)
	return count, err
}

// DocumentStat 向量库中单个文档的块统计
type DocumentStat struct {
	DocumentID   string
	DocumentName string
	Chunks       int
}

// Documents 按文档聚合块统计, 按文件名排序
func (s *Store) Documents(ctx context.Context) ([]DocumentStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, document_name, COUNT(*)
		FROM chunks
		GROUP BY document_id, document_name
		ORDER BY document_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query document stats: %w", err)
	}
	defer rows.Close()

	var stats []DocumentStat
	for rows.Next() {
		var stat DocumentStat
		if err := rows.Scan(&stat.DocumentID, &stat.DocumentName, &stat.Chunks); err != nil {
			return nil, fmt.Errorf("failed to scan document stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// cosineSimilarity 计算余弦相似度, 维度不一致或零向量时返回 0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
