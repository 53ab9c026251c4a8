// Package knowledge 提供 Knowledge 服务单元测试
package knowledge

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

// mockDocumentRepo 用于测试的 mock 文档仓库
type mockDocumentRepo struct {
	docs        map[string]*model.Document
	createError error
	updateError error
	deleteError error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[string]*model.Document)}
}

func (m *mockDocumentRepo) CreateDocument(doc *model.Document) error {
	if m.createError != nil {
		return m.createError
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocumentRepo) GetDocumentByID(id string) (*model.Document, error) {
	if doc, ok := m.docs[id]; ok {
		return doc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) GetDocumentByFileName(fileName string) (*model.Document, error) {
	for _, doc := range m.docs {
		if doc.FileName == fileName {
			return doc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) ListDocuments() ([]*model.Document, error) {
	result := make([]*model.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		result = append(result, doc)
	}
	return result, nil
}

func (m *mockDocumentRepo) CountDocuments() (int64, error) {
	return int64(len(m.docs)), nil
}

func (m *mockDocumentRepo) UpdateDocument(doc *model.Document) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocumentRepo) DeleteDocument(id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	delete(m.docs, id)
	return nil
}

// mockChunkStore 用于测试的 mock 向量存储
type mockChunkStore struct {
	chunks      []vecstore.Chunk
	deleted     []string
	addError    error
	deleteError error
}

func (m *mockChunkStore) Add(ctx context.Context, chunks []vecstore.Chunk) error {
	if m.addError != nil {
		return m.addError
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	m.deleted = append(m.deleted, documentID)
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *mockChunkStore) Count(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

// newTestService 构建带 mock 依赖的服务
func newTestService(repo *mockDocumentRepo, store *mockChunkStore, embedder *mockEmbedder) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		processor: NewDocumentProcessor(embedder),
	}
}

// ========== Ingest 测试 ==========

func TestIngestTextFile(t *testing.T) {
	repo := newMockDocumentRepo()
	store := &mockChunkStore{}
	svc := newTestService(repo, store, &mockEmbedder{})

	path := writeTempFile(t, "notes.txt", "Vector stores keep chunk embeddings for retrieval.")

	doc, err := svc.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if doc.Status != model.DocumentStatusCompleted {
		t.Errorf("Status = %q, want %q", doc.Status, model.DocumentStatusCompleted)
	}
	if doc.FileName != "notes.txt" {
		t.Errorf("FileName = %q, want notes.txt", doc.FileName)
	}
	if doc.ChunkCount == 0 {
		t.Error("ChunkCount = 0, want > 0")
	}
	if doc.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", doc.ContentType)
	}

	if len(store.chunks) != doc.ChunkCount {
		t.Errorf("store has %d chunks, want %d", len(store.chunks), doc.ChunkCount)
	}
	for _, chunk := range store.chunks {
		if chunk.DocumentName != "notes.txt" {
			t.Errorf("chunk DocumentName = %q, want notes.txt", chunk.DocumentName)
		}
		if chunk.DocumentID != doc.ID {
			t.Errorf("chunk DocumentID = %q, want %q", chunk.DocumentID, doc.ID)
		}
	}

	count, _ := repo.CountDocuments()
	if count != 1 {
		t.Errorf("CountDocuments() = %d, want 1", count)
	}
}

func TestIngestReplacesExisting(t *testing.T) {
	repo := newMockDocumentRepo()
	store := &mockChunkStore{}
	svc := newTestService(repo, store, &mockEmbedder{})

	path := writeTempFile(t, "notes.txt", "First version of the content.")

	first, err := svc.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("Second version, fully replaced."), 0644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	second, err := svc.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("re-ingest created new document %s, want reuse of %s", second.ID, first.ID)
	}
	if len(store.deleted) == 0 || store.deleted[0] != first.ID {
		t.Errorf("DeleteByDocument calls = %v, want [%s]", store.deleted, first.ID)
	}

	count, _ := repo.CountDocuments()
	if count != 1 {
		t.Errorf("CountDocuments() = %d, want 1 after re-ingest", count)
	}

	// 旧向量被清除, 只剩第二次的块
	for _, chunk := range store.chunks {
		if !strings.Contains(chunk.Content, "Second version") {
			t.Errorf("stale chunk content after re-ingest: %q", chunk.Content)
		}
	}
}

func TestIngestUnsupportedType(t *testing.T) {
	repo := newMockDocumentRepo()
	svc := newTestService(repo, &mockChunkStore{}, &mockEmbedder{})

	path := writeTempFile(t, "binary.exe", "MZ")

	if _, err := svc.Ingest(context.Background(), path); err == nil {
		t.Fatal("Ingest() with unsupported type expected error, got nil")
	}

	count, _ := repo.CountDocuments()
	if count != 0 {
		t.Errorf("CountDocuments() = %d, want 0", count)
	}
}

func TestIngestEmbedderFailureMarksFailed(t *testing.T) {
	repo := newMockDocumentRepo()
	store := &mockChunkStore{}
	embedder := &mockEmbedder{embedStringsError: errors.New("api unreachable")}
	svc := newTestService(repo, store, embedder)

	path := writeTempFile(t, "notes.txt", "content that cannot be embedded")

	_, err := svc.Ingest(context.Background(), path)
	if err == nil {
		t.Fatal("Ingest() with failing embedder expected error, got nil")
	}

	doc, getErr := repo.GetDocumentByFileName("notes.txt")
	if getErr != nil {
		t.Fatalf("document record missing after failure: %v", getErr)
	}
	if doc.Status != model.DocumentStatusFailed {
		t.Errorf("Status = %q, want %q", doc.Status, model.DocumentStatusFailed)
	}
	if doc.ErrorMsg == "" {
		t.Error("ErrorMsg is empty, want failure reason")
	}
	if len(store.chunks) != 0 {
		t.Errorf("store has %d chunks after failure, want 0", len(store.chunks))
	}
}

func TestIngestDir(t *testing.T) {
	repo := newMockDocumentRepo()
	store := &mockChunkStore{}
	svc := newTestService(repo, store, &mockEmbedder{})

	dir := t.TempDir()
	files := map[string]string{
		"a.txt":      "first document content",
		"b.md":       "second document content",
		"ignore.png": "binary noise",
	}
	for name, content := range files {
		if err := os.WriteFile(dir+"/"+name, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(dir+"/subdir", 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	count, err := svc.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestDir() error = %v", err)
	}
	if count != 2 {
		t.Errorf("IngestDir() = %d, want 2", count)
	}

	docs, _ := repo.CountDocuments()
	if docs != 2 {
		t.Errorf("CountDocuments() = %d, want 2", docs)
	}
}

// ========== 删除与统计测试 ==========

func TestDeleteDocument(t *testing.T) {
	repo := newMockDocumentRepo()
	store := &mockChunkStore{}
	svc := newTestService(repo, store, &mockEmbedder{})

	path := writeTempFile(t, "notes.txt", "content to delete later")

	doc, err := svc.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if err := svc.DeleteDocument(context.Background(), doc.ID); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	if _, err := repo.GetDocumentByID(doc.ID); err == nil {
		t.Error("document record still present after delete")
	}
	if len(store.chunks) != 0 {
		t.Errorf("store has %d chunks after delete, want 0", len(store.chunks))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still on disk after delete: %v", err)
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	svc := newTestService(newMockDocumentRepo(), &mockChunkStore{}, &mockEmbedder{})

	if err := svc.DeleteDocument(context.Background(), "no-such-id"); err == nil {
		t.Error("DeleteDocument() for unknown id expected error, got nil")
	}
}

func TestGetStats(t *testing.T) {
	repo := newMockDocumentRepo()
	store := &mockChunkStore{}
	svc := newTestService(repo, store, &mockEmbedder{})

	path := writeTempFile(t, "notes.txt", "stats fixture content")
	if _, err := svc.Ingest(context.Background(), path); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Documents != 1 {
		t.Errorf("Documents = %d, want 1", stats.Documents)
	}
	if stats.Chunks != len(store.chunks) {
		t.Errorf("Chunks = %d, want %d", stats.Chunks, len(store.chunks))
	}
}
