package vecstore

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
)

// mockEmbedder 用于测试的 mock embedder
type mockEmbedder struct {
	vector            []float64
	embedStringsError error
}

func (m *mockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if m.embedStringsError != nil {
		return nil, m.embedStringsError
	}
	result := make([][]float64, len(texts))
	for i := range result {
		result[i] = m.vector
	}
	return result, nil
}

func TestRetrieverReturnsDocuments(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store)

	embedder := &mockEmbedder{vector: []float64{1, 0, 0}}
	r := NewRetriever(store, embedder, 2)

	docs, err := r.Retrieve(context.Background(), "alpha content")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Retrieve() returned %d docs, want 2", len(docs))
	}

	top := docs[0]
	if top.ID != "c-1" {
		t.Errorf("docs[0].ID = %s, want c-1", top.ID)
	}
	if top.Content != "alpha first" {
		t.Errorf("docs[0].Content = %q, want %q", top.Content, "alpha first")
	}
	if top.Score() <= 0 {
		t.Errorf("docs[0].Score() = %f, want > 0", top.Score())
	}

	if name, ok := top.MetaData[MetaDocumentName].(string); !ok || name != "alpha.pdf" {
		t.Errorf("MetaData[%s] = %v, want alpha.pdf", MetaDocumentName, top.MetaData[MetaDocumentName])
	}
	if page, ok := top.MetaData[MetaPage].(int); !ok || page != 1 {
		t.Errorf("MetaData[%s] = %v, want 1", MetaPage, top.MetaData[MetaPage])
	}
	if id, ok := top.MetaData[MetaDocumentID].(string); !ok || id != "doc-1" {
		t.Errorf("MetaData[%s] = %v, want doc-1", MetaDocumentID, top.MetaData[MetaDocumentID])
	}
}

func TestRetrieverEmptyStore(t *testing.T) {
	store := newTestStore(t)

	embedder := &mockEmbedder{vector: []float64{1, 0, 0}}
	r := NewRetriever(store, embedder, 4)

	_, err := r.Retrieve(context.Background(), "anything")
	if err == nil {
		t.Fatal("Retrieve() on empty store expected error, got nil")
	}
	if !errors.Is(err, ErrNoChunks) {
		t.Errorf("Retrieve() error = %v, want ErrNoChunks", err)
	}
}

func TestRetrieverEmbedError(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store)

	embedder := &mockEmbedder{embedStringsError: errors.New("api unreachable")}
	r := NewRetriever(store, embedder, 4)

	_, err := r.Retrieve(context.Background(), "anything")
	if err == nil {
		t.Fatal("Retrieve() with failing embedder expected error, got nil")
	}
}

func TestRetrieverDefaultTopK(t *testing.T) {
	store := newTestStore(t)
	embedder := &mockEmbedder{vector: []float64{1, 0, 0}}

	r := NewRetriever(store, embedder, 0)
	if r.topK != 4 {
		t.Errorf("topK = %d, want default 4", r.topK)
	}
}
