// Package service 提供 AI 组件构建的单元测试
package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/docchat/internal/config"
	"github.com/ashwinyue/docchat/internal/testutil"
)

// chatConfig 构造聊天模型测试配置
func chatConfig(provider, apiKey, baseURL, model string) *config.Config {
	cfg := &config.Config{}
	cfg.AI.Provider = provider
	mc := config.ModelConfig{APIKey: apiKey, BaseURL: baseURL, Model: model}
	switch provider {
	case "openai":
		cfg.AI.OpenAI = mc
	case "alibaba", "qwen", "dashscope":
		cfg.AI.DashScope = mc
	case "deepseek":
		cfg.AI.DeepSeek = mc
	}
	return cfg
}

// embeddingConfig 构造 embedding 测试配置
func embeddingConfig(provider, apiKey, baseURL, model string) *config.Config {
	cfg := &config.Config{}
	cfg.AI.Embedding = config.EmbeddingConfig{
		Provider: provider,
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Model:    model,
	}
	return cfg
}

// ========== newChatModel 测试 ==========

func TestNewChatModelProviders(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		provider    string
		apiKey      string
		wantErr     bool
		errContains string
	}{
		{name: "openai", provider: "openai", apiKey: "sk-test"},
		{name: "dashscope", provider: "dashscope", apiKey: "sk-test"},
		{name: "dashscope alias alibaba", provider: "alibaba", apiKey: "sk-test"},
		{name: "dashscope alias qwen", provider: "qwen", apiKey: "sk-test"},
		{name: "deepseek", provider: "deepseek", apiKey: "sk-test"},
		{name: "missing api key", provider: "openai", apiKey: "", wantErr: true, errContains: "api_key is required"},
		{name: "unsupported provider", provider: "azure", apiKey: "sk-test", wantErr: true, errContains: "unsupported ai provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := chatConfig(tt.provider, tt.apiKey, "", "")

			cm, err := newChatModel(ctx, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("newChatModel() error = nil, want error")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("newChatModel() error = %v, want contains %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("newChatModel() error = %v, want nil", err)
			}
			if cm == nil {
				t.Fatal("newChatModel() returned nil model")
			}
		})
	}
}

func TestChatModelGenerate(t *testing.T) {
	ts := testutil.NewOpenAIServer()
	defer ts.Close()
	ts.SetReply("The warranty covers two years.")

	ctx := context.Background()
	cfg := chatConfig("openai", "sk-test", ts.URL(), "gpt-4o-mini")

	cm, err := newChatModel(ctx, cfg)
	if err != nil {
		t.Fatalf("newChatModel() error = %v, want nil", err)
	}

	reply, err := cm.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: "You are a helpful assistant."},
		{Role: schema.User, Content: "How long is the warranty?"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if reply.Content != "The warranty covers two years." {
		t.Errorf("Generate() content = %q, want %q", reply.Content, "The warranty covers two years.")
	}
	if ts.ChatCalls() != 1 {
		t.Errorf("chat calls = %d, want 1", ts.ChatCalls())
	}
	if ts.LastModel() != "gpt-4o-mini" {
		t.Errorf("requested model = %q, want %q", ts.LastModel(), "gpt-4o-mini")
	}
}

func TestChatModelGenerate_DefaultModel(t *testing.T) {
	ts := testutil.NewOpenAIServer()
	defer ts.Close()

	ctx := context.Background()
	cfg := chatConfig("openai", "sk-test", ts.URL(), "")

	cm, err := newChatModel(ctx, cfg)
	if err != nil {
		t.Fatalf("newChatModel() error = %v, want nil", err)
	}

	if _, err := cm.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: "hello"},
	}); err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if ts.LastModel() != "gpt-4o" {
		t.Errorf("requested model = %q, want default %q", ts.LastModel(), "gpt-4o")
	}
}

func TestChatModelGenerate_DeepSeekBaseURL(t *testing.T) {
	ts := testutil.NewOpenAIServer()
	defer ts.Close()

	ctx := context.Background()
	cfg := chatConfig("deepseek", "sk-test", ts.URL(), "deepseek-chat")

	cm, err := newChatModel(ctx, cfg)
	if err != nil {
		t.Fatalf("newChatModel() error = %v, want nil", err)
	}

	if _, err := cm.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: "hello"},
	}); err != nil {
		t.Fatalf("Generate() error = %v, want nil", err)
	}
	if ts.LastModel() != "deepseek-chat" {
		t.Errorf("requested model = %q, want %q", ts.LastModel(), "deepseek-chat")
	}
}

func TestChatModelGenerate_ServerError(t *testing.T) {
	ts := testutil.NewOpenAIServer()
	defer ts.Close()
	ts.Fail(http.StatusInternalServerError)

	ctx := context.Background()
	cfg := chatConfig("openai", "sk-test", ts.URL(), "gpt-4o")

	cm, err := newChatModel(ctx, cfg)
	if err != nil {
		t.Fatalf("newChatModel() error = %v, want nil", err)
	}

	if _, err := cm.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: "hello"},
	}); err == nil {
		t.Fatal("Generate() error = nil, want error")
	}
}

// ========== newEmbedder 测试 ==========

func TestNewEmbedderProviders(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		provider    string
		apiKey      string
		wantErr     bool
		errContains string
	}{
		{name: "openai", provider: "openai", apiKey: "sk-test"},
		{name: "empty provider defaults to openai", provider: "", apiKey: "sk-test"},
		{name: "dashscope", provider: "dashscope", apiKey: "sk-test"},
		{name: "dashscope alias alibaba", provider: "alibaba", apiKey: "sk-test"},
		{name: "dashscope alias qwen", provider: "qwen", apiKey: "sk-test"},
		{name: "missing api key", provider: "openai", apiKey: "", wantErr: true, errContains: "embedding api_key is required"},
		{name: "unsupported provider", provider: "azure", apiKey: "sk-test", wantErr: true, errContains: "unsupported embedding provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := embeddingConfig(tt.provider, tt.apiKey, "", "")

			emb, err := newEmbedder(ctx, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("newEmbedder() error = nil, want error")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("newEmbedder() error = %v, want contains %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("newEmbedder() error = %v, want nil", err)
			}
			if emb == nil {
				t.Fatal("newEmbedder() returned nil embedder")
			}
		})
	}
}

func TestEmbedderEmbedStrings(t *testing.T) {
	ts := testutil.NewOpenAIServer()
	defer ts.Close()
	ts.SetDimensions(8)

	ctx := context.Background()
	cfg := embeddingConfig("openai", "sk-test", ts.URL(), "")

	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		t.Fatalf("newEmbedder() error = %v, want nil", err)
	}

	vectors, err := emb.EmbedStrings(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("EmbedStrings() error = %v, want nil", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("EmbedStrings() returned %d vectors, want 3", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != 8 {
			t.Errorf("vector[%d] dimensions = %d, want 8", i, len(vec))
		}
	}
	if ts.EmbedCalls() != 1 {
		t.Errorf("embedding calls = %d, want 1", ts.EmbedCalls())
	}
	if ts.LastModel() != "text-embedding-3-small" {
		t.Errorf("requested model = %q, want default %q", ts.LastModel(), "text-embedding-3-small")
	}
}

func TestEmbedderEmbedStrings_ServerError(t *testing.T) {
	ts := testutil.NewOpenAIServer()
	defer ts.Close()
	ts.Fail(http.StatusBadGateway)

	ctx := context.Background()
	cfg := embeddingConfig("openai", "sk-test", ts.URL(), "text-embedding-3-small")

	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		t.Fatalf("newEmbedder() error = %v, want nil", err)
	}

	if _, err := emb.EmbedStrings(ctx, []string{"alpha"}); err == nil {
		t.Fatal("EmbedStrings() error = nil, want error")
	}
}
