package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ========== Load 测试 ==========

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.App.Name != "docchat" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "docchat")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "./data/docchat.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./data/docchat.db")
	}
	if cfg.Vector.TopK != 4 {
		t.Errorf("Vector.TopK = %d, want 4", cfg.Vector.TopK)
	}
	if cfg.AI.Provider != "openai" {
		t.Errorf("AI.Provider = %q, want %q", cfg.AI.Provider, "openai")
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
vector:
  topK: 8
ai:
  provider: deepseek
  deepseek:
    apiKey: test-key
    model: deepseek-chat
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Vector.TopK != 8 {
		t.Errorf("Vector.TopK = %d, want 8", cfg.Vector.TopK)
	}
	if cfg.AI.Provider != "deepseek" {
		t.Errorf("AI.Provider = %q, want %q", cfg.AI.Provider, "deepseek")
	}
	if cfg.AI.DeepSeek.APIKey != "test-key" {
		t.Errorf("AI.DeepSeek.APIKey = %q, want %q", cfg.AI.DeepSeek.APIKey, "test-key")
	}
	// 未覆盖的键保持默认值
	if cfg.Database.Path != "./data/docchat.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}

	// Load 之后全局配置可用
	if Get() != cfg {
		t.Error("Get() did not return the loaded config")
	}
}

func TestLoadOpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.AI.OpenAI.APIKey != "sk-test" {
		t.Errorf("AI.OpenAI.APIKey = %q, want %q", cfg.AI.OpenAI.APIKey, "sk-test")
	}
	if cfg.AI.Embedding.APIKey != "sk-test" {
		t.Errorf("AI.Embedding.APIKey = %q, want %q", cfg.AI.Embedding.APIKey, "sk-test")
	}
}

// ========== Validate 测试 ==========

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid openai config",
			cfg: &Config{
				AI: AIConfig{
					Provider:  "openai",
					OpenAI:    ModelConfig{APIKey: "sk-1"},
					Embedding: EmbeddingConfig{Provider: "openai", APIKey: "sk-1"},
				},
				Vector: VectorConfig{TopK: 4},
			},
			wantErr: false,
		},
		{
			name: "missing chat api key",
			cfg: &Config{
				AI: AIConfig{
					Provider:  "openai",
					Embedding: EmbeddingConfig{Provider: "openai", APIKey: "sk-1"},
				},
				Vector: VectorConfig{TopK: 4},
			},
			wantErr: true,
		},
		{
			name: "missing embedding api key",
			cfg: &Config{
				AI: AIConfig{
					Provider: "openai",
					OpenAI:   ModelConfig{APIKey: "sk-1"},
				},
				Vector: VectorConfig{TopK: 4},
			},
			wantErr: true,
		},
		{
			name: "non-positive topK",
			cfg: &Config{
				AI: AIConfig{
					Provider:  "openai",
					OpenAI:    ModelConfig{APIKey: "sk-1"},
					Embedding: EmbeddingConfig{Provider: "openai", APIKey: "sk-1"},
				},
				Vector: VectorConfig{TopK: 0},
			},
			wantErr: true,
		},
		{
			name: "deepseek provider uses deepseek key",
			cfg: &Config{
				AI: AIConfig{
					Provider:  "deepseek",
					DeepSeek:  ModelConfig{APIKey: "ds-1"},
					Embedding: EmbeddingConfig{Provider: "openai", APIKey: "sk-1"},
				},
				Vector: VectorConfig{TopK: 4},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatAPIKey(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{
			Provider:  "dashscope",
			OpenAI:    ModelConfig{APIKey: "openai-key"},
			DashScope: ModelConfig{APIKey: "dash-key"},
		},
	}
	if got := cfg.ChatAPIKey(); got != "dash-key" {
		t.Errorf("ChatAPIKey() = %q, want %q", got, "dash-key")
	}

	cfg.AI.Provider = "openai"
	if got := cfg.ChatAPIKey(); got != "openai-key" {
		t.Errorf("ChatAPIKey() = %q, want %q", got, "openai-key")
	}
}
