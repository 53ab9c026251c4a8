package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Vector   VectorConfig
	Ingest   IngestConfig
	AI       AIConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string
	Version string
	Debug   bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 会话数据库配置, Path 为 SQLite 文件路径
type DatabaseConfig struct {
	Path string
}

// VectorConfig 向量库配置
type VectorConfig struct {
	Dir  string
	TopK int
}

// IngestConfig 文档摄取配置
type IngestConfig struct {
	UploadDir  string
	InboxDir   string
	WatchInbox bool
}

// AIConfig AI配置
type AIConfig struct {
	Provider  string
	OpenAI    ModelConfig
	DashScope ModelConfig
	DeepSeek  ModelConfig
	Embedding EmbeddingConfig
}

// ModelConfig 聊天模型配置
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// EmbeddingConfig Embedding配置
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	Dimensions int
}

var globalConfig *Config

// Load 加载配置, 配置文件缺失时使用默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				log.Printf("Warning: config file %s not found, using defaults", path)
			} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Warning: config file %s not found, using defaults", path)
			} else {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// 环境变量
	v.SetEnvPrefix("DOCCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyKeyFallbacks(&cfg)

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// Validate 校验启动所需的最小配置
func (c *Config) Validate() error {
	if c.ChatAPIKey() == "" {
		return fmt.Errorf("missing API key for chat provider %q, set OPENAI_API_KEY", c.AI.Provider)
	}
	if c.AI.Embedding.APIKey == "" {
		return fmt.Errorf("missing API key for embedding provider %q, set OPENAI_API_KEY", c.AI.Embedding.Provider)
	}
	if c.Vector.TopK <= 0 {
		return fmt.Errorf("vector.topK must be positive, got %d", c.Vector.TopK)
	}
	return nil
}

// ChatAPIKey 返回当前聊天提供商的 API 密钥
func (c *Config) ChatAPIKey() string {
	switch c.AI.Provider {
	case "alibaba", "qwen", "dashscope":
		return c.AI.DashScope.APIKey
	case "deepseek":
		return c.AI.DeepSeek.APIKey
	default:
		return c.AI.OpenAI.APIKey
	}
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetDSN 获取 SQLite 连接字符串, 启用 WAL 与忙等待
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", c.Path)
}

// applyKeyFallbacks 将厂商惯用的裸环境变量回填到配置,
// OPENAI_API_KEY 是唯一必需的环境变量
func applyKeyFallbacks(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.AI.OpenAI.APIKey == "" {
			cfg.AI.OpenAI.APIKey = key
		}
		if cfg.AI.Embedding.Provider == "openai" && cfg.AI.Embedding.APIKey == "" {
			cfg.AI.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("DASHSCOPE_API_KEY"); key != "" {
		if cfg.AI.DashScope.APIKey == "" {
			cfg.AI.DashScope.APIKey = key
		}
		if cfg.AI.Embedding.Provider == "dashscope" && cfg.AI.Embedding.APIKey == "" {
			cfg.AI.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" && cfg.AI.DeepSeek.APIKey == "" {
		cfg.AI.DeepSeek.APIKey = key
	}
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "docchat")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.readTimeout", 60)
	v.SetDefault("server.writeTimeout", 300)

	// Database
	v.SetDefault("database.path", "./data/docchat.db")

	// Vector
	v.SetDefault("vector.dir", "./data/vectors")
	v.SetDefault("vector.topK", 4)

	// Ingest
	v.SetDefault("ingest.uploadDir", "./data/uploads")
	v.SetDefault("ingest.inboxDir", "./data/inbox")
	v.SetDefault("ingest.watchInbox", true)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o")
	v.SetDefault("ai.dashscope.baseUrl", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("ai.dashscope.model", "qwen-plus")
	v.SetDefault("ai.deepseek.baseUrl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.embedding.provider", "openai")
	v.SetDefault("ai.embedding.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.embedding.model", "text-embedding-3-small")
	v.SetDefault("ai.embedding.dimensions", 1536)
}
