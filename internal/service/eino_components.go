package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	ecomodel "github.com/cloudwego/eino/components/model"

	"github.com/ashwinyue/docchat/internal/config"
)

// newChatModel 创建 ChatModel
// 所有厂商都走 OpenAI 兼容接口, 通过 BaseURL 区分
func newChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.DashScope.APIKey
		baseURL = aiCfg.DashScope.BaseURL
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
		modelName = aiCfg.DashScope.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	temperature := float32(0)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}

// newEmbedder 创建 Embedding 器
func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	embCfg := cfg.AI.Embedding

	if embCfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api_key is required")
	}

	switch embCfg.Provider {
	case "openai", "":
		modelName := embCfg.Model
		if modelName == "" {
			modelName = "text-embedding-3-small"
		}

		embConfig := &openaiembed.EmbeddingConfig{
			APIKey:  embCfg.APIKey,
			BaseURL: embCfg.BaseURL,
			Model:   modelName,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}
		return openaiembed.NewEmbedder(ctx, embConfig)

	case "alibaba", "qwen", "dashscope":
		modelName := embCfg.Model
		if modelName == "" {
			modelName = "text-embedding-v3"
		}

		embConfig := &dashscope.EmbeddingConfig{
			APIKey: embCfg.APIKey,
			Model:  modelName,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}
		return dashscope.NewEmbedder(ctx, embConfig)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", embCfg.Provider)
	}
}
