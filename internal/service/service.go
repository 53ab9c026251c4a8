// Package service 提供业务服务的组装
package service

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"

	"github.com/ashwinyue/docchat/internal/config"
	"github.com/ashwinyue/docchat/internal/repository"
	"github.com/ashwinyue/docchat/internal/service/chat"
	"github.com/ashwinyue/docchat/internal/service/knowledge"
	"github.com/ashwinyue/docchat/internal/service/rag"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Chat      *chat.Service
	Knowledge *knowledge.Service

	// 配置
	Config *config.Config

	// Eino 组件（直接使用 eino 类型，无封装）
	ChatModel ecomodel.ChatModel
	Embedder  embedding.Embedder
	Retriever retriever.Retriever

	// RAG 编排
	Pipeline *rag.Pipeline
	Titler   *rag.TitleGenerator
}

// NewServices 创建所有服务
// 参考 eino-examples，使用简单的 newXxx() 函数直接初始化 eino 组件
func NewServices(repo *repository.Repositories, cfg *config.Config, store *vecstore.Store) (*Services, error) {
	ctx := context.Background()

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	rtr := vecstore.NewRetriever(store, embedder, cfg.Vector.TopK)

	pipeline, err := rag.New(ctx, &rag.Config{
		ChatModel: chatModel,
		Retriever: rtr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rag pipeline: %w", err)
	}

	titler := rag.NewTitleGenerator(chatModel)

	return &Services{
		Chat:      chat.NewService(repo, pipeline, titler),
		Knowledge: knowledge.NewService(repo, store, embedder),

		Config: cfg,

		ChatModel: chatModel,
		Embedder:  embedder,
		Retriever: rtr,

		Pipeline: pipeline,
		Titler:   titler,
	}, nil
}
