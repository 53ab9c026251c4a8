// Package rag 提供基于 Eino Graph 的检索问答编排
// 直接使用 eino compose.Graph，避免冗余封装
package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

// ErrEmptyKnowledgeBase 知识库为空, 无内容可供检索
var ErrEmptyKnowledgeBase = errors.New("please upload documents or ensure the knowledge base is loaded")

// ========== 提示词 ==========

// contextualizePrompt 将依赖历史的追问改写为独立问题
const contextualizePrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood without the chat history. " +
	"Do NOT answer the question, just reformulate it if needed " +
	"and otherwise return it as is."

// answerPromptTemplate 回答系统提示词, 约束模型仅使用检索到的上下文
const answerPromptTemplate = `You are an expert technical assistant.
Use ONLY the information provided in the context below.
Your task is to provide a detailed, well-structured, and explanatory answer.

Guidelines:
- Explain concepts step-by-step
- Provide background if needed
- Use bullet points or numbered sections where helpful
- If the answer has multiple aspects, cover all of them
- If the context is insufficient, explicitly say what is missing

Context:
%s

Answer in a detailed and comprehensive manner.`

// ========== 请求与结果 ==========

// Request 一次问答请求
type Request struct {
	// Question 当前用户问题
	Question string
	// History 会话历史, 时间顺序, 不含当前问题
	History []*schema.Message
}

// Reply 问答结果
type Reply struct {
	// Answer 模型生成的回答
	Answer string
	// Sources 回答引用的文档块
	Sources []model.Source
	// RetrievalQuery 实际用于检索的查询, 有历史时为改写后的独立问题
	RetrievalQuery string
}

// state 流程内部状态, 沿 Graph 边传递
type state struct {
	request *Request
	query   string
	docs    []*schema.Document
}

// ========== Pipeline 配置 ==========

const defaultHistoryWindow = 5

// Config Pipeline 配置
type Config struct {
	// 核心组件
	ChatModel ecomodel.ChatModel
	Retriever retriever.Retriever

	// HistoryWindow 参与改写与生成的历史条数上限, 默认 5
	HistoryWindow int
}

// ========== Pipeline ==========

// Pipeline 基于 Eino Graph 的问答编排器
type Pipeline struct {
	graph compose.Runnable[*Request, *Reply]
	cfg   *Config
}

// New 创建问答 Pipeline
func New(ctx context.Context, cfg *Config) (*Pipeline, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}

	p := &Pipeline{cfg: cfg}

	graph, err := p.buildGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	p.graph = graph
	return p, nil
}

// buildGraph 构建 Eino Graph
func (p *Pipeline) buildGraph(ctx context.Context) (compose.Runnable[*Request, *Reply], error) {
	g := compose.NewGraph[*Request, *Reply]()

	// 1. 初始化节点
	initNode := compose.InvokableLambda(func(ctx context.Context, req *Request) (*state, error) {
		if strings.TrimSpace(req.Question) == "" {
			return nil, fmt.Errorf("question is empty")
		}
		return &state{request: req, query: req.Question}, nil
	})

	// 2. 历史改写节点
	contextualizeNode := compose.InvokableLambda(func(ctx context.Context, st *state) (*state, error) {
		return p.processContextualize(ctx, st)
	})

	// 3. 检索节点
	retrieveNode := compose.InvokableLambda(func(ctx context.Context, st *state) (*state, error) {
		return p.processRetrieve(ctx, st)
	})

	// 4. 生成节点
	generateNode := compose.InvokableLambda(func(ctx context.Context, st *state) (*Reply, error) {
		return p.processGenerate(ctx, st)
	})

	// 添加节点
	if err := g.AddLambdaNode("init", initNode); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("contextualize", contextualizeNode); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("retrieve", retrieveNode); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("generate", generateNode); err != nil {
		return nil, err
	}

	// 构建边
	if err := g.AddEdge(compose.START, "init"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("init", "contextualize"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("contextualize", "retrieve"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("retrieve", "generate"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("generate", compose.END); err != nil {
		return nil, err
	}

	// 编译 Graph
	return g.Compile(ctx)
}

// processContextualize 有历史时将问题改写为独立问题
// 改写失败不致命, 退回原问题继续检索
func (p *Pipeline) processContextualize(ctx context.Context, st *state) (*state, error) {
	history := p.recentHistory(st.request.History)
	if len(history) == 0 {
		return st, nil
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{Role: schema.System, Content: contextualizePrompt})
	messages = append(messages, history...)
	messages = append(messages, &schema.Message{Role: schema.User, Content: st.request.Question})

	resp, err := p.cfg.ChatModel.Generate(ctx, messages)
	if err != nil {
		log.Printf("Warning: failed to contextualize question, using original: %v", err)
		return st, nil
	}

	if q := strings.TrimSpace(resp.Content); q != "" {
		st.query = q
	}
	return st, nil
}

// processRetrieve 检索相关文档块
func (p *Pipeline) processRetrieve(ctx context.Context, st *state) (*state, error) {
	docs, err := p.cfg.Retriever.Retrieve(ctx, st.query)
	if err != nil {
		if errors.Is(err, vecstore.ErrNoChunks) {
			return nil, ErrEmptyKnowledgeBase
		}
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrEmptyKnowledgeBase
	}

	st.docs = docs
	return st, nil
}

// processGenerate 构造受限提示词并生成回答, 单次调用不重试
func (p *Pipeline) processGenerate(ctx context.Context, st *state) (*Reply, error) {
	history := p.recentHistory(st.request.History)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: fmt.Sprintf(answerPromptTemplate, formatContext(st.docs)),
	})
	messages = append(messages, history...)
	messages = append(messages, &schema.Message{Role: schema.User, Content: st.request.Question})

	resp, err := p.cfg.ChatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &Reply{
		Answer:         resp.Content,
		Sources:        documentsToSources(st.docs),
		RetrievalQuery: st.query,
	}, nil
}

// recentHistory 截取最近的历史消息
func (p *Pipeline) recentHistory(history []*schema.Message) []*schema.Message {
	if len(history) > p.cfg.HistoryWindow {
		return history[len(history)-p.cfg.HistoryWindow:]
	}
	return history
}

// ========== 公开方法 ==========

// Ask 执行一次问答
func (p *Pipeline) Ask(ctx context.Context, req *Request) (*Reply, error) {
	reply, err := p.graph.Invoke(ctx, req)
	if err != nil {
		// Graph 框架可能包装节点错误, 按消息归一化空知识库哨兵
		if errors.Is(err, ErrEmptyKnowledgeBase) ||
			strings.Contains(err.Error(), ErrEmptyKnowledgeBase.Error()) {
			return nil, ErrEmptyKnowledgeBase
		}
		return nil, fmt.Errorf("rag graph invoke failed: %w", err)
	}
	return reply, nil
}

// GetGraph 获取底层 Runnable（用于高级用法）
func (p *Pipeline) GetGraph() compose.Runnable[*Request, *Reply] {
	return p.graph
}

// ========== 辅助函数 ==========

// formatContext 将检索结果拼接为上下文, 块之间以空行分隔
func formatContext(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, "\n\n")
}

// documentsToSources 将检索结果转换为引用来源
func documentsToSources(docs []*schema.Document) []model.Source {
	sources := make([]model.Source, 0, len(docs))
	for _, doc := range docs {
		src := model.Source{Content: doc.Content}
		if doc.MetaData != nil {
			if id, ok := doc.MetaData[vecstore.MetaDocumentID].(string); ok {
				src.DocumentID = id
			}
			if name, ok := doc.MetaData[vecstore.MetaDocumentName].(string); ok {
				src.Name = name
			}
			if page, ok := doc.MetaData[vecstore.MetaPage].(int); ok {
				src.Page = page
			}
		}
		if src.Name == "" {
			src.Name = "Unknown file"
		}
		sources = append(sources, src)
	}
	return sources
}
