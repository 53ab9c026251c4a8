// Package chat 提供会话管理与问答编排服务
package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/repository"
	"github.com/ashwinyue/docchat/internal/service/rag"
)

// historyWindow 参与问答的历史消息条数, 不含当前问题
const historyWindow = 5

// defaultTitlePattern 自动分配的默认会话标题
var defaultTitlePattern = regexp.MustCompile(`^Chat \d+$`)

// SessionStore 会话与消息的数据访问能力
// 未命中时返回 gorm.ErrRecordNotFound
type SessionStore interface {
	CreateSession(session *model.ChatSession) error
	GetSessionByID(id string) (*model.ChatSession, error)
	ListSessions() ([]*model.ChatSession, error)
	CountSessions() (int64, error)
	UpdateSession(session *model.ChatSession) error
	DeleteSession(id string) error
	CreateMessage(message *model.ChatMessage) error
	GetMessagesBySessionID(sessionID string) ([]*model.ChatMessage, error)
	GetRecentMessagesBySession(sessionID string, limit int) ([]*model.ChatMessage, error)
	CountMessages() (int64, error)
}

// Asker 问答编排器
type Asker interface {
	Ask(ctx context.Context, req *rag.Request) (*rag.Reply, error)
}

// Titler 会话标题生成器
type Titler interface {
	Generate(ctx context.Context, question string) (string, error)
}

var (
	_ SessionStore = (*repository.ChatRepository)(nil)
	_ Asker        = (*rag.Pipeline)(nil)
	_ Titler       = (*rag.TitleGenerator)(nil)
)

// Service 聊天服务
type Service struct {
	repo     SessionStore
	pipeline Asker
	titler   Titler
}

// NewService 创建聊天服务
// titler 可为 nil, 此时会话保留默认标题
func NewService(repos *repository.Repositories, pipeline Asker, titler Titler) *Service {
	return &Service{
		repo:     repos.Chat,
		pipeline: pipeline,
		titler:   titler,
	}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// CreateSession 创建会话, 未指定标题时按创建序号分配默认标题
func (s *Service) CreateSession(ctx context.Context, req *CreateSessionRequest) (*model.ChatSession, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		count, err := s.repo.CountSessions()
		if err != nil {
			return nil, fmt.Errorf("failed to count sessions: %w", err)
		}
		title = fmt.Sprintf("Chat %d", count+1)
	}

	session := &model.ChatSession{
		ID:     uuid.New().String(),
		Title:  title,
		Status: model.SessionStatusActive,
	}
	if err := s.repo.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSession 获取会话
func (s *Service) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	session, err := s.repo.GetSessionByID(id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return session, nil
}

// ListSessions 按创建时间列出全部会话
func (s *Service) ListSessions(ctx context.Context) ([]*model.ChatSession, error) {
	sessions, err := s.repo.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// RenameSessionRequest 重命名会话请求
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameSession 重命名会话, 会话唯一可修改的字段是标题
func (s *Service) RenameSession(ctx context.Context, id string, req *RenameSessionRequest) (*model.ChatSession, error) {
	session, err := s.repo.GetSessionByID(id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	session.Title = title
	if err := s.repo.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}

	return session, nil
}

// DeleteSession 删除会话及其全部消息
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.repo.GetSessionByID(id); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	if err := s.repo.DeleteSession(id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// AppendMessageRequest 追加消息请求
type AppendMessageRequest struct {
	Role    string           `json:"role" binding:"required"`
	Content string           `json:"content" binding:"required"`
	Sources model.SourceList `json:"sources"`
}

// AppendMessage 向会话追加一条消息, 消息写入后不可变
func (s *Service) AppendMessage(ctx context.Context, sessionID string, req *AppendMessageRequest) (*model.ChatMessage, error) {
	if _, err := s.repo.GetSessionByID(sessionID); err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if !model.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role: %s", req.Role)
	}

	message := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      req.Role,
		Content:   req.Content,
		Sources:   req.Sources,
	}
	if err := s.repo.CreateMessage(message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return message, nil
}

// GetMessages 按时间顺序获取会话消息
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	if _, err := s.repo.GetSessionByID(sessionID); err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	messages, err := s.repo.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask 执行一次问答
// 先持久化用户消息, 再检索生成, 成功后持久化带引用的助手消息
// 生成失败时用户消息保留, 错误原样返回给调用方, 不自动重试
func (s *Service) Ask(ctx context.Context, sessionID string, req *AskRequest) (*model.ChatMessage, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	session, err := s.repo.GetSessionByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	// 当前问题之前的最近历史
	history, err := s.recentHistory(sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   question,
	}
	if err := s.repo.CreateMessage(userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	reply, err := s.pipeline.Ask(ctx, &rag.Request{Question: question, History: history})
	if err != nil {
		return nil, err
	}

	assistantMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   reply.Answer,
		Sources:   model.SourceList(reply.Sources),
	}
	if err := s.repo.CreateMessage(assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	s.maybeGenerateTitle(ctx, session, question, len(history) == 0)

	return assistantMsg, nil
}

// Stats 会话统计
type Stats struct {
	Sessions int64 `json:"sessions"`
	Messages int64 `json:"messages"`
}

// GetStats 获取会话统计
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	sessions, err := s.repo.CountSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	messages, err := s.repo.CountMessages()
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	return &Stats{Sessions: sessions, Messages: messages}, nil
}

// recentHistory 取最近的历史消息并转换为模型消息, 时间顺序
func (s *Service) recentHistory(sessionID string) ([]*schema.Message, error) {
	recent, err := s.repo.GetRecentMessagesBySession(sessionID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	// 仓储返回最新在前, 反转为时间顺序
	history := make([]*schema.Message, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		switch msg.Role {
		case model.RoleUser:
			history = append(history, &schema.Message{Role: schema.User, Content: msg.Content})
		case model.RoleAssistant:
			history = append(history, &schema.Message{Role: schema.Assistant, Content: msg.Content})
		case model.RoleSystem:
			history = append(history, &schema.Message{Role: schema.System, Content: msg.Content})
		}
	}
	return history, nil
}

// maybeGenerateTitle 首轮问答后为仍是默认标题的会话生成标题
// 失败只记录日志, 不影响问答结果
func (s *Service) maybeGenerateTitle(ctx context.Context, session *model.ChatSession, question string, firstExchange bool) {
	if s.titler == nil || !firstExchange || !defaultTitlePattern.MatchString(session.Title) {
		return
	}

	title, err := s.titler.Generate(ctx, question)
	if err != nil {
		log.Printf("Warning: failed to generate session title: %v", err)
		return
	}

	session.Title = title
	if err := s.repo.UpdateSession(session); err != nil {
		log.Printf("Warning: failed to update session title: %v", err)
	}
}
