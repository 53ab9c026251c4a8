package repository

import (
	"github.com/ashwinyue/docchat/internal/model"
	"gorm.io/gorm"
)

// ChatRepository 聊天数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建聊天仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession 创建会话
func (r *ChatRepository) CreateSession(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

// GetSessionByID 获取会话
func (r *ChatRepository) GetSessionByID(id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions 按创建顺序列出全部会话
func (r *ChatRepository) ListSessions() ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	err := r.db.Order("created_at ASC").Find(&sessions).Error
	return sessions, err
}

// CountSessions 统计会话数
func (r *ChatRepository) CountSessions() (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatSession{}).Count(&count).Error
	return count, err
}

// UpdateSession 更新会话
func (r *ChatRepository) UpdateSession(session *model.ChatSession) error {
	return r.db.Save(session).Error
}

// DeleteSession 删除会话及其全部消息
func (r *ChatRepository) DeleteSession(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ChatMessage{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChatSession{}, "id = ?", id).Error
	})
}

// CreateMessage 创建消息
func (r *ChatRepository) CreateMessage(msg *model.ChatMessage) error {
	return r.db.Create(msg).Error
}

// GetMessagesBySessionID 按时间顺序获取会话消息
func (r *ChatRepository) GetMessagesBySessionID(sessionID string) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// GetRecentMessagesBySession 获取会话最近的 N 条消息, 按时间倒序返回
func (r *ChatRepository) GetRecentMessagesBySession(sessionID string, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// GetMessageByID 获取单条消息
func (r *ChatRepository) GetMessageByID(messageID string) (*model.ChatMessage, error) {
	var message model.ChatMessage
	err := r.db.Where("id = ?", messageID).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// CountMessages 统计消息数
func (r *ChatRepository) CountMessages() (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).Count(&count).Error
	return count, err
}

// CountMessagesBySession 统计会话消息数
func (r *ChatRepository) CountMessagesBySession(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatMessage{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}
