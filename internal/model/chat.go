package model

import "time"

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// 会话状态
const (
	SessionStatusActive   = "active"
	SessionStatusArchived = "archived"
)

// ChatSession 聊天会话
type ChatSession struct {
	ID        string        `gorm:"primaryKey;size:36"`
	Title     string        `gorm:"size:255"`
	Status    string        `gorm:"index;size:20;default:active"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID"`
}

// ChatMessage 聊天消息, 写入后不可变
type ChatMessage struct {
	ID        string     `gorm:"primaryKey;size:36"`
	SessionID string     `gorm:"index;size:36"`
	Role      string     `gorm:"size:20;index"` // user, assistant, system
	Content   string     `gorm:"type:text"`
	Sources   SourceList `gorm:"type:text"` // 助手消息引用的来源, JSON 序列化
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
}

// ValidRole 检查消息角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
