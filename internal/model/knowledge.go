package model

import "time"

// 文档处理状态
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document 知识库文档
type Document struct {
	ID          string    `gorm:"primaryKey;size:36"`
	FileName    string    `gorm:"size:255;index"`
	Title       string    `gorm:"size:255"`
	ContentType string    `gorm:"size:100"`
	FilePath    string    `gorm:"size:500"`
	FileSize    int64     `gorm:"default:0"`
	Status      string    `gorm:"size:20;index;default:pending"`
	PageCount   int       `gorm:"default:0"`
	ChunkCount  int       `gorm:"default:0"`
	ErrorMsg    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
