package repository

import (
	"github.com/ashwinyue/docchat/internal/model"
	"gorm.io/gorm"
)

// KnowledgeRepository 文档数据访问
type KnowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建文档仓库
func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// CreateDocument 创建文档
func (r *KnowledgeRepository) CreateDocument(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// GetDocumentByID 获取文档
func (r *KnowledgeRepository) GetDocumentByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByFileName 按文件名获取文档, 用于重复摄取检测
func (r *KnowledgeRepository) GetDocumentByFileName(fileName string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("file_name = ?", fileName).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments 按创建时间倒序列出文档
func (r *KnowledgeRepository) ListDocuments() ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// CountDocuments 统计文档数
func (r *KnowledgeRepository) CountDocuments() (int64, error) {
	var count int64
	err := r.db.Model(&model.Document{}).Count(&count).Error
	return count, err
}

// UpdateDocument 更新文档
func (r *KnowledgeRepository) UpdateDocument(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// DeleteDocument 删除文档
func (r *KnowledgeRepository) DeleteDocument(id string) error {
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}
