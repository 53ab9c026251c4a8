// Package model 提供聊天与文档相关的数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Source 回答引用的来源片段
type Source struct {
	DocumentID string `json:"document_id"` // 来源文档 ID
	Name       string `json:"name"`        // 来源文件名
	Page       int    `json:"page"`        // 页码, 从 1 开始, 无分页时为 0
	Content    string `json:"content"`     // 片段内容
}

// SourceList 来源列表, 作为 JSON 列持久化
type SourceList []Source

// Value 实现 driver.Valuer 接口
func (s SourceList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (s *SourceList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SourceList: %T", value)
	}
	if len(b) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(b, s)
}
