package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	ecomodel "github.com/cloudwego/eino/components/model"
)

// titlePrompt 标题生成提示词, 要求模型只输出 JSON
const titlePrompt = `Generate a short title (at most six words) for a conversation that starts with the user question below. Respond with a JSON object of the form {"title": "..."} and nothing else.

Question: %s`

// maxTitleLength 标题最大字符数
const maxTitleLength = 60

// TitleGenerator 会话标题生成器
// 根据首条用户提问生成简短标题, 失败由调用方回退到默认标题
type TitleGenerator struct {
	chatModel ecomodel.ChatModel
}

// NewTitleGenerator 创建标题生成器
func NewTitleGenerator(chatModel ecomodel.ChatModel) *TitleGenerator {
	return &TitleGenerator{chatModel: chatModel}
}

// Generate 生成会话标题
func (t *TitleGenerator) Generate(ctx context.Context, question string) (string, error) {
	if t.chatModel == nil {
		return "", fmt.Errorf("chat model is required")
	}

	resp, err := t.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: fmt.Sprintf(titlePrompt, question)},
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	var parsed struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(repairJSON(resp.Content)), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse title response: %w", err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		return "", fmt.Errorf("model returned empty title")
	}
	return truncateTitle(title, maxTitleLength), nil
}

// truncateTitle 按字符截断标题
func truncateTitle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// repairJSON 修复 JSON 字符串
// 处理模型输出中常见的代码块围栏、前后缀文本和缺失括号
func repairJSON(input string) string {
	s := strings.TrimSpace(input)

	// 快速路径：已经是有效的 JSON 对象
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && json.Valid([]byte(s)) {
		return s
	}

	// 尝试提取 JSON 对象区域
	i := strings.IndexByte(s, '{')
	j := strings.LastIndexByte(s, '}')
	if i >= 0 && j >= i {
		sub := s[i : j+1]
		if json.Valid([]byte(sub)) {
			return sub
		}
		s = sub
	}

	// 移除常见的 LLM 生成伪影
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// 检查是否有效
	if json.Valid([]byte(s)) {
		return s
	}

	// 启发式：补全缺失的大括号
	if !strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = "{" + s
	} else if strings.HasPrefix(s, "{") && !strings.HasSuffix(s, "}") {
		s = s + "}"
	}

	// 使用 jsonrepair 进行强力修复
	out, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s // 修复失败，返回原值
	}
	return out
}
