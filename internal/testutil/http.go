// Package testutil 提供测试辅助工具
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// OpenAIServer 模拟 OpenAI 兼容的模型服务
// 测试时将组件的 BaseURL 指向 URL(), 无需真实 API Key
type OpenAIServer struct {
	server *httptest.Server

	mu         sync.Mutex
	reply      string // chat 接口的固定回复
	dimensions int    // embedding 向量维度
	statusCode int    // 非 200 时所有请求返回该状态码
	lastModel  string // 最近一次请求携带的模型名
	chatCalls  int
	embedCalls int
}

// NewOpenAIServer 创建 mock 模型服务
func NewOpenAIServer() *OpenAIServer {
	s := &OpenAIServer{
		reply:      "mock reply",
		dimensions: 4,
		statusCode: http.StatusOK,
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL 返回服务地址, 用作组件的 BaseURL
func (s *OpenAIServer) URL() string {
	return s.server.URL
}

// Close 关闭服务
func (s *OpenAIServer) Close() {
	s.server.Close()
}

// SetReply 设置 chat 接口的固定回复
func (s *OpenAIServer) SetReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = reply
}

// SetDimensions 设置 embedding 向量维度
func (s *OpenAIServer) SetDimensions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimensions = n
}

// Fail 使后续请求返回给定状态码, 传 http.StatusOK 恢复正常
func (s *OpenAIServer) Fail(statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCode = statusCode
}

// LastModel 返回最近一次请求携带的模型名
func (s *OpenAIServer) LastModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModel
}

// ChatCalls 返回 chat 接口的调用次数
func (s *OpenAIServer) ChatCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCalls
}

// EmbedCalls 返回 embedding 接口的调用次数
func (s *OpenAIServer) EmbedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedCalls
}

// handle 按路径后缀分发, 兼容各厂商的 BaseURL 前缀差异
func (s *OpenAIServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		s.handleChat(w, r)
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		s.handleEmbeddings(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *OpenAIServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.chatCalls++
	s.lastModel = req.Model
	reply := s.reply
	code := s.statusCode
	s.mu.Unlock()

	if code != http.StatusOK {
		http.Error(w, `{"error":{"message":"mock failure"}}`, code)
		return
	}

	writeJSON(w, map[string]interface{}{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   req.Model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
}

func (s *OpenAIServer) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string          `json:"model"`
		Input json.RawMessage `json:"input"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.embedCalls++
	s.lastModel = req.Model
	dims := s.dimensions
	code := s.statusCode
	s.mu.Unlock()

	if code != http.StatusOK {
		http.Error(w, `{"error":{"message":"mock failure"}}`, code)
		return
	}

	inputs := parseEmbeddingInput(req.Input)
	data := make([]map[string]interface{}, len(inputs))
	for i := range inputs {
		vec := make([]float64, dims)
		for j := range vec {
			vec[j] = float64(i + 1)
		}
		data[i] = map[string]interface{}{
			"object":    "embedding",
			"index":     i,
			"embedding": vec,
		}
	}

	writeJSON(w, map[string]interface{}{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

// parseEmbeddingInput 兼容 string 与 []string 两种 input 形式
func parseEmbeddingInput(raw json.RawMessage) []string {
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	return []string{""}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
