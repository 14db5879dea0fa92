package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"swarm/internal/logger"
)

// OpenAIChatClient：兼容 OpenAI / Gemini / DeepSeek 的聊天补全接口（/chat/completions）。
// 不做重试：调用方每个决策周期最多尝试一次，失败直接回落到本地策略。
type OpenAIChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	ExtraHeaders map[string]string

	http *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIChatClient) client() *resty.Client {
	if c.http != nil {
		return c.http
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rc := resty.New().
		SetBaseURL(normalizeBaseURL(c.BaseURL)).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	if c.APIKey != "" {
		rc.SetAuthToken(c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		rc.SetHeader(k, v)
	}
	c.http = rc
	return rc
}

func normalizeBaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	return strings.TrimSuffix(url, "/chat/completions")
}

func (c *OpenAIChatClient) Complete(ctx context.Context, payload ChatPayload) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if payload.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: payload.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: payload.User})
	body := chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: payload.Temperature,
		MaxTokens:   payload.MaxTokens,
	}
	if payload.ExpectJSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	logger.Debugf("[AI] 请求: POST %s/chat/completions model=%s", normalizeBaseURL(c.BaseURL), c.Model)

	var ok chatResponse
	var bad chatError
	resp, err := c.client().R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&ok).
		SetError(&bad).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		msg := strings.TrimSpace(bad.Error.Message)
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("status=%d: %s", resp.StatusCode(), msg)
	}
	if len(ok.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return ok.Choices[0].Message.Content, nil
}

// OpenAIModelProvider 把 OpenAIChatClient 适配为 ModelProvider。
type OpenAIModelProvider struct {
	id         string
	enabled    bool
	expectJSON bool
	client     interface {
		Complete(ctx context.Context, payload ChatPayload) (string, error)
	}
}

func NewOpenAIModelProvider(id string, enabled, expectJSON bool, client interface {
	Complete(context.Context, ChatPayload) (string, error)
}) *OpenAIModelProvider {
	return &OpenAIModelProvider{id: id, enabled: enabled, expectJSON: expectJSON, client: client}
}

func (p *OpenAIModelProvider) ID() string        { return p.id }
func (p *OpenAIModelProvider) Enabled() bool     { return p.enabled }
func (p *OpenAIModelProvider) ExpectsJSON() bool { return p.expectJSON }

func (p *OpenAIModelProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("provider %s has no client", p.id)
	}
	payload.ExpectJSON = payload.ExpectJSON || p.expectJSON
	return p.client.Complete(ctx, payload)
}
