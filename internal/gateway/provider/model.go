package provider

import "context"

type ChatPayload struct {
	System      string
	User        string
	ExpectJSON  bool
	MaxTokens   int
	Temperature float64
}

// ModelProvider 抽象一个可对话的大模型端点。
type ModelProvider interface {
	ID() string
	Enabled() bool
	ExpectsJSON() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}
