package provider

import (
	"fmt"
	"strings"
	"time"

	"swarm/internal/logger"
)

var defaultBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"gemini":   "https://generativelanguage.googleapis.com/v1beta/openai",
	"deepseek": "https://api.deepseek.com/v1",
}

// DefaultBaseURL 返回内置 provider 的 OpenAI 兼容地址。
func DefaultBaseURL(provider string) (string, bool) {
	url, ok := defaultBaseURLs[strings.ToLower(strings.TrimSpace(provider))]
	return url, ok
}

type ModelCfg struct {
	ID, Provider, APIURL, APIKey, Model string
	Enabled                             bool
	ExpectJSON                          bool
	Headers                             map[string]string
}

// BuildProvider 根据配置构造单个 provider；未启用时返回 nil。
func BuildProvider(m ModelCfg, timeout time.Duration) (ModelProvider, error) {
	if !m.Enabled {
		return nil, nil
	}
	url := strings.TrimSpace(m.APIURL)
	if url == "" {
		def, ok := DefaultBaseURL(m.Provider)
		if !ok {
			return nil, fmt.Errorf("provider %q has no default api_url", m.Provider)
		}
		url = def
	}
	if strings.TrimSpace(m.APIKey) == "" {
		logger.Warnf("provider %s 未配置 api_key，请求可能被拒绝", m.Provider)
	}
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = fmt.Sprintf("%s:%s", strings.ToLower(strings.TrimSpace(m.Provider)), strings.TrimSpace(m.Model))
	}
	client := &OpenAIChatClient{
		BaseURL:      url,
		APIKey:       m.APIKey,
		Model:        m.Model,
		Timeout:      timeout,
		ExtraHeaders: m.Headers,
	}
	return NewOpenAIModelProvider(id, true, m.ExpectJSON, client), nil
}
