package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChatClientSendsMessages(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"action\":\"HOLD\"}"}}]}`))
	}))
	defer srv.Close()

	p, err := BuildProvider(ModelCfg{Provider: "openai", APIURL: srv.URL + "/v1/", APIKey: "secret", Model: "gpt-4o-mini", Enabled: true, ExpectJSON: true}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", p.ID())

	out, err := p.Call(context.Background(), ChatPayload{System: "sys", User: "Market: x", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"HOLD"}`, out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Market: x", got.Messages[1].Content)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
}

func TestOpenAIChatClientDoesNotRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", Timeout: time.Second}
	_, err := c.Complete(context.Background(), ChatPayload{User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOpenAIChatClientHonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", Timeout: 5 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Complete(ctx, ChatPayload{User: "u"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBuildProviderDefaults(t *testing.T) {
	p, err := BuildProvider(ModelCfg{Provider: "gemini", Model: "g", Enabled: false}, 0)
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = BuildProvider(ModelCfg{Provider: "mystery", Model: "g", Enabled: true}, 0)
	assert.Error(t, err)

	url, ok := DefaultBaseURL(" Gemini ")
	assert.True(t, ok)
	assert.Contains(t, url, "generativelanguage.googleapis.com")
}
