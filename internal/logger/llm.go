package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter 指定外部决策源请求/回复的落盘位置；nil 表示关闭。
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func writeLLM(tags []string, sections []llmSection) {
	llmMu.Lock()
	out := llmLog
	llmMu.Unlock()
	if out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	out.Print(b.String())
}

// LogLLMRequest 记录一次外部决策调用的 system/user 提示词。
func LogLLMRequest(provider, agent, systemPrompt, userPrompt string) {
	sections := []llmSection{{Title: "USER", Body: userPrompt}}
	llmMu.Lock()
	dump := llmDumpPayload
	llmMu.Unlock()
	if dump {
		sections = append([]llmSection{{Title: "SYSTEM", Body: systemPrompt}}, sections...)
	}
	writeLLM([]string{"request", provider, agent}, sections)
}

// LogLLMResponse 记录原始回复；err 非空时只记录错误信息。
func LogLLMResponse(provider, agent, raw string, elapsed time.Duration, err error) {
	tags := []string{"response", provider, agent, elapsed.Round(time.Millisecond).String()}
	if err != nil {
		writeLLM(tags, []llmSection{{Title: "ERROR", Body: fmt.Sprintf("%v", err)}})
		return
	}
	writeLLM(tags, []llmSection{{Title: "RAW", Body: raw}})
}
