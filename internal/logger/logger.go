package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

// SetLevel 支持 debug/info/warn/error，未知值回落到 info。
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

// Level 返回当前生效的日志级别名称（小写）。
func Level() string {
	return strings.ToLower(levelVar.Level().String())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger
}

// logf 先判断级别再格式化，被过滤的调试日志不产生 Sprintf 开销。
func logf(level slog.Level, attrs []any, format string, v ...any) {
	l := activeLogger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, v...), attrs...)
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, nil, format, v...) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, nil, format, v...) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, nil, format, v...) }
func Errorf(format string, v ...any) { logf(slog.LevelError, nil, format, v...) }

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}

// Scope 为同一个 agent 的日志加上 "[name]" 前缀和 scope=name 字段，便于按 agent 过滤。
type Scope struct {
	prefix string
	attrs  []any
}

func For(name string) Scope {
	name = strings.TrimSpace(name)
	if name == "" {
		return Scope{}
	}
	return Scope{prefix: "[" + name + "] ", attrs: []any{slog.String("scope", name)}}
}

func (s Scope) Debugf(format string, v ...any) { logf(slog.LevelDebug, s.attrs, s.prefix+format, v...) }
func (s Scope) Infof(format string, v ...any)  { logf(slog.LevelInfo, s.attrs, s.prefix+format, v...) }
func (s Scope) Warnf(format string, v ...any)  { logf(slog.LevelWarn, s.attrs, s.prefix+format, v...) }
func (s Scope) Errorf(format string, v ...any) { logf(slog.LevelError, s.attrs, s.prefix+format, v...) }
