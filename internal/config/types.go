package config

import (
	"strings"
	"time"
)

// Config 是 swarm 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Agents     AgentsConfig     `toml:"agents"`
	Feed       FeedConfig       `toml:"feed"`
	LLM        LLMConfig        `toml:"llm"`
	Classifier ClassifierConfig `toml:"classifier"`
	Store      StoreConfig      `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// AgentsConfig 描述 agent 集群：数量、资金区间、人格池与决策节奏。
// 时间类字段统一以秒为单位，便于与环境变量保持一致。
type AgentsConfig struct {
	Count              int           `toml:"count"`
	StartingCapitalMin float64       `toml:"starting_capital_min"`
	StartingCapitalMax float64       `toml:"starting_capital_max"`
	Personalities      []string      `toml:"personalities"`
	UpdateInterval     float64       `toml:"update_interval"`
	MinPriceChangePct  float64       `toml:"min_price_change_pct"`
	DecisionCacheTTL   float64       `toml:"decision_cache_ttl"`
	UseMLFallback      bool          `toml:"use_ml_fallback"`
	StartupJitterMax   float64       `toml:"startup_jitter_max"`
	NewsWindow         int           `toml:"news_window"`
	Roster             []RosterEntry `toml:"roster"`
}

// RosterEntry 显式声明单个 agent；为空的字段沿用集群级配置。
type RosterEntry struct {
	ID             string  `toml:"id" yaml:"id,omitempty"`
	Name           string  `toml:"name" yaml:"name,omitempty"`
	Personality    string  `toml:"personality" yaml:"personality,omitempty"`
	Capital        float64 `toml:"capital" yaml:"capital,omitempty"`
	UpdateInterval float64 `toml:"update_interval" yaml:"update_interval,omitempty"`
}

func (a AgentsConfig) Interval() time.Duration { return seconds(a.UpdateInterval) }
func (a AgentsConfig) CacheTTL() time.Duration { return seconds(a.DecisionCacheTTL) }
func (a AgentsConfig) JitterMax() time.Duration {
	return seconds(a.StartupJitterMax)
}

type FeedConfig struct {
	WSURL                   string `toml:"ws_url"`
	HandshakeTimeoutSeconds int    `toml:"handshake_timeout_seconds"`
}

func (f FeedConfig) HandshakeTimeout() time.Duration {
	return time.Duration(f.HandshakeTimeoutSeconds) * time.Second
}

// LLMConfig 外部决策源（OpenAI 兼容接口）。关闭时 agent 只走策略组合。
type LLMConfig struct {
	Enabled                bool    `toml:"enabled"`
	Provider               string  `toml:"provider"`
	Model                  string  `toml:"model"`
	APIURL                 string  `toml:"api_url"`
	APIKey                 string  `toml:"api_key"`
	Temperature            float64 `toml:"temperature"`
	TimeoutSeconds         float64 `toml:"timeout_seconds"`
	RatePerSecond          float64 `toml:"rate_per_second"`
	Burst                  int     `toml:"burst"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
}

func (l LLMConfig) Timeout() time.Duration { return seconds(l.TimeoutSeconds) }
func (l LLMConfig) BreakerCooldown() time.Duration {
	return time.Duration(l.BreakerCooldownSeconds) * time.Second
}

type ClassifierConfig struct {
	ModelPath string `toml:"model_path"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
