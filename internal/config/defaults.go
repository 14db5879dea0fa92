package config

import "strings"

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9991"
	defaultAppLogPath        = "data/logs/swarm.log"
	defaultAppLLMLogPath     = "data/logs/swarm-llm.log"
	defaultAgentCount        = 2
	defaultCapitalMin        = 50000.0
	defaultCapitalMax        = 150000.0
	defaultUpdateInterval    = 4.0
	defaultMinPriceChangePct = 0.0025
	defaultDecisionCacheTTL  = 12.0
	defaultStartupJitterMax  = 5.0
	defaultNewsWindow        = 5
	defaultWSURL             = "ws://localhost:8000/ws"
	defaultHandshakeTimeout  = 10
	defaultLLMProvider       = "gemini"
	defaultLLMModel          = "gemini-2.0-flash-exp"
	defaultLLMTemperature    = 0.7
	defaultLLMTimeout        = 15.0
	defaultLLMRate           = 2.0
	defaultLLMBurst          = 4
	defaultBreakerThreshold  = 3
	defaultBreakerCooldown   = 30
	defaultStorePath         = "data/swarm.db"
)

var defaultPersonalities = []string{
	"conservative", "aggressive", "news_trader", "market_maker", "momentum", "neutral",
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Agents.applyDefaults(keys)
	c.Feed.applyDefaults(keys)
	c.LLM.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (a *AgentsConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "agents.count",
			need:  func() bool { return a.Count <= 0 },
			apply: func() { a.Count = defaultAgentCount },
		},
		floatFieldDefault("agents.starting_capital_min", &a.StartingCapitalMin, defaultCapitalMin),
		floatFieldDefault("agents.starting_capital_max", &a.StartingCapitalMax, defaultCapitalMax),
		fieldDefault{
			key:   "agents.personalities",
			need:  func() bool { return len(a.Personalities) == 0 },
			apply: func() { a.Personalities = append([]string(nil), defaultPersonalities...) },
		},
		floatFieldDefault("agents.update_interval", &a.UpdateInterval, defaultUpdateInterval),
		floatFieldDefault("agents.min_price_change_pct", &a.MinPriceChangePct, defaultMinPriceChangePct),
		floatFieldDefault("agents.decision_cache_ttl", &a.DecisionCacheTTL, defaultDecisionCacheTTL),
		boolFieldDefault("agents.use_ml_fallback", &a.UseMLFallback, true),
		floatFieldDefault("agents.startup_jitter_max", &a.StartupJitterMax, defaultStartupJitterMax),
		fieldDefault{
			key:   "agents.news_window",
			need:  func() bool { return a.NewsWindow <= 0 },
			apply: func() { a.NewsWindow = defaultNewsWindow },
		},
	)
	for i := range a.Personalities {
		a.Personalities[i] = strings.ToLower(strings.TrimSpace(a.Personalities[i]))
	}
}

func (f *FeedConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("feed.ws_url", &f.WSURL, defaultWSURL),
		fieldDefault{
			key:   "feed.handshake_timeout_seconds",
			need:  func() bool { return f.HandshakeTimeoutSeconds <= 0 },
			apply: func() { f.HandshakeTimeoutSeconds = defaultHandshakeTimeout },
		},
	)
}

func (l *LLMConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("llm.provider", &l.Provider, defaultLLMProvider),
		stringFieldDefault("llm.model", &l.Model, defaultLLMModel),
		floatFieldDefault("llm.temperature", &l.Temperature, defaultLLMTemperature),
		floatFieldDefault("llm.timeout_seconds", &l.TimeoutSeconds, defaultLLMTimeout),
		floatFieldDefault("llm.rate_per_second", &l.RatePerSecond, defaultLLMRate),
		fieldDefault{
			key:   "llm.burst",
			need:  func() bool { return l.Burst <= 0 },
			apply: func() { l.Burst = defaultLLMBurst },
		},
		fieldDefault{
			key:   "llm.breaker_threshold",
			need:  func() bool { return l.BreakerThreshold <= 0 },
			apply: func() { l.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "llm.breaker_cooldown_seconds",
			need:  func() bool { return l.BreakerCooldownSeconds <= 0 },
			apply: func() { l.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
	l.Provider = strings.ToLower(strings.TrimSpace(l.Provider))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys, stringFieldDefault("store.path", &s.Path, defaultStorePath))
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
