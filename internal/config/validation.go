package config

import (
	"fmt"
	"strings"

	"swarm/internal/gateway/provider"
	"swarm/internal/strategy"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Agents.validate(); err != nil {
		return err
	}
	if err := c.Feed.validate(); err != nil {
		return err
	}
	if err := c.LLM.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AgentsConfig) validate() error {
	if len(a.Roster) == 0 && a.Count < 1 {
		return fmt.Errorf("agents.count must be >= 1")
	}
	if a.StartingCapitalMin < 0 {
		return fmt.Errorf("agents.starting_capital_min must be >= 0")
	}
	if a.StartingCapitalMax < a.StartingCapitalMin {
		return fmt.Errorf("agents.starting_capital_max must be >= starting_capital_min")
	}
	if a.UpdateInterval <= 0 {
		return fmt.Errorf("agents.update_interval must be > 0")
	}
	if a.MinPriceChangePct < 0 {
		return fmt.Errorf("agents.min_price_change_pct must be >= 0")
	}
	if a.DecisionCacheTTL < 0 {
		return fmt.Errorf("agents.decision_cache_ttl must be >= 0")
	}
	known := 0
	for _, p := range a.Personalities {
		if strategy.IsKnownPersonality(p) {
			known++
		}
	}
	if known == 0 {
		return fmt.Errorf("agents.personalities requires at least one known personality, got %v", a.Personalities)
	}
	for i, entry := range a.Roster {
		name := strings.TrimSpace(entry.Personality)
		if name != "" && !strategy.IsKnownPersonality(name) {
			return fmt.Errorf("agents.roster[%d] has unknown personality %q", i, entry.Personality)
		}
		if entry.Capital < 0 {
			return fmt.Errorf("agents.roster[%d].capital must be >= 0", i)
		}
	}
	return nil
}

func (f *FeedConfig) validate() error {
	url := strings.TrimSpace(f.WSURL)
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return fmt.Errorf("feed.ws_url must start with ws:// or wss://, got %q", f.WSURL)
	}
	return nil
}

func (l *LLMConfig) validate() error {
	if !l.Enabled {
		return nil
	}
	if _, ok := provider.DefaultBaseURL(l.Provider); !ok && strings.TrimSpace(l.APIURL) == "" {
		return fmt.Errorf("llm.provider %q is unknown; set llm.api_url for custom endpoints", l.Provider)
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model cannot be empty when llm.enabled")
	}
	if l.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be > 0")
	}
	return nil
}
