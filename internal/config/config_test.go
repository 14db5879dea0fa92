package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, 2, cfg.Agents.Count)
	assert.Equal(t, 4*time.Second, cfg.Agents.Interval())
	assert.Equal(t, 12*time.Second, cfg.Agents.CacheTTL())
	assert.Equal(t, 5*time.Second, cfg.Agents.JitterMax())
	assert.InDelta(t, 0.0025, cfg.Agents.MinPriceChangePct, 1e-12)
	assert.True(t, cfg.Agents.UseMLFallback)
	assert.Equal(t, defaultPersonalities, cfg.Agents.Personalities)
	assert.Equal(t, 5, cfg.Agents.NewsWindow)
	assert.Equal(t, "ws://localhost:8000/ws", cfg.Feed.WSURL)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout())
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
agents:
  count: 5
  use_ml_fallback: false
  personalities: [Whale, predator]
  update_interval: 1.5
llm:
  enabled: true
  provider: OpenAI
  model: gpt-4o-mini
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Agents.Count)
	assert.False(t, cfg.Agents.UseMLFallback)
	assert.Equal(t, []string{"whale", "predator"}, cfg.Agents.Personalities)
	assert.Equal(t, 1500*time.Millisecond, cfg.Agents.Interval())
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "agents:\n  count: 3\n  starting_capital_min: 1000\n")
	path := writeFile(t, dir, "config.yaml", "include: [base.yaml]\nagents:\n  count: 7\n  starting_capital_max: 2000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Agents.Count)
	assert.InDelta(t, 1000, cfg.Agents.StartingCapitalMin, 1e-9)
	assert.InDelta(t, 2000, cfg.Agents.StartingCapitalMax, 1e-9)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "agents:\n  count: 3\n")
	t.Setenv("AGENT_COUNT", "9")
	t.Setenv("UPDATE_INTERVAL", "2.5")
	t.Setenv("USE_ML_FALLBACK", "false")
	t.Setenv("WS_URL", "ws://exchange:9000/ws")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Agents.Count)
	assert.Equal(t, 2500*time.Millisecond, cfg.Agents.Interval())
	assert.False(t, cfg.Agents.UseMLFallback)
	assert.Equal(t, "ws://exchange:9000/ws", cfg.Feed.WSURL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"capital range":      "agents:\n  starting_capital_min: 10\n  starting_capital_max: 5\n",
		"no personalities":   "agents:\n  personalities: [gambler]\n",
		"bad ws url":         "feed:\n  ws_url: http://localhost\n",
		"unknown provider":   "llm:\n  enabled: true\n  provider: mystery\n",
		"roster personality": "agents:\n  roster:\n    - name: x\n      personality: gambler\n",
		"negative cache ttl": "agents:\n  decision_cache_ttl: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDumpMasksAPIKey(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.APIKey = "sk-abcdef123456"
	cfg.Agents.Roster = []RosterEntry{{Name: "Whale_1", Personality: "whale"}}
	out, err := Dump(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "****3456")
	assert.NotContains(t, out, "sk-abcdef")
	assert.Contains(t, out, "personality: whale")
}

func TestLoadDotEnvSkipsMissingFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	envPath := writeFile(t, dir, "test.env", "SWARM_DOTENV_PROBE=loaded\n")
	t.Setenv("SWARM_DOTENV_PROBE", "")
	os.Unsetenv("SWARM_DOTENV_PROBE")
	require.NoError(t, LoadDotEnv(envPath))
	assert.Equal(t, "loaded", os.Getenv("SWARM_DOTENV_PROBE"))
}
