package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"swarm/internal/agent"
	"swarm/internal/config"
	"swarm/internal/decision"
	"swarm/internal/feed"
	"swarm/internal/scheduler"
	"swarm/internal/strategy"
	livehttp "swarm/internal/transport/http/live"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentsConfig() config.AgentsConfig {
	return config.AgentsConfig{
		Count:              4,
		StartingCapitalMin: 10000,
		StartingCapitalMax: 50000,
		Personalities:      []string{"whale", "predator", "neutral"},
		UpdateInterval:     4,
		DecisionCacheTTL:   12,
		MinPriceChangePct:  0.0025,
		NewsWindow:         5,
	}
}

func TestPlanRosterRandomAgents(t *testing.T) {
	seats := planRoster(agentsConfig(), strategy.NewRand(42))
	require.Len(t, seats, 4)

	allowed := map[strategy.Personality]bool{
		strategy.ParsePersonality("whale"):    true,
		strategy.ParsePersonality("predator"): true,
		strategy.Neutral:                      true,
	}
	ids := map[string]bool{}
	for i, s := range seats {
		assert.Equal(t, fmt.Sprintf("Agent_%d", i+1), s.identity.Name)
		assert.NotEmpty(t, s.identity.ID)
		ids[s.identity.ID] = true
		assert.True(t, allowed[s.identity.Personality], s.identity.Personality.String())
		assert.GreaterOrEqual(t, s.identity.StartingCapital, 10000.0)
		assert.LessOrEqual(t, s.identity.StartingCapital, 50000.0)
		assert.InDelta(t, roundCents(s.identity.StartingCapital), s.identity.StartingCapital, 1e-9)
		assert.GreaterOrEqual(t, s.interval, 2800*time.Millisecond)
		assert.LessOrEqual(t, s.interval, 5200*time.Millisecond)
	}
	assert.Len(t, ids, 4)
}

func TestPlanRosterIsDeterministicPerSeed(t *testing.T) {
	a := planRoster(agentsConfig(), strategy.NewRand(7))
	b := planRoster(agentsConfig(), strategy.NewRand(7))
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].identity.Personality, b[i].identity.Personality)
		assert.Equal(t, a[i].identity.StartingCapital, b[i].identity.StartingCapital)
		assert.Equal(t, a[i].interval, b[i].interval)
		assert.Equal(t, a[i].seed, b[i].seed)
	}
}

func TestPlanRosterAppendsExplicitEntries(t *testing.T) {
	cfg := agentsConfig()
	cfg.Count = 1
	cfg.Roster = []config.RosterEntry{
		{ID: "whale-1", Name: "Moby", Personality: "whale", Capital: 250000.456, UpdateInterval: 10},
		{},
	}
	seats := planRoster(cfg, strategy.NewRand(1))
	require.Len(t, seats, 3)

	moby := seats[1]
	assert.Equal(t, "whale-1", moby.identity.ID)
	assert.Equal(t, "Moby", moby.identity.Name)
	assert.Equal(t, strategy.ParsePersonality("whale"), moby.identity.Personality)
	assert.InDelta(t, 250000.46, moby.identity.StartingCapital, 1e-9)
	assert.GreaterOrEqual(t, moby.interval, 7*time.Second)
	assert.LessOrEqual(t, moby.interval, 13*time.Second)

	anon := seats[2]
	require.Len(t, anon.identity.ID, 36)
	assert.Equal(t, "Agent_"+anon.identity.ID[:8], anon.identity.Name)
	assert.Equal(t, strategy.Neutral, anon.identity.Personality)
	assert.InDelta(t, defaultRosterCapital, anon.identity.StartingCapital, 1e-9)
}

func TestPlanRosterEdgeCases(t *testing.T) {
	cfg := config.AgentsConfig{Count: 2, StartingCapitalMin: 5000, StartingCapitalMax: 5000}
	seats := planRoster(cfg, strategy.NewRand(3))
	require.Len(t, seats, 2)
	for _, s := range seats {
		assert.Equal(t, strategy.Neutral, s.identity.Personality)
		assert.InDelta(t, 5000, s.identity.StartingCapital, 1e-9)
		assert.Equal(t, scheduler.MinInterval, s.interval)
	}
	assert.Empty(t, planRoster(config.AgentsConfig{}, strategy.NewRand(3)))
}

func TestRoundCents(t *testing.T) {
	assert.InDelta(t, 12345.68, roundCents(12345.675), 1e-9)
	assert.InDelta(t, 0.1, roundCents(0.1), 1e-12)
	assert.Equal(t, "abcdefgh", shortID("abcdefgh-1234"))
	assert.Equal(t, "abc", shortID("abc"))
}

// fakeSession 永远连不上撮合端。
type fakeSession struct {
	reg feed.Registration
	st  *feed.State
}

func (f *fakeSession) Connect(ctx context.Context) error {
	return errors.New("exchange offline")
}
func (f *fakeSession) Run(ctx context.Context) error { <-ctx.Done(); return nil }
func (f *fakeSession) RequestPortfolio(context.Context) error { return nil }
func (f *fakeSession) Close() error { return nil }
func (f *fakeSession) PlaceOrder(context.Context, decision.Order) error {
	return feed.ErrNotConnected
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{LogLevel: "error"},
		Agents: agentsConfig(),
		Feed:   config.FeedConfig{WSURL: "ws://127.0.0.1:1/ws", HandshakeTimeoutSeconds: 1},
		Store:  config.StoreConfig{Path: filepath.Join(t.TempDir(), "swarm.db")},
	}
}

func buildTestApp(t *testing.T, cfg *config.Config, sessions *[]*fakeSession) *App {
	t.Helper()
	b := NewAppBuilder(cfg,
		WithoutHTTP(),
		WithSeed(11),
		WithSessionFactory(func(_ feed.WSConfig, reg feed.Registration, st *feed.State) Session {
			s := &fakeSession{reg: reg, st: st}
			if sessions != nil {
				*sessions = append(*sessions, s)
			}
			return s
		}),
	)
	app, err := b.Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestBuildAssemblesFleet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.Roster = []config.RosterEntry{{Name: "Moby", Personality: "whale"}}

	var sessions []*fakeSession
	app := buildTestApp(t, cfg, &sessions)

	require.Equal(t, 5, app.Fleet().Len())
	require.Len(t, sessions, 5)
	for _, s := range sessions {
		assert.NotEmpty(t, s.reg.AgentID)
		assert.NotNil(t, s.st)
	}
	assert.Equal(t, "Moby", sessions[4].reg.Name)
	assert.Equal(t, "whale", sessions[4].reg.Personality)

	statuses := app.Fleet().Agents()
	require.Len(t, statuses, 5)
	for _, st := range statuses {
		assert.Equal(t, agent.StateIdle, st.State)
	}
	assert.Nil(t, app.liveHTTP)
	assert.NotNil(t, app.journal)
	require.NotNil(t, app.Summary)
	assert.Len(t, app.Summary.Agents, 5)
	assert.False(t, app.Summary.Engine.Classifier)
	assert.Empty(t, app.Summary.Engine.External)
	assert.Equal(t, 12*time.Second, app.Summary.Engine.CacheTTL)
}

func TestBuildWithExternalSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Path = ""
	cfg.LLM = config.LLMConfig{Enabled: true, Provider: "openai", Model: "gpt-test"}

	called := 0
	b := NewAppBuilder(cfg, WithoutHTTP(),
		WithSessionFactory(func(_ feed.WSConfig, reg feed.Registration, st *feed.State) Session {
			return &fakeSession{reg: reg, st: st}
		}),
		WithSourceBuilder(func(c config.LLMConfig) (decision.ExternalSource, error) {
			called++
			assert.Equal(t, "gpt-test", c.Model)
			return nil, errors.New("no key")
		}),
	)
	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, called)
}

func TestBuildRejectsNilConfig(t *testing.T) {
	_, err := NewAppBuilder(nil).Build(context.Background())
	assert.Error(t, err)
	_, err = NewApp(nil)
	assert.Error(t, err)
}

func TestFleetControlUnknownAgent(t *testing.T) {
	app := buildTestApp(t, testConfig(t), nil)
	fleet := app.Fleet()

	assert.ErrorIs(t, fleet.Stop("ghost"), livehttp.ErrAgentNotFound)
	assert.ErrorIs(t, fleet.Restart("ghost"), livehttp.ErrAgentNotFound)
	_, ok := fleet.Agent("ghost")
	assert.False(t, ok)

	first := fleet.Agents()[0]
	st, ok := fleet.Agent(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.Name, st.Name)
	assert.NoError(t, fleet.Stop(first.ID))
	assert.Equal(t, 0, fleet.CacheSize())
}

func TestFleetRunSurfacesConnectFailure(t *testing.T) {
	app := buildTestApp(t, testConfig(t), nil)
	fleet := app.Fleet()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fleet.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, st := range fleet.Agents() {
			if st.State != agent.StateFailed {
				return false
			}
		}
		return true
	}, 10*time.Second, 20*time.Millisecond)
	for _, st := range fleet.Agents() {
		assert.Contains(t, st.Error, "exchange offline")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("fleet did not stop")
	}
}

func TestEmptyFleetRefusesToRun(t *testing.T) {
	assert.Error(t, NewFleet(nil, nil).Run(context.Background()))
}

func TestAppRunRequiresFleet(t *testing.T) {
	var a *App
	assert.Error(t, a.Run(context.Background()))
	assert.Error(t, (&App{cfg: &config.Config{}}).Run(context.Background()))
}
