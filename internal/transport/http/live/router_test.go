package livehttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"swarm/internal/agent"
	"swarm/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type MockFleet struct {
	mock.Mock
}

func (m *MockFleet) Agents() []agent.Status {
	return m.Called().Get(0).([]agent.Status)
}

func (m *MockFleet) Agent(id string) (agent.Status, bool) {
	args := m.Called(id)
	return args.Get(0).(agent.Status), args.Bool(1)
}

func (m *MockFleet) Stop(id string) error    { return m.Called(id).Error(0) }
func (m *MockFleet) Restart(id string) error { return m.Called(id).Error(0) }
func (m *MockFleet) CacheSize() int          { return m.Called().Int(0) }

type MockLogs struct {
	mock.Mock
}

func (m *MockLogs) List(ctx context.Context, q store.Query) ([]store.Entry, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Entry), args.Error(1)
}

func serve(t *testing.T, fleet Fleet, logs DecisionLog, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv, err := NewServer(ServerConfig{Fleet: fleet, Logs: logs})
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresFleet(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	rec := serve(t, new(MockFleet), nil, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
}

func TestListAgents(t *testing.T) {
	fleet := new(MockFleet)
	fleet.On("Agents").Return([]agent.Status{
		{ID: "a1", Name: "Agent_1", Personality: "whale", State: agent.StateRunning},
		{ID: "a2", Name: "Agent_2", Personality: "neutral", State: agent.StateFailed, Error: "read: EOF"},
	})
	fleet.On("CacheSize").Return(3)

	rec := serve(t, fleet, nil, http.MethodGet, "/api/agents")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, int64(2), gjson.Get(body, "total").Int())
	assert.Equal(t, "whale", gjson.Get(body, "agents.0.personality").String())
	assert.Equal(t, "read: EOF", gjson.Get(body, "agents.1.error").String())
	assert.Equal(t, int64(1), gjson.Get(body, "states.failed").Int())
	assert.Equal(t, int64(3), gjson.Get(body, "cache_size").Int())
}

func TestGetAgent(t *testing.T) {
	fleet := new(MockFleet)
	fleet.On("Agent", "a1").Return(agent.Status{ID: "a1", State: agent.StateStopped}, true)
	fleet.On("Agent", "nope").Return(agent.Status{}, false)

	rec := serve(t, fleet, nil, http.MethodGet, "/api/agents/a1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stopped", gjson.Get(rec.Body.String(), "state").String())

	rec = serve(t, fleet, nil, http.MethodGet, "/api/agents/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopAndRestart(t *testing.T) {
	fleet := new(MockFleet)
	fleet.On("Stop", "a1").Return(nil)
	fleet.On("Restart", "a1").Return(nil)
	fleet.On("Stop", "ghost").Return(ErrAgentNotFound)
	fleet.On("Restart", "a2").Return(errors.New("boom"))

	rec := serve(t, fleet, nil, http.MethodPost, "/api/agents/a1/stop")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "stop", gjson.Get(rec.Body.String(), "op").String())

	rec = serve(t, fleet, nil, http.MethodPost, "/api/agents/a1/restart")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = serve(t, fleet, nil, http.MethodPost, "/api/agents/ghost/stop")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, fleet, nil, http.MethodPost, "/api/agents/a2/restart")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	fleet.AssertExpectations(t)
}

func TestDecisions(t *testing.T) {
	logs := new(MockLogs)
	logs.On("List", mock.Anything, store.Query{AgentID: "a1", Outcome: "executed", Limit: 500}).
		Return([]store.Entry{{TraceID: "t1", AgentID: "a1", Outcome: "executed"}}, nil)
	logs.On("List", mock.Anything, store.Query{Limit: 50}).Return(nil, errors.New("db closed"))

	rec := serve(t, new(MockFleet), logs, http.MethodGet, "/api/decisions?agent_id=a1&outcome=executed&limit=9000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", gjson.Get(rec.Body.String(), "decisions.0.trace_id").String())
	assert.Equal(t, int64(500), gjson.Get(rec.Body.String(), "limit").Int())

	rec = serve(t, new(MockFleet), logs, http.MethodGet, "/api/decisions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, new(MockFleet), nil, http.MethodGet, "/api/decisions")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
