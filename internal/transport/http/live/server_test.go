package livehttp

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartAndShutdown(t *testing.T) {
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Fleet: new(MockFleet)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "127.0.0.1:0" }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerStartReportsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv, err := NewServer(ServerConfig{Addr: ln.Addr().String(), Fleet: new(MockFleet)})
	require.NoError(t, err)
	assert.Error(t, srv.Start(context.Background()))
}
