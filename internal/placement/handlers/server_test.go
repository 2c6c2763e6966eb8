package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestServer_Healthz(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(0, 0, logger)

	rec := httptest.NewRecorder()
	s.healthz(stubPinger{})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.healthz(stubPinger{err: errors.New("db down")})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestServer_StartStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	// Fixed ports so we know what address to dial.
	s := NewServer(50061, 8097, logger, grpc.Creds(insecure.NewCredentials()))
	require.NoError(t, s.RegisterHTTPHandler(NewAPI(Services{}, logger), stubPinger{}, "secret"))
	assert.Equal(t, s.httpEndpoint, s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	time.Sleep(200 * time.Millisecond)

	conn, err := grpc.NewClient("localhost"+s.grpcEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	_ = conn.Close()

	httpResp, err := http.Get("http://localhost" + s.httpEndpoint + "/healthz")
	require.NoError(t, err)
	_ = httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)

	s.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server to stop")
	}

	lis, err := net.Listen("tcp", s.grpcEndpoint)
	require.NoError(t, err)
	_ = lis.Close()
}

func TestLoggingInterceptor(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	interceptor := LoggingInterceptor(zap.New(core))

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	resp, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	entries := recorded.FilterMessage("gRPC call").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/grpc.health.v1.Health/Check", entries[0].ContextMap()["method"])
	assert.Equal(t, "OK", entries[0].ContextMap()["code"])
}
