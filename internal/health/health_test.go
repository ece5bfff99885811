package health

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type recordingSetter struct {
	mu       sync.Mutex
	statuses map[string]healthpb.HealthCheckResponse_ServingStatus
}

func (r *recordingSetter) SetServingStatus(service string, st healthpb.HealthCheckResponse_ServingStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = map[string]healthpb.HealthCheckResponse_ServingStatus{}
	}
	r.statuses[service] = st
}

func (r *recordingSetter) get(service string) healthpb.HealthCheckResponse_ServingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[service]
}

func TestService_Check(t *testing.T) {
	db := new(MockPinger)
	db.On("Ping", mock.Anything).Return(nil)
	svc := NewService("1.2.3", time.Second, map[string]Pinger{"store": db})
	svc.started = time.Now().Add(-90 * time.Second)

	rep := svc.Check(context.Background())
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.Equal(t, "1.2.3", rep.Version)
	assert.GreaterOrEqual(t, rep.Uptime, 90.0)
	assert.Equal(t, StatusHealthy, rep.Checks["store"].Status)
	db.AssertExpectations(t)
}

func TestService_CheckUnhealthy(t *testing.T) {
	db := new(MockPinger)
	db.On("Ping", mock.Anything).Return(errors.New("connection refused"))
	ok := new(MockPinger)
	ok.On("Ping", mock.Anything).Return(nil)

	rep := NewService("dev", 0, map[string]Pinger{"store": db, "other": ok}).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, rep.Status)
	assert.Equal(t, "connection refused", rep.Checks["store"].Error)
	assert.Equal(t, StatusHealthy, rep.Checks["other"].Status)
}

func TestScheduler_MirrorsStatus(t *testing.T) {
	db := new(MockPinger)
	db.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	db.On("Ping", mock.Anything).Return(nil)

	setter := &recordingSetter{}
	s := NewScheduler(SchedulerConfig{Interval: 20 * time.Millisecond}, NewService("dev", 0, map[string]Pinger{"store": db}), setter)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return setter.get(ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, s.Last())
	assert.Equal(t, StatusHealthy, s.Last().Status)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, setter.get(""))
}

func TestGRPCServer_HealthCheck(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv, hs := NewGRPCServer()
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
