package health

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the grpc_health_v1 service key the analytics API reports under.
const ServiceName = "incident.analytics.v1.Analytics"

// NewGRPCServer returns a gRPC server exposing only the standard health
// service, plus the health server so a Scheduler can drive it.
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return srv, hs
}

// StatusSetter is the part of *health.Server the Scheduler drives.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

func servingStatus(s Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == StatusHealthy {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
