package transport

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ScannerService is the health service name that tracks whether the scanner has reached the chain tip.
const ScannerService = "coinindex.Scanner"

// ScannerHealth publishes scanner progress through the standard gRPC health service.
type ScannerHealth struct {
	server *health.Server
}

// NewScannerHealth reports the process as serving and the scanner as not yet drained.
func NewScannerHealth() *ScannerHealth {
	server := health.NewServer()
	server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	server.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &ScannerHealth{server: server}
}

// Server returns the health service for registration on a gRPC server.
func (h *ScannerHealth) Server() healthpb.HealthServer {
	return h.server
}

func (h *ScannerHealth) SetScanning() {
	h.server.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_NOT_SERVING)
}

func (h *ScannerHealth) SetDrained() {
	h.server.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown marks every service NOT_SERVING so clients stop routing here.
func (h *ScannerHealth) Shutdown() {
	h.server.Shutdown()
}
