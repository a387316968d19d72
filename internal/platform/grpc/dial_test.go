package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestDialWithHealthSuccess(t *testing.T) {
	addr, _, stop := startHealthServer(t)
	defer stop()

	conn, err := DialWithHealth(context.Background(), addr, testService, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial with health: %v", err)
	}
	if conn == nil {
		t.Fatal("expected connection")
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close conn: %v", err)
	}
}

func TestDialWithHealthReportsHealthStage(t *testing.T) {
	addr, setStatus, stop := startHealthServer(t)
	defer stop()
	setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	start := time.Now()
	conn, err := DialWithHealth(context.Background(), addr, testService, 150*time.Millisecond, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected error")
	}
	var dialErr *DialError
	if !errors.As(err, &dialErr) {
		t.Fatalf("expected DialError, got %T", err)
	}
	if dialErr.Stage != DialStageHealth {
		t.Fatalf("stage = %q, want %q", dialErr.Stage, DialStageHealth)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected timeout to bound health wait, took %v", elapsed)
	}
}

func TestDialErrorFormatting(t *testing.T) {
	wrapped := &DialError{Stage: DialStageConnect, Err: fmt.Errorf("boom")}
	if !strings.Contains(wrapped.Error(), "gRPC connect") {
		t.Fatalf("unexpected error: %s", wrapped.Error())
	}
	if wrapped.Unwrap() == nil {
		t.Fatal("expected wrapped error")
	}

	var nilErr *DialError
	if nilErr.Error() == "" {
		t.Fatal("expected fallback error message")
	}
	if nilErr.Unwrap() != nil {
		t.Fatal("expected nil unwrap for nil error")
	}
}
