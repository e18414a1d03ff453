package errors

import (
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestIsTransientExplicitMarkers(t *testing.T) {
	base := fmt.Errorf("backend unavailable")

	if !IsTransient(NewTransientError(base, "")) {
		t.Fatal("TransientError should be transient")
	}
	if IsTransient(NewPermanentError(base, "")) {
		t.Fatal("PermanentError should not be transient")
	}
	if IsTransient(nil) {
		t.Fatal("nil error should not be transient")
	}
}

func TestIsTransientNetworkErrors(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	if !IsTransient(opErr) {
		t.Fatal("connection refused should be transient")
	}
	if !IsTransient(fmt.Errorf("read tcp: connection reset by peer")) {
		t.Fatal("connection reset should be transient")
	}
	if IsTransient(fmt.Errorf("invalid payload shape")) {
		t.Fatal("plain application error should not be transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	if !IsTransient(&TransientError{Err: fmt.Errorf("status"), StatusCode: 503}) {
		t.Fatal("503 should be transient")
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	if err := cb.Allow(); err != nil {
		t.Fatalf("closed breaker should allow: %v", err)
	}

	failure := fmt.Errorf("boom")
	cb.Mark(failure)
	cb.Mark(failure)

	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.State())
	}
	if err := cb.Allow(); err == nil {
		t.Fatal("open breaker should reject")
	} else if !IsTransient(err) {
		t.Fatalf("breaker rejection should be transient, got %v", err)
	}

	time.Sleep(15 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("half-open breaker should allow probe: %v", err)
	}
	cb.Mark(nil)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed state after recovery, got %v", cb.State())
	}
}
