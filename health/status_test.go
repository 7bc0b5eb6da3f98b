package health

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatus_States(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		wantHealthy   bool
		wantDegraded  bool
		wantUnhealthy bool
	}{
		{"healthy", Status{Status: StateHealthy}, true, false, false},
		{"degraded", Status{Status: StateDegraded}, false, true, false},
		{"unhealthy", Status{Status: StateUnhealthy}, false, false, true},
		{"empty", Status{}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.wantHealthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.wantHealthy)
			}
			if got := tt.status.IsDegraded(); got != tt.wantDegraded {
				t.Errorf("IsDegraded() = %v, want %v", got, tt.wantDegraded)
			}
			if got := tt.status.IsUnhealthy(); got != tt.wantUnhealthy {
				t.Errorf("IsUnhealthy() = %v, want %v", got, tt.wantUnhealthy)
			}
		})
	}
}

func TestStatus_WithMetrics(t *testing.T) {
	original := NewHealthy("messages", "ok")
	metrics := &Metrics{LastDuration: time.Second, Samples: 12}

	withMetrics := original.WithMetrics(metrics)

	if original.Metrics != nil {
		t.Error("WithMetrics should not modify the receiver")
	}
	if withMetrics.Metrics != metrics {
		t.Error("WithMetrics should attach the given metrics")
	}
}

func TestFromError(t *testing.T) {
	healthy := FromError("database", nil)
	if !healthy.IsHealthy() || !healthy.Healthy {
		t.Errorf("nil error should be healthy, got %+v", healthy)
	}
	if healthy.Message != "ok" {
		t.Errorf("expected message 'ok', got %q", healthy.Message)
	}

	unhealthy := FromError("database", errTest("query failed"))
	if !unhealthy.IsUnhealthy() || unhealthy.Healthy {
		t.Errorf("error should be unhealthy, got %+v", unhealthy)
	}
	if unhealthy.Message != "remote_error: query failed" {
		t.Errorf("unexpected message %q", unhealthy.Message)
	}
}

func TestStatus_JSON(t *testing.T) {
	status := NewUnhealthy("connection", "timeout: deadline exceeded").WithMetrics(&Metrics{
		ConsecutiveFailures: 2,
		LastErrorType:       "timeout",
	})

	data, err := json.Marshal(status)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["status"] != StateUnhealthy {
		t.Errorf("expected status %q, got %v", StateUnhealthy, decoded["status"])
	}
	if _, ok := decoded["sub_statuses"]; ok {
		t.Error("empty sub_statuses should be omitted")
	}
	metrics, ok := decoded["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("metrics missing from %s", data)
	}
	if metrics["last_error_type"] != "timeout" {
		t.Errorf("expected last_error_type timeout, got %v", metrics["last_error_type"])
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
