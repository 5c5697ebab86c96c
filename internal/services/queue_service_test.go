package services

import (
	"testing"
	"time"
)

func TestComputeJobKey(t *testing.T) {
	if key := ComputeJobKey("abc123"); key != "compute:abc123" {
		t.Errorf("Expected compute:abc123, got %s", key)
	}
	if key := ComputeJobKey(""); key != "compute:general" {
		t.Errorf("Expected compute:general, got %s", key)
	}
}

func TestRetryDelayExponential(t *testing.T) {
	base := 5 * time.Second

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{0, 5 * time.Second}, // clamped to first retry
	}

	for _, tt := range tests {
		if got := RetryDelay(tt.attempt, base); got != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestQueuePolicies(t *testing.T) {
	compute := ComputeJobOptions("compute:x")
	if compute.Attempts != 1 {
		t.Errorf("Compute queue must not retry, got %d attempts", compute.Attempts)
	}
	if compute.UniqueKey != "compute:x" {
		t.Errorf("Compute jobs must carry their dedup key")
	}

	embed := EmbedJobOptions()
	if embed.Attempts != 3 {
		t.Errorf("Embed queue should allow 3 attempts, got %d", embed.Attempts)
	}
	if embed.Backoff != 5*time.Second {
		t.Errorf("Embed queue backoff base should be 5s, got %v", embed.Backoff)
	}
}
