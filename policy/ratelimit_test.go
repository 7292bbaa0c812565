package policy

import (
	"testing"
	"time"
)

func TestRateLimitCapsChunkSizeToBurst(t *testing.T) {
	r := NewRateLimit(100, 50)
	if !r.OkayToTransfer("session-1") {
		t.Fatalf("expected a fresh limiter to start with full budget")
	}
	if n := r.MaxTransferChunkSize("session-1"); n != 50 {
		t.Fatalf("MaxTransferChunkSize = %d, want burst 50", n)
	}
}

func TestRateLimitAccountsBytesTransferred(t *testing.T) {
	r := NewRateLimit(100, 50)
	r.BytesTransferred("session-1", 50)
	if n := r.MaxTransferChunkSize("session-1"); n != 0 {
		t.Fatalf("MaxTransferChunkSize after spending the whole burst = %d, want 0", n)
	}
	if r.OkayToTransfer("session-1") {
		t.Fatalf("expected OkayToTransfer to be false once the budget is exhausted")
	}
	if pulse := r.NextPulseTime(time.Now()); pulse.IsZero() {
		t.Fatalf("expected a non-zero NextPulseTime once the budget is exhausted")
	}
}

func TestRateLimitSharedAcrossHolders(t *testing.T) {
	r := NewRateLimit(1000, 10)
	r.BytesTransferred("a", 4)
	if n := r.MaxTransferChunkSize("b"); n != 6 {
		t.Fatalf("MaxTransferChunkSize for a different holder = %d, want the shared remaining 6", n)
	}
}
