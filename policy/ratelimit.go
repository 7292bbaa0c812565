// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit is a token-bucket Policy backed by golang.org/x/time/rate,
// sharing one byte-budget across every session that consults it (spec §4.9:
// "a policy may be shared by many sessions"). One token is one byte.
type RateLimit struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewRateLimit returns a RateLimit capping aggregate throughput to
// bytesPerSecond, with bursts up to burstBytes.
func NewRateLimit(bytesPerSecond float64, burstBytes int) *RateLimit {
	return &RateLimit{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burstBytes)}
}

// OkayToTransfer reports whether any budget remains this instant.
func (r *RateLimit) OkayToTransfer(_ Holder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limiter.Tokens() >= 1
}

// MaxTransferChunkSize caps a single holder's transfer at the full
// remaining budget (up to the configured burst); the reactor applies this
// per session per cycle, so one active session can use the whole bucket
// while an idle cycle lets it refill.
func (r *RateLimit) MaxTransferChunkSize(_ Holder) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	tokens := int(r.limiter.Tokens())
	if tokens <= 0 {
		return 0
	}
	if burst := r.limiter.Burst(); tokens > burst {
		tokens = burst
	}
	return tokens
}

// BytesTransferred spends n bytes of budget. Reservations are fire-and-forget:
// the I/O already happened, so there is nothing to cancel or delay on.
func (r *RateLimit) BytesTransferred(_ Holder, n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.ReserveN(time.Now(), n)
}

// BeginIO and EndIO are no-ops: the token bucket is continuous rather than
// reset per accounting cycle.
func (r *RateLimit) BeginIO(time.Time) {}
func (r *RateLimit) EndIO(time.Time)   {}

// NextPulseTime wakes the reactor once at least one more byte of budget
// becomes available, without consuming any budget itself.
func (r *RateLimit) NextPulseTime(_ time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	tokens := r.limiter.Tokens()
	if tokens >= 1 {
		return time.Time{}
	}
	limit := float64(r.limiter.Limit())
	if limit <= 0 {
		return time.Time{}
	}
	wait := time.Duration((1 - tokens) / limit * float64(time.Second))
	return time.Now().Add(wait)
}
