package genclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"grantdraft/internal/credential"
	"grantdraft/internal/proposal"
)

// Limiter is a token bucket allowing at most rps calls per second with a
// burst capacity. A nil Limiter never blocks.
type Limiter struct {
	tokens   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLimiter returns nil when rps <= 0.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	l := &Limiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
				}
			case <-l.stopCh:
				return
			}
		}
	}()
	return l
}

// Acquire blocks until a token is available or ctx ends.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// Stop ends the refill goroutine; later Acquire calls fail. Safe to call
// more than once.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// WithRateLimit throttles outgoing calls through l. A wait that ends early
// is reported as a generation failure.
func WithRateLimit(l *Limiter) Middleware {
	return func(next Generator) Generator {
		if l == nil {
			return next
		}
		return GeneratorFunc(func(ctx context.Context, prompt string, cred credential.Credential, file *proposal.AttachedFile) (string, error) {
			if cred.Empty() {
				return next.Generate(ctx, prompt, cred, file)
			}
			if err := l.Acquire(ctx); err != nil {
				return "", errors.Join(ErrGenerationFailed, err)
			}
			return next.Generate(ctx, prompt, cred, file)
		})
	}
}
