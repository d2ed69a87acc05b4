package resilience

import "time"

// Config tunes retries and the per-operation circuit breakers. Zero values
// fall back to DefaultConfig.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	// OperationAttempts caps attempts for a named operation below or above
	// RetryMaxAttempts, e.g. "nats.publish": 2.
	OperationAttempts map[string]int

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
	// BreakerWindow clears closed-state counts periodically; zero keeps them
	// until the breaker changes state.
	BreakerWindow time.Duration

	// OnStateChange receives the operation name and the new breaker state.
	OnStateChange func(operation, state string)
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
		BreakerWindow:           time.Minute,
	}
}

func positive[T int | uint32 | float64 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	out.RetryMaxAttempts = positive(c.RetryMaxAttempts, def.RetryMaxAttempts)
	out.RetryInitialBackoff = positive(c.RetryInitialBackoff, def.RetryInitialBackoff)
	out.RetryMaxBackoff = max(positive(c.RetryMaxBackoff, def.RetryMaxBackoff), out.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	out.BreakerMinRequests = positive(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = positive(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = positive(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	if c.BreakerWindow < 0 {
		out.BreakerWindow = 0
	}

	return out
}

func (c Config) attemptsFor(operation string) int {
	if n, ok := c.OperationAttempts[operation]; ok && n > 0 {
		return n
	}
	return c.RetryMaxAttempts
}
