package utils

import "time"

// RetryConfig controls Retry. Multiplier 1 gives a fixed delay between
// attempts, which carrier APIs with per-minute quotas prefer over
// exponential backoff.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	return cfg
}

// Retry runs fn up to MaxAttempts times, sleeping between attempts.
// It returns nil on the first success, or the last error.
func Retry(cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()

	var err error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		time.Sleep(delay)
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return err
}
