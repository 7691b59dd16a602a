package job

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"hark/blob"
)

// The storage backend is eventually consistent between a successful write
// and visibility on other read paths, so the pipeline must not hand the
// recognizer an object it cannot read yet. The poll is a deliberate bounded
// wait: fixed delay, no jitter, no backoff.
const (
	DefaultConfirmRetries = 20
	DefaultConfirmDelay   = 1000 * time.Millisecond
)

// Poller confirms that a written object is visible to downstream readers.
type Poller struct {
	Blobs  blob.Store
	Logger *log.Logger

	// Retries and Delay default to the production bounds; tests shrink them.
	Retries int
	Delay   time.Duration
}

// Confirm performs up to Retries existence checks spaced Delay apart and
// returns DurabilityTimeoutError only after all of them fail. A transport
// error on a single check counts as "not yet visible" and consumes one
// retry rather than aborting the poll.
func (p *Poller) Confirm(ctx context.Context, key string) error {
	retries := p.Retries
	if retries <= 0 {
		retries = DefaultConfirmRetries
	}
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}

	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		visible, err := p.Blobs.Exists(ctx, key)
		if err != nil {
			if p.Logger != nil {
				p.Logger.Warn("existence check failed, treating as not visible",
					"object", key, "attempt", attempt, "error", err)
			}
			continue
		}
		if visible {
			return nil
		}
	}

	return &DurabilityTimeoutError{Ref: key, Checks: retries}
}
