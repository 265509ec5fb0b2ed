package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/itsmrshow/foreman/internal/world"
)

const (
	defaultLoadAttempts = 3
	defaultLoadBackoff  = 500 * time.Millisecond
)

// loadWithRetry retries a world load with exponential backoff. A snapshot
// caught mid-write fails to parse and usually succeeds on the next try; a
// missing file does not, so it is returned at once.
func loadWithRetry(ctx context.Context, source Source, attempts int, backoff time.Duration) (world.World, world.Tick, error) {
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, fmt.Errorf("context canceled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		w, tick, err := source.Load(ctx)
		if err == nil {
			return w, tick, nil
		}
		lastErr = err

		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, err
		}
	}

	return nil, 0, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
