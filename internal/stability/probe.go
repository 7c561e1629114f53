package stability

import (
	"context"
	"os"
	"time"
)

// Probe infers write-completion by polling a file's size: the file is
// considered stable once the same size is observed on two consecutive polls.
type Probe struct {
	Interval time.Duration
	Timeout  time.Duration
}

func New(interval, timeout time.Duration) Probe {
	return Probe{Interval: interval, Timeout: timeout}
}

// Wait blocks until path is stable, the timeout elapses, or ctx is done.
// It returns false with a nil error on timeout: the caller may proceed but
// must treat the file as possibly incomplete. A file that does not exist yet
// counts as not stable and keeps being polled; the writer may not have
// created it at probe time.
func (p Probe) Wait(ctx context.Context, path string) (bool, error) {
	deadline := time.Now().Add(p.Timeout)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	lastSize := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err == nil {
			size := info.Size()
			if size == lastSize {
				return true, nil
			}
			lastSize = size
		} else {
			lastSize = -1
		}

		if time.Now().After(deadline) {
			return false, nil
		}
	}
}
