package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNoFrame is returned by a PointSource when a frame could not be read.
// Run logs it and retries after a delay.
var ErrNoFrame = errors.New("camera: no frame")

// PointSource yields the pointer positions visible in successive frames.
type PointSource interface {
	// Next blocks until the next frame and returns its pointers.
	Next() ([]Point, error)

	// Close releases the capture device.
	Close() error
}

// Retry delays after consecutive ErrNoFrame reads. The delay doubles per miss
// and resets on the next good frame.
const (
	noFrameBackoffMin = 10 * time.Millisecond
	noFrameBackoffMax = time.Second
)

// Run feeds frames from src into tr until ctx is cancelled or src fails.
// Missing frames are retried with a growing delay, so a dead camera does not
// spin. Any held hotspots are released on the way out.
func Run(ctx context.Context, src PointSource, tr *Tracker, now func() time.Time) error {
	defer tr.Reset()

	dropped := 0
	backoff := noFrameBackoffMin
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		points, err := src.Next()
		if errors.Is(err, ErrNoFrame) {
			dropped++
			if dropped == 1 || dropped%100 == 0 {
				log.Printf("camera: dropped %d frames, retrying in %v", dropped, backoff)
			}
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, noFrameBackoffMax)
			continue
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		backoff = noFrameBackoffMin
		tr.Update(now(), points)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
