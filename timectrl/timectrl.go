package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the FrameClock advances between frames.
type Mode int

const (
	// RealTime advances one frame per Tick of wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as listeners can consume frames.
	Accelerated
)

// Frame is one step of a playback.
type Frame struct {
	Index int
	// T is the normalised playback position in [0, 1].
	T float64
	// Elapsed is the playback time of this frame, Index * Tick.
	Elapsed time.Duration
}

// FrameClock steps a frame index over a fixed frame count and notifies
// registered listeners on every frame.
type FrameClock struct {
	mu     sync.RWMutex
	Frames int
	Tick   time.Duration
	Mode   Mode

	current int

	listeners []func(Frame)
}

// NewFrameClock constructs a clock over frames frames. A non-positive tick
// falls back to one frame per 50ms.
func NewFrameClock(frames int, tick time.Duration, mode Mode) *FrameClock {
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	if frames < 1 {
		frames = 1
	}
	return &FrameClock{
		Frames: frames,
		Tick:   tick,
		Mode:   mode,
	}
}

// Current returns the frame the clock is positioned on.
func (fc *FrameClock) Current() Frame {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.frameLocked(fc.current)
}

// Seek positions the clock on index, clamped to the valid range.
func (fc *FrameClock) Seek(index int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.current = clamp(index, 0, fc.Frames-1)
}

// AddListener registers a callback invoked on every frame.
func (fc *FrameClock) AddListener(fn func(Frame)) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.listeners = append(fc.listeners, fn)
}

// Start plays from the current frame to the last one in a separate goroutine.
// The current frame is emitted immediately. It returns a channel that is
// closed when the last frame has been emitted or ctx is done.
func (fc *FrameClock) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var ticks <-chan time.Time
		if fc.Mode == RealTime {
			ticker := time.NewTicker(fc.Tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		for {
			fc.mu.RLock()
			frame := fc.frameLocked(fc.current)
			listeners := append(([]func(Frame))(nil), fc.listeners...)
			fc.mu.RUnlock()

			for _, fn := range listeners {
				fn(frame)
			}
			if frame.Index >= fc.Frames-1 {
				return
			}

			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}

			fc.mu.Lock()
			if fc.current < fc.Frames-1 {
				fc.current++
			}
			fc.mu.Unlock()
		}
	}()
	return done
}

// frameLocked must be called with fc.mu held.
func (fc *FrameClock) frameLocked(index int) Frame {
	t := 1.0
	if fc.Frames > 1 {
		t = float64(index) / float64(fc.Frames-1)
	}
	return Frame{
		Index:   index,
		T:       t,
		Elapsed: time.Duration(index) * fc.Tick,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
