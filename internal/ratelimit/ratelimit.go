// Package ratelimit throttles file transfers to a fixed number of bytes per
// second using a token bucket from golang.org/x/time/rate.
//
// The bucket holds one second worth of data, so short bursts go through
// immediately while the average rate stays at the configured limit.
package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxChunk bounds a single token request so that large buffers are split
// into several waits instead of one long sleep.
const maxChunk = 32 * 1024

// Limiter limits a transfer to a number of bytes per second.
// A nil *Limiter means unlimited.
type Limiter struct {
	lim   *rate.Limiter
	burst int
}

// New returns a limiter for bytesPerSecond, or nil when the rate is not positive.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := maxChunk
	if bytesPerSecond < int64(burst) {
		burst = int(bytesPerSecond)
	}

	return &Limiter{
		lim:   rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst: burst,
	}
}

// Rate returns the configured limit in bytes per second, 0 for a nil limiter.
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return int64(l.lim.Limit())
}

// chunk returns how many bytes of an n-byte operation may proceed at once.
func (l *Limiter) chunk(n int) int {
	if n > l.burst {
		return l.burst
	}
	return n
}

type reader struct {
	ctx     context.Context
	r       io.Reader
	limiter *Limiter
}

// NewReader wraps r so that reads do not exceed the limiter's rate.
// If limiter is nil, r is returned unchanged.
func NewReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, limiter: limiter}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := r.limiter.chunk(len(p))
	if err := r.limiter.lim.WaitN(r.ctx, n); err != nil {
		return 0, err
	}
	return r.r.Read(p[:n])
}

type writer struct {
	ctx     context.Context
	w       io.Writer
	limiter *Limiter
}

// NewWriter wraps w so that writes do not exceed the limiter's rate.
// If limiter is nil, w is returned unchanged.
func NewWriter(ctx context.Context, w io.Writer, limiter *Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &writer{ctx: ctx, w: w, limiter: limiter}
}

// Write consumes tokens before each chunk to apply backpressure.
func (w *writer) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n := w.limiter.chunk(len(p) - total)
		if err := w.limiter.lim.WaitN(w.ctx, n); err != nil {
			return total, err
		}

		written, err := w.w.Write(p[total : total+n])
		total += written
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
