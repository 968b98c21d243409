package resource

import (
	"context"
	"io"
)

// RateLimitedWriterAt charges every positional write against the IO limit.
type RateLimitedWriterAt struct {
	w   io.WriterAt
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedWriterAt wraps w. A nil controller disables limiting.
func NewRateLimitedWriterAt(ctx context.Context, w io.WriterAt, rc *Controller) *RateLimitedWriterAt {
	return &RateLimitedWriterAt{w: w, rc: rc, ctx: ctx}
}

func (w *RateLimitedWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.WriteAt(p, off)
}

// RateLimitedReaderAt charges every positional read against the IO limit.
type RateLimitedReaderAt struct {
	r   io.ReaderAt
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedReaderAt wraps r. A nil controller disables limiting.
func NewRateLimitedReaderAt(ctx context.Context, r io.ReaderAt, rc *Controller) *RateLimitedReaderAt {
	return &RateLimitedReaderAt{r: r, rc: rc, ctx: ctx}
}

func (r *RateLimitedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if err := r.rc.AcquireIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.ReadAt(p, off)
}
