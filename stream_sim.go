package mdstream

import (
	"context"
	"fmt"
	"io"
	"time"
)

// StreamSimulateRequest configures StreamSimulate.
type StreamSimulateRequest struct {
	Reader    io.Reader
	Writer    io.Writer
	Format    Format
	Width     int
	Theme     Theme
	ChunkSize int
	Delay     time.Duration
	Options   []Option
}

// StreamSimulate renders Reader the way a token stream arrives from a
// language model: in chunks of at most ChunkSize bytes, one every Delay.
// Text is flushed at the end of every chunk so output appears as it would
// live.
func StreamSimulate(ctx context.Context, req StreamSimulateRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("stream simulate: Reader is nil")
	}
	if req.Writer == nil {
		return fmt.Errorf("stream simulate: Writer is nil")
	}
	if req.ChunkSize <= 0 {
		return fmt.Errorf("stream simulate: ChunkSize must be > 0")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts := append(append([]Option(nil), req.Options...), WithEagerText(true))
	return Render(RenderRequest{
		Reader:  &chunkReader{ctx: ctx, r: req.Reader, maxChunk: req.ChunkSize, delay: req.Delay},
		Writer:  req.Writer,
		Format:  req.Format,
		Width:   req.Width,
		Theme:   req.Theme,
		Options: opts,
	})
}

// chunkReader limits every Read to maxChunk bytes and waits delay after
// each one.
type chunkReader struct {
	ctx      context.Context
	r        io.Reader
	maxChunk int
	delay    time.Duration
	timer    *time.Timer
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	if c.maxChunk > 0 && len(p) > c.maxChunk {
		p = p[:c.maxChunk]
	}
	n, err := c.r.Read(p)
	if n > 0 && c.delay > 0 {
		if c.timer == nil {
			c.timer = time.NewTimer(c.delay)
		} else {
			c.timer.Reset(c.delay)
		}
		select {
		case <-c.timer.C:
		case <-c.ctx.Done():
			c.timer.Stop()
			return n, c.ctx.Err()
		}
	}
	return n, err
}
