package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fraugster/rowstream"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Copy is one execution copy of a step.
type Copy struct {
	step   Step
	nr     int
	schema *rowstream.Schema
	out    chan<- rowstream.Row

	mu        sync.Mutex
	listeners []rowstream.RowListener

	written int64
}

// StepName returns the name of the step.
func (c *Copy) StepName() string {
	return c.step.Name()
}

// CopyNr returns the zero-based number of the copy.
func (c *Copy) CopyNr() int {
	return c.nr
}

// AddRowListener registers l for all rows this copy emits.
func (c *Copy) AddRowListener(l rowstream.RowListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, l)
}

// RowsWritten returns the number of rows the copy has emitted.
func (c *Copy) RowsWritten() int64 {
	return atomic.LoadInt64(&c.written)
}

func (c *Copy) String() string {
	return fmt.Sprintf("%s.%d", c.step.Name(), c.nr)
}

// Emit hands row to the listeners and then to the next step.
func (c *Copy) Emit(ctx context.Context, row rowstream.Row) error {
	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		if err := l.AcceptRow(c.schema, row); err != nil {
			return errors.Wrapf(err, "row listener on %s failed", c)
		}
	}
	atomic.AddInt64(&c.written, 1)

	if c.out == nil {
		return nil
	}
	select {
	case c.out <- row:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Copy) run(ctx context.Context, in <-chan rowstream.Row, log zerolog.Logger) error {
	log = log.With().Str("step", c.step.Name()).Int("copy", c.nr).Logger()
	log.Debug().Msg("step copy started")

	if err := c.step.Run(ctx, in, c); err != nil {
		log.Debug().Err(err).Int64("rows", c.RowsWritten()).Msg("step copy failed")
		return errors.Wrapf(err, "step %s", c)
	}

	log.Debug().Int64("rows", c.RowsWritten()).Msg("step copy finished")
	return nil
}

// Each calls fn for every row read from in until in is closed, fn fails or
// ctx is done.
func Each(ctx context.Context, in <-chan rowstream.Row, fn func(rowstream.Row) error) error {
	for {
		select {
		case row, ok := <-in:
			if !ok {
				return nil
			}
			if err := fn(row); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
