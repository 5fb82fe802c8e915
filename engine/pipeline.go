package engine

import (
	"context"
	"sync"

	"github.com/fraugster/rowstream"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrStopped is the outcome of a pipeline that was stopped before it ended
// on its own.
var ErrStopped = errors.New("pipeline was stopped")

// Step is the logic of one pipeline step.
type Step interface {
	// Name returns the step name, unique within a pipeline.
	Name() string
	// Fields returns the schema of the emitted rows given the schema of
	// the incoming rows, which is nil for the first step.
	Fields(input *rowstream.Schema) (*rowstream.Schema, error)
	// Run processes rows from in, which is nil for the first step, and
	// passes its output to out. It must return when ctx is done.
	Run(ctx context.Context, in <-chan rowstream.Row, out Emitter) error
}

// Emitter is where a step copy puts the rows it produces.
type Emitter interface {
	Emit(ctx context.Context, row rowstream.Row) error
}

type stepMeta struct {
	step   Step
	copies []*Copy
}

// Pipeline is a linear chain of steps. Always use New to create such an
// object.
type Pipeline struct {
	name       string
	log        zerolog.Logger
	bufferSize int

	mu      sync.Mutex
	steps   []*stepMeta
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// Option describes an option function that is applied to a Pipeline when it
// is created.
type Option func(p *Pipeline)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// WithBufferSize sets the number of rows that can be buffered between two
// steps.
func WithBufferSize(size int) Option {
	return func(p *Pipeline) {
		if size >= 0 {
			p.bufferSize = size
		}
	}
}

// New creates an empty pipeline.
func New(name string, options ...Option) *Pipeline {
	p := &Pipeline{
		name:       name,
		log:        zerolog.Nop(),
		bufferSize: 100,
		done:       make(chan struct{}),
	}

	for _, opt := range options {
		opt(p)
	}

	p.log = p.log.With().Str("pipeline", name).Logger()

	return p
}

// AddStep appends a step that runs in the given number of parallel copies
// and reads the output of the previously added step.
func (p *Pipeline) AddStep(step Step, copies int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("can't add steps to a started pipeline")
	}
	if copies < 1 {
		return errors.Errorf("step %q needs at least one copy, got %d", step.Name(), copies)
	}
	if p.findStep(step.Name()) != nil {
		return errors.Errorf("duplicate step name %q", step.Name())
	}

	meta := &stepMeta{step: step}
	for nr := 0; nr < copies; nr++ {
		meta.copies = append(meta.copies, &Copy{step: step, nr: nr})
	}
	p.steps = append(p.steps, meta)

	return nil
}

// Name returns the name of the pipeline.
func (p *Pipeline) Name() string {
	return p.name
}

// StepNames returns the names of all steps in chain order.
func (p *Pipeline) StepNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.step.Name())
	}
	return names
}

// StepFields resolves the schema the named step emits.
func (p *Pipeline) StepFields(stepName string) (*rowstream.Schema, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var schema *rowstream.Schema
	for _, s := range p.steps {
		out, err := s.step.Fields(schema)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving fields of step %q failed", s.step.Name())
		}
		if s.step.Name() == stepName {
			return out, nil
		}
		schema = out
	}

	return nil, errors.Errorf("unknown step %q", stepName)
}

// StepCopies returns the copies of the named step, or nil if there is no
// such step.
func (p *Pipeline) StepCopies(stepName string) []rowstream.StepCopy {
	p.mu.Lock()
	defer p.mu.Unlock()

	meta := p.findStep(stepName)
	if meta == nil {
		return nil
	}
	copies := make([]rowstream.StepCopy, 0, len(meta.copies))
	for _, c := range meta.copies {
		copies = append(copies, c)
	}
	return copies
}

// Copies returns the copies of the named step.
func (p *Pipeline) Copies(stepName string) []*Copy {
	p.mu.Lock()
	defer p.mu.Unlock()

	meta := p.findStep(stepName)
	if meta == nil {
		return nil
	}
	return append([]*Copy(nil), meta.copies...)
}

// Start launches all step copies and returns immediately. A pipeline can
// only be started once.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pipeline has already been started")
	}
	if len(p.steps) == 0 {
		return errors.New("pipeline has no steps")
	}

	var schema *rowstream.Schema
	for _, s := range p.steps {
		out, err := s.step.Fields(schema)
		if err != nil {
			return errors.Wrapf(err, "resolving fields of step %q failed", s.step.Name())
		}
		for _, c := range s.copies {
			c.schema = out
		}
		schema = out
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	g, gctx := errgroup.WithContext(runCtx)

	var in chan rowstream.Row
	for idx, s := range p.steps {
		var out chan rowstream.Row
		if idx < len(p.steps)-1 {
			out = make(chan rowstream.Row, p.bufferSize)
		}

		wg := &sync.WaitGroup{}
		for _, c := range s.copies {
			c.out = out
			wg.Add(1)
			g.Go(func(c *Copy, in <-chan rowstream.Row) func() error {
				return func() error {
					defer wg.Done()
					return c.run(gctx, in, p.log)
				}
			}(c, in))
		}

		if out != nil {
			go func(out chan rowstream.Row) {
				wg.Wait()
				close(out)
			}(out)
		}

		in = out
	}

	go func() {
		err := g.Wait()
		cancel()

		p.mu.Lock()
		if err != nil && p.stopped && errors.Is(err, context.Canceled) {
			err = ErrStopped
		}
		p.err = err
		p.mu.Unlock()

		if err != nil {
			p.log.Warn().Err(err).Msg("pipeline finished with an error")
		} else {
			p.log.Debug().Msg("pipeline finished")
		}
		close(p.done)
	}()

	p.log.Debug().Int("steps", len(p.steps)).Msg("pipeline started")
	return nil
}

// Wait blocks until the pipeline has finished and returns its outcome.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return errors.New("pipeline has not been started")
	}

	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels a running pipeline. Stopping a pipeline that has not been
// started or has already finished has no effect.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.cancel == nil {
		return
	}
	p.stopped = true
	p.cancel()
}

func (p *Pipeline) findStep(name string) *stepMeta {
	for _, s := range p.steps {
		if s.step.Name() == name {
			return s
		}
	}
	return nil
}
