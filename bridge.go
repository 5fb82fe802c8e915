package rowstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State is the life cycle state of a Bridge.
type State int

// Bridge states. StateFinished and StateFailed are terminal.
const (
	StateCreated State = iota
	StateHeaderWritten
	StateStreaming
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateHeaderWritten:
		return "header-written"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Bridge captures the rows one step of a pipeline emits into a row stream.
// Always use NewBridge to create such an object.
//
// Only the first execution copy of the step is observed. If the step runs
// with several parallel copies, the rows of the other copies are not part of
// the stream.
type Bridge struct {
	pipeline   Pipeline
	stepName   string
	sinks      SinkProvider
	log        zerolog.Logger
	streamOpts []StreamWriterOption

	mu          sync.Mutex
	state       State
	sink        Sink
	location    string
	writer      *StreamWriter
	rowsStaged  int64
	rowErr      *Failure
	closed      bool
	pipelineErr error
}

// BridgeOption describes an option function that is applied to a Bridge when
// it is created.
type BridgeOption func(b *Bridge)

// WithSinkProvider sets where the stream is written to. The default is a new
// file in the system's temp directory.
func WithSinkProvider(p SinkProvider) BridgeOption {
	return func(b *Bridge) {
		b.sinks = p
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(l zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.log = l
	}
}

// WithStreamOptions sets options for the underlying StreamWriter.
func WithStreamOptions(opts ...StreamWriterOption) BridgeOption {
	return func(b *Bridge) {
		b.streamOpts = append(b.streamOpts, opts...)
	}
}

// NewBridge creates a bridge that captures the rows of the named step of p.
// No I/O happens until Run is called.
func NewBridge(p Pipeline, stepName string, options ...BridgeOption) *Bridge {
	b := &Bridge{
		pipeline: p,
		stepName: stepName,
		sinks:    TempFileProvider{},
		log:      zerolog.Nop(),
		state:    StateCreated,
	}

	for _, opt := range options {
		opt(b)
	}

	b.log = b.log.With().Str("pipeline", p.Name()).Str("step", stepName).Logger()

	return b
}

// Run writes the stream header, attaches the bridge to the first copy of the
// step, starts the pipeline and blocks until it has finished. The stream is
// sealed before Run returns. A pipeline that fails on its own still ends in
// StateFinished; its error is available from PipelineErr. If ctx ends first,
// the pipeline is stopped, the stream sealed and ctx.Err() returned.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateCreated {
		state := b.state
		b.mu.Unlock()
		return errors.Errorf("bridge can not be run in state %s", state)
	}
	if err := b.prepare(); err != nil {
		b.state = StateFailed
		b.closeLocked()
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	if err := b.pipeline.Start(ctx); err != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.state = StateFailed
		b.closeLocked()
		return newFailure(SetupFailure, b.stepName, errors.Wrap(err, "starting the pipeline failed"))
	}
	b.log.Info().Msg("Started the pipeline, waiting until it has finished")

	waitErr := b.pipeline.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil && waitErr == ctxErr {
		b.log.Warn().Err(ctxErr).Msg("Run was cancelled, stopping the pipeline")
		b.pipeline.Stop()
		waitErr = b.pipeline.Wait(context.Background())
	}

	return b.finish(ctx, waitErr)
}

// prepare performs all steps up to attaching the listener. b.mu is held.
func (b *Bridge) prepare() error {
	sink, err := b.sinks.Create()
	if err != nil {
		return newFailure(SetupFailure, b.stepName, errors.Wrap(err, "provisioning the sink failed"))
	}
	b.sink = sink
	b.location = sink.Location()
	b.log.Info().Str("location", b.location).Msg("Stream sink created")

	source, err := b.pipeline.StepFields(b.stepName)
	if err != nil {
		return newFailure(SetupFailure, b.stepName, errors.Wrap(err, "resolving the step fields failed"))
	}

	norm := Normalize(source)
	b.log.Debug().Int("fields", norm.Canonical.Len()).Bool("conversion_required", norm.ConversionRequired).Msg("Normalized the row schema")

	b.writer = NewStreamWriter(sink, b.streamOpts...)
	if err := b.writer.WriteHeader(b.pipeline.Name(), b.stepName, norm); err != nil {
		return newFailure(EncodingFailure, b.stepName, err)
	}
	b.state = StateHeaderWritten
	b.log.Info().Msg("Wrote the pipeline name, the step name and the row schema")

	copies := b.pipeline.StepCopies(b.stepName)
	if len(copies) == 0 {
		return newFailure(ListenerAttachFailure, b.stepName, errors.New("the step has no running copies"))
	}

	// Just one step copy for the time being.
	copies[0].AddRowListener(b)
	if len(copies) > 1 {
		b.log.Warn().Int("copies", len(copies)).Msg("Step runs in several copies, only the first one is captured")
	}
	b.log.Info().Int("copy", copies[0].CopyNr()).Msg("Added the row listener")

	b.rowsStaged = 0
	b.state = StateStreaming
	return nil
}

func (b *Bridge) finish(ctx context.Context, waitErr error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pipelineErr = waitErr
	sealErr := b.seal()

	if b.rowErr != nil {
		b.state = StateFailed
		b.log.Error().Err(b.rowErr).Int64("rows", b.rowsStaged).Msg("Capturing rows failed")
		return b.rowErr
	}
	if sealErr != nil {
		b.state = StateFailed
		return newFailure(EncodingFailure, b.stepName, sealErr)
	}

	b.state = StateFinished
	if waitErr != nil {
		b.log.Warn().Err(waitErr).Msg("The pipeline finished with an error")
	}
	b.log.Info().Int64("rows", b.rowsStaged).Msgf("The pipeline finished, %d rows staged", b.rowsStaged)

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// AcceptRow encodes one row. It is called by the pipeline for every row the
// observed step copy emits.
func (b *Bridge) AcceptRow(schema *Schema, row Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rowErr != nil {
		return b.rowErr
	}
	if b.state != StateStreaming || b.closed {
		b.rowErr = newFailure(EncodingFailure, b.stepName, ErrStreamSealed)
		return b.rowErr
	}

	if err := b.writer.WriteRow(schema, row); err != nil {
		b.rowErr = newFailure(EncodingFailure, b.stepName, errors.Wrapf(err, "row %d", b.rowsStaged+1))
		return b.rowErr
	}
	b.rowsStaged++

	return nil
}

// Location returns the address of the sealed stream. It is empty unless the
// bridge is in StateFinished.
func (b *Bridge) Location() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateFinished {
		return ""
	}
	return b.location
}

// RowsStaged returns the number of rows written to the stream.
func (b *Bridge) RowsStaged() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.rowsStaged
}

// State returns the current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// PipelineErr returns the outcome the pipeline reported when it finished.
func (b *Bridge) PipelineErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pipelineErr
}

// Close seals the stream if that has not happened yet. It can be called at
// any time, any number of times, and never returns an error; problems are
// only logged.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closeLocked()
	return nil
}

func (b *Bridge) closeLocked() {
	if err := b.seal(); err != nil {
		b.log.Warn().Err(err).Msg("Closing the stream failed")
	}
}

// seal flushes and closes the stream. Only the first call has an effect.
func (b *Bridge) seal() error {
	if b.closed {
		return nil
	}
	b.closed = true

	switch {
	case b.writer != nil:
		return b.writer.Close()
	case b.sink != nil:
		return b.sink.Close()
	default:
		return nil
	}
}
