package rowstream

import "context"

// Pipeline is the part of a running pipeline engine the bridge depends on.
type Pipeline interface {
	// Name returns the name of the pipeline.
	Name() string
	// StepFields resolves the schema of the rows the named step emits.
	StepFields(stepName string) (*Schema, error)
	// StepCopies returns the execution copies of the named step.
	StepCopies(stepName string) []StepCopy
	// Start begins execution and returns without waiting for it to end.
	Start(ctx context.Context) error
	// Wait blocks until the pipeline has finished, successfully or not,
	// and returns its outcome. It returns ctx.Err() if ctx ends first.
	Wait(ctx context.Context) error
	// Stop asks a running pipeline to end as soon as possible.
	Stop()
}

// StepCopy is one execution copy of a step.
type StepCopy interface {
	StepName() string
	CopyNr() int
	// AddRowListener registers l to be called for every row this copy
	// emits. Rows are delivered one at a time, from the copy's goroutine.
	AddRowListener(l RowListener)
}

// RowListener accepts the rows a step copy emits. An error makes the engine
// stop the emitting copy.
type RowListener interface {
	AcceptRow(schema *Schema, row Row) error
}

// RowListenerFunc adapts a function to the RowListener interface.
type RowListenerFunc func(schema *Schema, row Row) error

// AcceptRow calls f(schema, row).
func (f RowListenerFunc) AcceptRow(schema *Schema, row Row) error {
	return f(schema, row)
}
