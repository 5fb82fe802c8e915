package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fraugster/rowstream"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idSchema = rowstream.NewSchema(rowstream.Field{Name: "id", Type: rowstream.TypeInteger})

func idRows(n int) []rowstream.Row {
	rows := make([]rowstream.Row, n)
	for i := range rows {
		rows[i] = rowstream.Row{int64(i + 1)}
	}
	return rows
}

type collector struct {
	mu   sync.Mutex
	rows []rowstream.Row
}

func (c *collector) AcceptRow(_ *rowstream.Schema, row rowstream.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

func TestAddStep(t *testing.T) {
	p := New("p")

	require.NoError(t, p.AddStep(&RowsInput{StepName: "in", Schema: idSchema}, 1))
	assert.Error(t, p.AddStep(&Dummy{StepName: "in"}, 1))
	assert.Error(t, p.AddStep(&Dummy{StepName: "zero"}, 0))
	require.NoError(t, p.AddStep(&Dummy{StepName: "out"}, 2))

	assert.Equal(t, []string{"in", "out"}, p.StepNames())
	assert.Len(t, p.StepCopies("out"), 2)
	assert.Nil(t, p.StepCopies("missing"))
	assert.Equal(t, "out.1", p.Copies("out")[1].String())

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Wait(context.Background()))
	assert.Error(t, p.AddStep(&Dummy{StepName: "late"}, 1))
	assert.Error(t, p.Start(context.Background()))
}

func TestStepFields(t *testing.T) {
	p := New("p")
	require.NoError(t, p.AddStep(&RowsInput{StepName: "in", Schema: idSchema}, 1))
	require.NoError(t, p.AddStep(&Dummy{StepName: "out"}, 1))

	s, err := p.StepFields("out")
	require.NoError(t, err)
	assert.Equal(t, idSchema.String(), s.String())

	_, err = p.StepFields("missing")
	assert.Error(t, err)

	bad := New("bad")
	require.NoError(t, bad.AddStep(&Dummy{StepName: "first"}, 1))
	_, err = bad.StepFields("first")
	assert.Error(t, err)
	assert.Error(t, bad.Start(context.Background()))
}

func TestPipelineDeliversAllRows(t *testing.T) {
	p := New("p", WithBufferSize(1))
	require.NoError(t, p.AddStep(&RowsInput{StepName: "in", Schema: idSchema, Rows: idRows(50)}, 1))
	require.NoError(t, p.AddStep(&Dummy{StepName: "middle"}, 3))
	require.NoError(t, p.AddStep(&Dummy{StepName: "out"}, 1))

	c := &collector{}
	p.StepCopies("out")[0].AddRowListener(c)

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Wait(context.Background()))

	assert.Equal(t, 50, c.count())
	var middle int64
	for _, cp := range p.Copies("middle") {
		middle += cp.RowsWritten()
	}
	assert.Equal(t, int64(50), middle)
}

func TestListenerSeesRowsInOrder(t *testing.T) {
	p := New("p")
	require.NoError(t, p.AddStep(&RowsInput{StepName: "in", Schema: idSchema, Rows: idRows(20)}, 1))

	c := &collector{}
	p.StepCopies("in")[0].AddRowListener(rowstream.RowListenerFunc(func(s *rowstream.Schema, row rowstream.Row) error {
		assert.Equal(t, []string{"id"}, s.FieldNames())
		return c.AcceptRow(s, row)
	}))

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Wait(context.Background()))

	assert.Equal(t, idRows(20), c.rows)
}

func TestListenerErrorFailsPipeline(t *testing.T) {
	p := New("p")
	require.NoError(t, p.AddStep(&RowsInput{StepName: "in", Schema: idSchema, Rows: idRows(5)}, 1))
	require.NoError(t, p.AddStep(&Dummy{StepName: "out"}, 1))

	boom := errors.New("boom")
	p.StepCopies("out")[0].AddRowListener(rowstream.RowListenerFunc(func(*rowstream.Schema, rowstream.Row) error {
		return boom
	}))

	require.NoError(t, p.Start(context.Background()))
	err := p.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

type blockingStep struct {
	started chan struct{}
}

func (s *blockingStep) Name() string { return "block" }

func (s *blockingStep) Fields(*rowstream.Schema) (*rowstream.Schema, error) {
	return idSchema.Clone(), nil
}

func (s *blockingStep) Run(ctx context.Context, _ <-chan rowstream.Row, _ Emitter) error {
	close(s.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestStop(t *testing.T) {
	step := &blockingStep{started: make(chan struct{})}
	p := New("p")
	require.NoError(t, p.AddStep(step, 1))

	p.Stop()
	require.NoError(t, p.Start(context.Background()))
	<-step.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, p.Wait(ctx))

	p.Stop()
	assert.Equal(t, ErrStopped, p.Wait(context.Background()))
}

func TestWaitBeforeStart(t *testing.T) {
	p := New("p")
	assert.Error(t, p.Wait(context.Background()))
	assert.Error(t, p.Start(context.Background()))
}
