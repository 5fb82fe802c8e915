package rowstream

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFailure(t *testing.T) {
	err := errors.Wrap(newFailure(EncodingFailure, "out", io.ErrShortWrite), "run")

	assert.True(t, IsFailure(err, EncodingFailure))
	assert.False(t, IsFailure(err, SetupFailure))
	assert.False(t, IsFailure(io.EOF, EncodingFailure))
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, `run: encoding failure on step "out": short write`, err.Error())

	assert.Equal(t, `listener attach failure on step "x"`, (&Failure{Kind: ListenerAttachFailure, Step: "x"}).Error())
	assert.Equal(t, "FailureKind(9)", FailureKind(9).String())
}
