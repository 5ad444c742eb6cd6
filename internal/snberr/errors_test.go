package snberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	e := New(CodeConfiguration, "OPT requires K <= 25")
	assert.Equal(t, "CONFIGURATION: OPT requires K <= 25", e.Error())
	assert.True(t, IsConfiguration(e))
	assert.False(t, IsIOError(e))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(cause, CodeInsufficientDisk, "cannot allocate chunk file")
	assert.True(t, errors.Is(e, cause))
	assert.True(t, IsInsufficientDisk(e))
	assert.True(t, IsRecoverable(e))
}

func TestInvariantViolationMessage(t *testing.T) {
	e := InvariantViolation("Cell", 3, "duplicate part tuple")
	assert.Contains(t, e.Error(), "Cell[3]: duplicate part tuple")
	assert.True(t, IsInvariantViolation(e))
	assert.False(t, IsRecoverable(e))
}

func TestWithDetail(t *testing.T) {
	e := New(CodeInsufficientMemory, "cannot size free-vector pool").WithDetail("columns", 30)
	assert.Equal(t, 30, e.Details["columns"])
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeIOError, "x"))
}
