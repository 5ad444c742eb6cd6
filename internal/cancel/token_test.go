package cancel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueNeverCancels(t *testing.T) {
	var tok Token
	assert.False(t, tok.IsInterruptionRequested())
}

func TestCancelLatches(t *testing.T) {
	tok := New(0)
	assert.False(t, tok.IsInterruptionRequested())
	tok.Cancel()
	// Latching may take up to one rate-limit window to be observed.
	assert.Eventually(t, tok.IsInterruptionRequested, time.Second, time.Millisecond)
	assert.True(t, tok.IsInterruptionRequested())
}

func TestMaxTaskTimeCutoff(t *testing.T) {
	tok := New(10 * time.Millisecond)
	assert.Eventually(t, tok.IsInterruptionRequested, time.Second, time.Millisecond)
}

func TestNilTokenNeverCancels(t *testing.T) {
	var tok *Token
	assert.False(t, tok.IsInterruptionRequested())
	tok.Cancel() // must not panic
}
