package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevelOrdering(t *testing.T) {
	assert.Equal(t, 0, int(DEBUG))
	assert.Equal(t, 1, int(INFO))
	assert.Equal(t, 2, int(WARN))
	assert.Equal(t, 3, int(ERROR))
	assert.True(t, DEBUG < INFO)
	assert.True(t, INFO < WARN)
	assert.True(t, WARN < ERROR)
}

func TestNew(t *testing.T) {
	for _, level := range []LogLevel{DEBUG, INFO, WARN, ERROR} {
		l := New(level)
		assert.NotNil(t, l)
		assert.Equal(t, level, l.Level())
		assert.NotNil(t, l.logger)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN)
	l.logger = log.New(&buf, "", 0)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "[ERROR]")
}

func TestMessageFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG)
	l.logger = log.New(&buf, "", 0)

	l.Error("error %d: %s", 404, "not found")
	assert.Contains(t, buf.String(), "[ERROR] error 404: not found")
}

func TestGlobalFunctions(t *testing.T) {
	originalLevel := defaultLogger.level
	originalLogger := defaultLogger.logger
	defer func() {
		defaultLogger.level = originalLevel
		defaultLogger.logger = originalLogger
	}()

	var buf bytes.Buffer
	defaultLogger.logger = log.New(&buf, "", 0)
	SetLevel(DEBUG)

	Debug("debug test %d", 1)
	Info("info test %d", 2)
	Warn("warn test %d", 3)
	Error("error test %d", 4)

	output := buf.String()
	assert.Contains(t, output, "[DEBUG] debug test 1")
	assert.Contains(t, output, "[INFO] info test 2")
	assert.Contains(t, output, "[WARN] warn test 3")
	assert.Contains(t, output, "[ERROR] error test 4")
}
