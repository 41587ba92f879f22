package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(zapcore.AddSync(&buf))
	t.Cleanup(func() {
		SetOutput(zapcore.Lock(zapcore.AddSync(&bytes.Buffer{})))
		SetLogLevel("INFO")
	})
	return &buf
}

func TestSetLogLevel_FiltersBelowLevel(t *testing.T) {
	buf := captureOutput(t)

	SetLogLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "WARN")
	assert.Equal(t, LevelWarn, GetLogLevel())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	buf := captureOutput(t)

	SetLogLevel("verbose")
	Debugf("debug line")
	Infof("info line")

	out := buf.String()
	assert.Equal(t, LevelInfo, GetLogLevel())
	assert.Contains(t, out, "Unknown log level 'verbose'")
	assert.NotContains(t, out, "debug line")
	assert.Contains(t, out, "info line")
}

func TestShortFuncName(t *testing.T) {
	assert.Equal(t, "github.com/x/app.NewModule", shortFuncName("github.com/x/app.NewModule.func1"))
	assert.Equal(t, "main.run", shortFuncName("main.run"))
}
