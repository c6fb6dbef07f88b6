package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{sugar: zap.New(core).Sugar()}, logs
}

func TestErrorKeepsPercentEscapesLiteral(t *testing.T) {
	log, logs := newObserved()

	log.Error(errors.New(`open "file%20name.txt": not found`), "download failed")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, `download failed: open "file%20name.txt": not found`, entries[0].Message)
	assert.NotContains(t, entries[0].Message, "%!")
}

func TestErrorWithoutErr(t *testing.T) {
	log, logs := newObserved()

	log.Error(nil, "cleanup of %s skipped", "staging")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cleanup of staging skipped", entries[0].Message)
}

func TestWithTagsPrefix(t *testing.T) {
	log, logs := newObserved()

	log.With("Google", "me@example.com").Info("listed %d files", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "[Google][me@example.com] listed 3 files", entries[0].Message)
}

func TestWithDoesNotMutateParent(t *testing.T) {
	log, logs := newObserved()
	_ = log.With("Dropbox")

	log.Info("no tags here")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "no tags here", entries[0].Message)
}
