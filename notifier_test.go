package classtrack

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Debug(format string, args ...any) { l.record(format, args...) }

func (l *captureLogger) Info(format string, args ...any) { l.record(format, args...) }

func (l *captureLogger) Warn(format string, args ...any) { l.record(format, args...) }

func (l *captureLogger) Error(format string, args ...any) { l.record(format, args...) }

func TestNotifierFuncNilIsNoop(t *testing.T) {
	var fn NotifierFunc
	assert.NoError(t, fn.Notify(context.Background(), Notice{}))
}

func TestRequestFromEmptyContext(t *testing.T) {
	_, ok := RequestFrom(context.Background())
	assert.False(t, ok)
}

func TestFlashNotifierWithoutRequestLogsNotice(t *testing.T) {
	logger := &captureLogger{}
	notifier := FlashNotifier(logger)

	err := notifier.Notify(context.Background(), Notice{
		Level:   NoticeSuccess,
		Title:   "Logged Out",
		Message: "You have been logged out.",
	})
	require.NoError(t, err)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "Logged Out")
}
