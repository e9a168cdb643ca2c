package testutils

import (
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// testWriter routes log output through t.Log so it shows up only for failing
// or verbose tests.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewTestLogger returns a debug-level logger bound to t.
func NewTestLogger(t testing.TB) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(testWriter{t: t})
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger
}

// CaptureHook records entries so tests can assert on what was logged.
type CaptureHook struct {
	mu      sync.Mutex
	entries []logrus.Entry
}

func (h *CaptureHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *CaptureHook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, *e)
	return nil
}

// Messages returns the messages logged at level.
func (h *CaptureHook) Messages(level logrus.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
