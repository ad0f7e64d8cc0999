package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	debugs int
	infos  int
	warns  int
	errors int
}

func (r *recordingLogger) Debug(string, ...Field) { r.debugs++ }
func (r *recordingLogger) Info(string, ...Field)  { r.infos++ }
func (r *recordingLogger) Warn(string, ...Field)  { r.warns++ }
func (r *recordingLogger) Error(string, ...Field) { r.errors++ }

func TestSetLoggerOverridesGlobal(t *testing.T) {
	recorder := new(recordingLogger)
	SetLogger(recorder)
	t.Cleanup(func() { SetLogger(nil) })

	Log().Debug("test")
	require.Equal(t, 1, recorder.debugs)
	require.Same(t, recorder, OrDefault(nil))

	SetLogger(nil)
	Log().Info("noop")
	require.Equal(t, 0, recorder.infos)
}

func TestSlogLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LogConfig{Level: "debug"})

	logger.With(F("component", "poller")).Error("fetch failed", F("collection", "orders"), Err(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "fetch failed", entry["msg"])
	require.Equal(t, "ERROR", entry["level"])
	require.Equal(t, "poller", entry["component"])
	require.Equal(t, "orders", entry["collection"])
	require.Equal(t, "boom", entry["error"])
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LogConfig{Level: "warn", Format: "text"})

	logger.Info("hidden")
	require.Zero(t, buf.Len())

	logger.Warn("shown", F("k", 1))
	require.True(t, strings.Contains(buf.String(), "msg=shown"))
	require.True(t, strings.Contains(buf.String(), "k=1"))
}

func TestAggregateErrorsSkipsNil(t *testing.T) {
	recorder := new(recordingLogger)
	SetLogger(recorder)
	t.Cleanup(func() { SetLogger(nil) })

	require.NoError(t, AggregateErrors("poll tick", []error{nil, nil}))
	require.Zero(t, recorder.errors)

	err := AggregateErrors("poll tick", []error{nil, errors.New("orders down")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "poll tick failed")
	require.Equal(t, 1, recorder.errors)
}
