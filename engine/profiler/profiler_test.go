package profiler_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/stretchr/testify/assert"
)

func TestRecordCounters(t *testing.T) {
	p := profiler.NewProfiler()
	p.RecordLoad(nil)
	p.RecordLoad(errors.New("decode"))
	p.RecordResolve(nil, nil)
	p.RecordDispatch(pass.Stats{Invoked: 3, Failed: 1})
	p.RecordDispatch(pass.Stats{Invoked: 2})

	assert.Equal(t, profiler.Stats{
		Resolves:         1,
		Loads:            2,
		LoadFailures:     1,
		Callbacks:        5,
		CallbackFailures: 1,
	}, p.Stats())
}

func TestTickLogsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	p := profiler.NewProfiler()
	p.SetInterval(time.Hour)
	assert.False(t, p.Tick())
	assert.Empty(t, buf.String())

	p.SetInterval(time.Nanosecond)
	p.RecordDispatch(pass.Stats{Invoked: 4})
	time.Sleep(time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "callbacks=4")
	assert.Equal(t, uint64(2), p.Stats().Frames)

	buf.Reset()
	time.Sleep(time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "callbacks=0", "counters are reported as deltas")
}

func TestSetIntervalIgnoresNonPositive(t *testing.T) {
	p := profiler.NewProfiler()
	p.SetInterval(time.Hour)
	p.SetInterval(0)
	p.SetInterval(-time.Second)
	assert.False(t, p.Tick())
}
