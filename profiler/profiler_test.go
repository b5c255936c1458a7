package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCountersAndOperations(t *testing.T) {
	p := New(Options{MaxSamples: 2}, nil)

	p.Count("ticks")
	p.Count("ticks")
	p.Count("emissions")

	for i := 0; i < 3; i++ {
		done := p.StartOperation("tick")
		done()
	}

	snap := p.Snapshot()
	assert.Equal(t, int64(2), snap.Counters["ticks"])
	assert.Equal(t, int64(1), snap.Counters["emissions"])
	assert.Equal(t, int64(3), snap.Operations["tick"].Count)
	assert.LessOrEqual(t, snap.Operations["tick"].Min, snap.Operations["tick"].Max)
}

func TestNilProfilerIsUsable(t *testing.T) {
	var p *Profiler
	p.Count("ticks")
	p.StartOperation("tick")()
	p.Start()
	p.Stop()
	assert.Empty(t, p.Snapshot().Counters)
}

func TestPeriodicReport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := New(Options{ReportInterval: 10 * time.Millisecond}, zap.New(core))
	p.Count("ticks")

	p.Start()
	p.Start()
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("profiler report").Len() > 0
	}, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	entry := logs.FilterMessage("profiler report").All()[0]
	assert.Equal(t, int64(1), entry.ContextMap()["ticks"])
}
