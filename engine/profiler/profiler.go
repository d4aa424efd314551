package profiler

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
)

// Stats are the cumulative frame counters of a Profiler.
type Stats struct {
	// Frames is the number of completed frames.
	Frames uint64
	// Resolves is the number of multisample resolves issued by render target stacks.
	Resolves uint64
	// Loads is the number of resource loads attempted through a registry.
	Loads uint64
	// LoadFailures is the number of those loads that failed.
	LoadFailures uint64
	// Callbacks is the number of pass callbacks invoked.
	Callbacks uint64
	// CallbackFailures is the number of pass callbacks that returned an error, panicked or left
	// the target stack unbalanced.
	CallbackFailures uint64
}

// Profiler tracks frame rate, memory and frame statistics for performance monitoring.
// Outputs stats to the log at a configurable interval. The Record methods are safe to call from
// every device goroutine; Tick is called from the render loop only.
type Profiler struct {
	frames           atomic.Uint64
	resolves         atomic.Uint64
	loads            atomic.Uint64
	loadFailures     atomic.Uint64
	callbacks        atomic.Uint64
	callbackFailures atomic.Uint64

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastStats      Stats
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetInterval changes how often Tick logs. Non-positive values are ignored.
//
// Parameters:
//   - interval: the logging interval
func (p *Profiler) SetInterval(interval time.Duration) {
	if interval > 0 {
		p.updateInterval = interval
	}
}

// RecordResolve counts one multisample resolve. Its signature matches target.WithResolveHook.
func (p *Profiler) RecordResolve(_, _ device.Texture) {
	p.resolves.Add(1)
}

// RecordLoad counts one registry load. Pass err as returned by the load.
//
// Parameters:
//   - err: the load error, or nil
func (p *Profiler) RecordLoad(err error) {
	p.loads.Add(1)
	if err != nil {
		p.loadFailures.Add(1)
	}
}

// RecordDispatch adds the callback counts of one dispatcher execution.
//
// Parameters:
//   - stats: the execution statistics
func (p *Profiler) RecordDispatch(stats pass.Stats) {
	p.callbacks.Add(uint64(stats.Invoked))
	p.callbackFailures.Add(uint64(stats.Failed))
}

// Stats returns the cumulative counters.
//
// Returns:
//   - Stats: the counters
func (p *Profiler) Stats() Stats {
	return Stats{
		Frames:           p.frames.Load(),
		Resolves:         p.resolves.Load(),
		Loads:            p.loads.Load(),
		LoadFailures:     p.loadFailures.Load(),
		Callbacks:        p.callbacks.Load(),
		CallbackFailures: p.callbackFailures.Load(),
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory, and
// the frame counters accumulated since the previous report.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frames.Add(1)
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		stats := p.Stats()
		common.Logger().Info("profiler",
			"fps", fps,
			"heapMB", allocMB,
			"allocRateMBs", allocRateMB,
			"gc", gcCount,
			"gcLastPauseUs", lastPauseUs,
			"gcMaxPauseUs", maxPauseUs,
			"sysMB", sysMB,
			"resolves", stats.Resolves-p.lastStats.Resolves,
			"loads", stats.Loads-p.lastStats.Loads,
			"loadFailures", stats.LoadFailures-p.lastStats.LoadFailures,
			"callbacks", stats.Callbacks-p.lastStats.Callbacks,
			"callbackFailures", stats.CallbackFailures-p.lastStats.CallbackFailures)

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		p.lastStats = stats
		return true
	}

	return false
}
