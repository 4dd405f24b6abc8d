package vectorstore

import (
	"context"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"pai-smart-go/internal/config"
	"pai-smart-go/internal/model"
	"pai-smart-go/pkg/log"
)

// memoryMonitor periodically samples this process's RSS and triggers a
// cleanup pass once usage crosses the configured thresholds, mirroring the
// _memory_monitor / _trigger_*_cleanup loop in the original service.
type memoryMonitor struct {
	store    *Store
	interval time.Duration
	warnMB   int
	critMB   int
	cancel   context.CancelFunc
	done     chan struct{}
}

func newMemoryMonitor(store *Store) *memoryMonitor {
	cfg := config.Conf.VectorStore
	interval := time.Duration(cfg.MemoryCheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	warn := cfg.MemoryThresholdMB
	if warn <= 0 {
		warn = 1024
	}
	crit := cfg.MemoryCriticalThresholdMB
	if crit <= 0 {
		crit = 2048
	}
	return &memoryMonitor{store: store, interval: interval, warnMB: warn, critMB: crit, done: make(chan struct{})}
}

func (m *memoryMonitor) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.loop(ctx)
}

func (m *memoryMonitor) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *memoryMonitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *memoryMonitor) check(ctx context.Context) {
	rssMB, err := m.currentRSSMB()
	if err != nil {
		log.Errorf("memory monitor: failed to read process RSS: %v", err)
		return
	}

	switch {
	case rssMB >= float64(m.critMB):
		m.store.emitAlert(model.PerformanceAlert{
			Kind:      "memory_critical",
			Severity:  model.SeverityCritical,
			Message:   "process memory usage crossed the critical threshold, running aggressive cleanup",
			Timestamp: time.Now(),
			Metrics:   map[string]any{"rss_mb": rssMB},
		})
		m.aggressiveCleanup()
	case rssMB >= float64(m.warnMB):
		m.store.emitAlert(model.PerformanceAlert{
			Kind:      "memory_warning",
			Severity:  model.SeverityMedium,
			Message:   "process memory usage crossed the warning threshold, running light cleanup",
			Timestamp: time.Now(),
			Metrics:   map[string]any{"rss_mb": rssMB},
		})
		m.lightCleanup()
	}
}

func (m *memoryMonitor) currentRSSMB() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1024 * 1024), nil
}

// lightCleanup asks the Go runtime to run a GC pass without forcing OS-level
// memory return; cheap enough to run on every warning-threshold breach.
func (m *memoryMonitor) lightCleanup() {
	runtime.GC()
}

// aggressiveCleanup additionally returns freed pages to the OS. The spec
// allows skipping OS-specific reclaim beyond what the Go runtime offers.
func (m *memoryMonitor) aggressiveCleanup() {
	runtime.GC()
	debug.FreeOSMemory()
}
