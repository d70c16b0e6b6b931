package service

import (
	"context"
	"runtime"
	"time"

	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const sampleInterval = 15 * time.Second

// systemSampler publishes runtime memory, goroutine and GC figures.
type systemSampler struct {
	interval time.Duration
	lastGC   uint32
}

func (s *systemSampler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sample()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *systemSampler) String() string { return "system-sampler" }

func (s *systemSampler) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC != s.lastGC {
		// PauseNs is a ring buffer indexed by the most recent GC.
		pause := ms.PauseNs[(ms.NumGC+255)%256]
		metrics.RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
		s.lastGC = ms.NumGC
	}
}
