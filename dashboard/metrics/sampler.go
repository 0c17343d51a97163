package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/trino-compare/dashboard/types"
)

// Sampler periodically snapshots this process's resource usage. It is used
// to attribute memory cost to individual benchmark queries.
type Sampler struct {
	mu        sync.RWMutex
	samples   []types.SystemSample
	isRunning bool
	stopCh    chan struct{}
	interval  time.Duration
	proc      *process.Process
}

// NewSampler creates a sampler snapshotting at the given interval.
func NewSampler(interval time.Duration) (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{
		interval: interval,
		proc:     proc,
	}, nil
}

// Start begins sampling. Starting an already running sampler is a no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.samples = nil
	s.stopCh = make(chan struct{})
	go s.run(s.stopCh)
}

// Stop halts sampling. The collected samples remain readable.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopCh)
}

// Samples returns a copy of everything collected since the last Start.
func (s *Sampler) Samples() []types.SystemSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.SystemSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// PeakRSSMB returns the largest process RSS observed, in megabytes.
func (s *Sampler) PeakRSSMB() float64 {
	var peak float64
	for _, sample := range s.Samples() {
		if sample.ProcessRSSMB > peak {
			peak = sample.ProcessRSSMB
		}
	}
	return peak
}

// Average returns the mean of all collected samples.
func (s *Sampler) Average() types.SystemSample {
	samples := s.Samples()
	if len(samples) == 0 {
		return types.SystemSample{}
	}

	var rss, memPct, cpu float64
	for _, sample := range samples {
		rss += sample.ProcessRSSMB
		memPct += sample.MemoryPercent
		cpu += sample.CPUPercent
	}

	n := float64(len(samples))
	return types.SystemSample{
		ProcessRSSMB:  rss / n,
		MemoryPercent: memPct / n,
		CPUPercent:    cpu / n,
	}
}

func (s *Sampler) run(stopCh chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sample := s.snapshot()
			s.mu.Lock()
			s.samples = append(s.samples, sample)
			s.mu.Unlock()
		case <-stopCh:
			return
		}
	}
}

func (s *Sampler) snapshot() types.SystemSample {
	sample := types.SystemSample{Timestamp: time.Now()}

	if procMem, err := s.proc.MemoryInfo(); err == nil {
		sample.ProcessRSSMB = float64(procMem.RSS) / 1024 / 1024
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		sample.MemoryPercent = memInfo.UsedPercent
	}
	if cpuPercent, err := s.proc.CPUPercent(); err == nil {
		sample.CPUPercent = cpuPercent
	}

	return sample
}
