package eyeguard

import "time"

const defaultFPSWindow = 30

// PerformanceMonitor derives the processing rate from a trailing window of
// frame completion times. Not safe for concurrent use.
type PerformanceMonitor struct {
	frames  []time.Time
	head    int
	size    int
	latency time.Duration
	now     func() time.Time
}

// NewPerformanceMonitor keeps the completion times of the last windowSize
// frames; a non-positive windowSize falls back to the default of 30.
func NewPerformanceMonitor(windowSize int) *PerformanceMonitor {
	if windowSize <= 0 {
		windowSize = defaultFPSWindow
	}
	return &PerformanceMonitor{
		frames: make([]time.Time, windowSize),
		now:    time.Now,
	}
}

// StartFrame marks the beginning of one frame's processing.
func (p *PerformanceMonitor) StartFrame() time.Time {
	return p.now()
}

// EndFrame records the frame completion and its processing latency.
func (p *PerformanceMonitor) EndFrame(start time.Time) {
	end := p.now()
	p.latency = end.Sub(start)
	p.frames[p.head] = end
	p.head = (p.head + 1) % len(p.frames)
	if p.size < len(p.frames) {
		p.size++
	}
}

// FPS returns the frame rate over the trailing window, 0 until at least
// two frames completed.
func (p *PerformanceMonitor) FPS() float64 {
	if p.size < 2 {
		return 0
	}
	newest := p.frames[(p.head-1+len(p.frames))%len(p.frames)]
	oldest := p.frames[(p.head-p.size+len(p.frames))%len(p.frames)]
	elapsed := newest.Sub(oldest).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.size-1) / elapsed
}

// LatencyMs returns the processing latency of the most recent frame in
// milliseconds.
func (p *PerformanceMonitor) LatencyMs() float64 {
	return float64(p.latency) / float64(time.Millisecond)
}
