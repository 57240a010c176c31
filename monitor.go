package eyeguard

import (
	"time"
)

// Status is an immutable snapshot of the alarm state, safe to hand to the
// display or alerting layer. It carries no reference into the monitor.
type Status struct {
	OutOfFrameAlarm bool
	DrowsinessAlarm bool
	DrowsinessScore float64
}

// SafetyMonitor converts the raw per-frame signals into debounced alarms.
// It runs two independent sub state machines, both advanced by a single
// Update call per frame. All mutable state is owned by the calling
// goroutine; readers only ever receive Status value copies.
type SafetyMonitor struct {
	outOfFrame *OutOfFrameMonitor
	drowsiness *DrowsinessMonitor
}

// NewSafetyMonitor fails fast on invalid thresholds, before any frame is
// processed.
func NewSafetyMonitor(cfg MonitorConfig) (*SafetyMonitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SafetyMonitor{
		outOfFrame: &OutOfFrameMonitor{threshold: cfg.OutOfFrameThreshold},
		drowsiness: &DrowsinessMonitor{
			perclosThreshold: cfg.PerclosThreshold,
			sustained:        cfg.SustainedDuration,
			cooldown:         cfg.Cooldown,
			window:           newStateWindow(cfg.WindowSize),
		},
	}, nil
}

// Update advances both sub machines with the current frame's signals.
// Timestamps are assumed monotonically non-decreasing; a regressive
// timestamp still records the eye state sample but cannot advance the
// sustained-duration or cooldown clocks.
func (m *SafetyMonitor) Update(faceDetected bool, state EyeState, now time.Time) {
	m.outOfFrame.Update(faceDetected)
	m.drowsiness.Update(state, now)
}

// Status returns the two alarm flags and the current drowsiness score.
// It is a side-effect-free read.
func (m *SafetyMonitor) Status() Status {
	return Status{
		OutOfFrameAlarm: m.outOfFrame.AlarmActive(),
		DrowsinessAlarm: m.drowsiness.AlarmActive(),
		DrowsinessScore: m.drowsiness.Score(),
	}
}

// DrowsinessScore returns the current PERCLOS value.
func (m *SafetyMonitor) DrowsinessScore() float64 {
	return m.drowsiness.Score()
}

// OutOfFrameMonitor raises an alarm after a configured number of
// consecutive frames without a detected face. A single detected face
// clears the alarm and re-arms the monitor immediately; there is no
// cooldown on this alarm.
type OutOfFrameMonitor struct {
	threshold int
	misses    int
	alarmed   bool
}

// Update records one frame's face detection outcome.
func (m *OutOfFrameMonitor) Update(faceDetected bool) {
	if faceDetected {
		m.misses = 0
		m.alarmed = false
		return
	}
	m.misses++
	if m.misses >= m.threshold {
		m.alarmed = true
	}
}

// AlarmActive reflects the current state only.
func (m *OutOfFrameMonitor) AlarmActive() bool {
	return m.alarmed
}

type drowsinessState int

const (
	drowsyNormal drowsinessState = iota
	drowsyConfirming
	drowsyAlarmed
	drowsyCooldown
)

// DrowsinessMonitor detects sustained eye closure via PERCLOS over a
// sliding sample window. The drowsy condition must hold for a configured
// wall-clock duration before the alarm activates, and once cleared the
// alarm cannot re-activate until the cooldown has elapsed. Elapsed real
// time is used rather than frame counts, so the behavior is stable under
// frame-rate variation.
type DrowsinessMonitor struct {
	perclosThreshold float64
	sustained        time.Duration
	cooldown         time.Duration

	window      *stateWindow
	state       drowsinessState
	drowsySince time.Time
	clearedAt   time.Time
}

// Update appends the fused eye state to the window, recomputes PERCLOS and
// advances the state machine.
func (m *DrowsinessMonitor) Update(state EyeState, now time.Time) {
	m.window.push(state)
	drowsy := m.window.perclos() >= m.perclosThreshold

	switch m.state {
	case drowsyNormal:
		if drowsy {
			m.beginConfirming(now)
		}
	case drowsyConfirming:
		if !drowsy {
			// No partial credit: the sustained window restarts from
			// scratch on the next onset.
			m.drowsySince = time.Time{}
			m.state = drowsyNormal
		} else if now.Sub(m.drowsySince) >= m.sustained {
			m.state = drowsyAlarmed
		}
	case drowsyAlarmed:
		if !drowsy {
			m.clearedAt = now
			m.state = drowsyCooldown
		}
	case drowsyCooldown:
		if now.Sub(m.clearedAt) >= m.cooldown {
			m.state = drowsyNormal
			if drowsy {
				m.beginConfirming(now)
			}
		}
	}
}

func (m *DrowsinessMonitor) beginConfirming(now time.Time) {
	m.drowsySince = now
	m.state = drowsyConfirming
	if m.sustained == 0 {
		m.state = drowsyAlarmed
	}
}

// AlarmActive reports whether the drowsiness alarm is currently raised.
func (m *DrowsinessMonitor) AlarmActive() bool {
	return m.state == drowsyAlarmed
}

// Score returns the current PERCLOS value. Pure read.
func (m *DrowsinessMonitor) Score() float64 {
	return m.window.perclos()
}

// stateWindow is a fixed-capacity FIFO ring buffer over the most recent
// eye state samples, keeping a running count of the closed ones.
type stateWindow struct {
	samples []EyeState
	head    int
	size    int
	closed  int
}

func newStateWindow(capacity int) *stateWindow {
	return &stateWindow{samples: make([]EyeState, capacity)}
}

// push appends a sample, evicting the oldest one on overflow.
func (w *stateWindow) push(s EyeState) {
	if w.size == len(w.samples) {
		if w.samples[w.head] == EyeClosed {
			w.closed--
		}
	} else {
		w.size++
	}
	w.samples[w.head] = s
	if s == EyeClosed {
		w.closed++
	}
	w.head = (w.head + 1) % len(w.samples)
}

// perclos returns the fraction of closed samples currently held.
func (w *stateWindow) perclos() float64 {
	if w.size == 0 {
		return 0
	}
	return float64(w.closed) / float64(w.size)
}
