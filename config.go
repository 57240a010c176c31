package eyeguard

import (
	"time"

	"github.com/pkg/errors"
)

// Default tuning values. They reflect the settings used during field tests
// and err on the side of fewer false alarms.
const (
	DefaultPupilThreshold       = 50
	DefaultPerclosThreshold     = 0.7
	DefaultWindowSize           = 120
	DefaultSustainedDuration    = 3 * time.Second
	DefaultCooldown             = 10 * time.Second
	DefaultOutOfFrameThreshold  = 5
	DefaultClosedRatio          = 0.02
	DefaultHistogramThreshold   = 0.2
	DefaultContourAreaThreshold = 0.05
)

// Config aggregates the settings of every pipeline stage. Each component
// receives its values at construction time and never consults shared
// mutable state afterwards.
type Config struct {
	// Tracker selects the face/landmark backend from the tracker registry.
	Tracker string

	// PupilThreshold is the binarization offset used by the pupil locator.
	PupilThreshold int

	Classifier ClassifierConfig
	Monitor    MonitorConfig
	TrackerCfg TrackerConfig
}

// ClassifierConfig holds the eye state decision thresholds.
type ClassifierConfig struct {
	// ClosedRatio is the strict lower bound on the openness ratio below
	// which the primary signal reports a closed eye.
	ClosedRatio float64

	// UseTrackerState enables the tracker supplied coarse eye state hint.
	UseTrackerState bool

	// MultiMethod enables the secondary corroboration signals. When set, a
	// closed verdict additionally requires either the histogram variance or
	// the foreground contour area signal to agree.
	MultiMethod bool

	HistogramThreshold   float64
	ContourAreaThreshold float64
}

// MonitorConfig holds the safety monitor thresholds.
type MonitorConfig struct {
	// OutOfFrameThreshold is the number of consecutive frames without a
	// detected face before the out-of-frame alarm activates.
	OutOfFrameThreshold int

	// PerclosThreshold is the PERCLOS score at which the operator is
	// considered drowsy.
	PerclosThreshold float64

	// SustainedDuration is the wall-clock time the drowsy condition must
	// hold continuously before the alarm activates.
	SustainedDuration time.Duration

	// Cooldown is the wall-clock time after the alarm clears during which
	// it may not re-activate.
	Cooldown time.Duration

	// WindowSize is the capacity of the PERCLOS sample window.
	WindowSize int
}

// DefaultConfig returns the configuration used by the CLI when no flags
// override it.
func DefaultConfig() Config {
	return Config{
		Tracker:        "pigo",
		PupilThreshold: DefaultPupilThreshold,
		Classifier: ClassifierConfig{
			ClosedRatio:          DefaultClosedRatio,
			HistogramThreshold:   DefaultHistogramThreshold,
			ContourAreaThreshold: DefaultContourAreaThreshold,
		},
		Monitor: MonitorConfig{
			OutOfFrameThreshold: DefaultOutOfFrameThreshold,
			PerclosThreshold:    DefaultPerclosThreshold,
			SustainedDuration:   DefaultSustainedDuration,
			Cooldown:            DefaultCooldown,
			WindowSize:          DefaultWindowSize,
		},
		TrackerCfg: DefaultTrackerConfig(),
	}
}

// Validate reports the first invalid construction parameter. The pipeline
// fails fast on configuration errors, before any frame is processed.
func (c Config) Validate() error {
	if c.PupilThreshold < 0 || c.PupilThreshold > 255 {
		return errors.Errorf("pupil threshold %d outside the [0, 255] range", c.PupilThreshold)
	}
	if err := c.Classifier.Validate(); err != nil {
		return err
	}
	return c.Monitor.Validate()
}

// Validate checks the classifier thresholds.
func (c ClassifierConfig) Validate() error {
	if c.ClosedRatio < 0 {
		return errors.Errorf("closed ratio bound must not be negative, got %v", c.ClosedRatio)
	}
	if c.MultiMethod {
		if c.HistogramThreshold <= 0 {
			return errors.Errorf("histogram threshold must be positive, got %v", c.HistogramThreshold)
		}
		if c.ContourAreaThreshold <= 0 {
			return errors.Errorf("contour area threshold must be positive, got %v", c.ContourAreaThreshold)
		}
	}
	return nil
}

// Validate checks the safety monitor thresholds.
func (c MonitorConfig) Validate() error {
	if c.OutOfFrameThreshold < 1 {
		return errors.Errorf("out-of-frame threshold must be at least 1, got %d", c.OutOfFrameThreshold)
	}
	if c.PerclosThreshold < 0 || c.PerclosThreshold > 1 {
		return errors.Errorf("PERCLOS threshold %v outside the [0, 1] range", c.PerclosThreshold)
	}
	if c.SustainedDuration < 0 {
		return errors.Errorf("sustained duration must not be negative, got %v", c.SustainedDuration)
	}
	if c.Cooldown < 0 {
		return errors.Errorf("cooldown must not be negative, got %v", c.Cooldown)
	}
	if c.WindowSize < 1 {
		return errors.Errorf("window size must be at least 1, got %d", c.WindowSize)
	}
	return nil
}
