package eyeguard

import (
	"image"
	"sort"

	"github.com/pkg/errors"
)

// Tracker is the face/landmark detection capability consumed by the
// pipeline. Implementations localize a face and produce the cropped eye
// regions the rest of the pipeline operates on.
type Tracker interface {
	// Method returns the registry tag of the backend, used in log records.
	Method() string

	// DetectFace returns the face bounding box of the current frame, or
	// false when no face is present.
	DetectFace(frame *image.Gray) (image.Rectangle, bool)

	// DetectEyes crops the two eye regions out of the detected face.
	// Either region may be nil when the crop is degenerate.
	DetectEyes(frame *image.Gray, face image.Rectangle) (left, right *EyeRegion)
}

// EyeStateHinter is an optional tracker capability providing a coarse
// per-eye open/closed estimate.
type EyeStateHinter interface {
	EyeStateHint(region *EyeRegion) StateHint
}

// PupilHinter is an optional tracker capability providing a coarse pupil
// center in frame coordinates, used to switch the locator to hinted mode.
type PupilHinter interface {
	PupilHint(frame *image.Gray, face image.Rectangle, side EyeSide) (image.Point, bool)
}

// TrackerConfig carries the backend construction settings.
type TrackerConfig struct {
	// CascadeDir is the directory holding the binary cascade files of the
	// pigo backend (facefinder and, optionally, puploc).
	CascadeDir string

	// Face detection window bounds, in pixels.
	MinFaceSize int
	MaxFaceSize int

	ShiftFactor float64
	ScaleFactor float64

	// IoUThreshold is used when clustering overlapping detections.
	IoUThreshold float64

	// QualityThreshold is the minimum detection score a face cluster must
	// reach to be reported.
	QualityThreshold float32

	// Perturbs is the number of perturbations the pupil localizer runs.
	Perturbs int
}

// DefaultTrackerConfig returns the detection settings used by the CLI.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		CascadeDir:       "data",
		MinFaceSize:      100,
		MaxFaceSize:      600,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		IoUThreshold:     0.2,
		QualityThreshold: 5.0,
		Perturbs:         63,
	}
}

type trackerFactory func(cfg TrackerConfig) (Tracker, error)

var trackerRegistry = map[string]trackerFactory{}

// RegisterTracker adds a backend constructor under a registry tag. The
// concrete variant is selected by tag at construction time, replacing any
// runtime capability probing with compile-time-checkable interfaces.
func RegisterTracker(name string, fn trackerFactory) {
	trackerRegistry[name] = fn
}

// NewTracker instantiates the backend registered under the given tag.
func NewTracker(name string, cfg TrackerConfig) (Tracker, error) {
	fn, ok := trackerRegistry[name]
	if !ok {
		return nil, errors.Errorf("unknown tracker type %q, available: %v", name, TrackerNames())
	}
	return fn(cfg)
}

// TrackerNames lists the registered backend tags in stable order.
func TrackerNames() []string {
	names := make([]string, 0, len(trackerRegistry))
	for name := range trackerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
