package eyeguard

import (
	"image"
	"time"
)

// Gaze is the per-frame pipeline: it asks the tracker for a face and the
// eye regions, localizes the pupils, classifies the fused eye state and
// advances the safety monitor. One caller invokes Refresh exactly once per
// captured frame; all mutable state is owned by that goroutine.
type Gaze struct {
	tracker    Tracker
	classifier *EyeStateClassifier
	monitor    *SafetyMonitor
	threshold  int

	faceBox      image.Rectangle
	faceDetected bool
	left, right  *EyeRegion
	leftPupil    PupilEstimate
	rightPupil   PupilEstimate
	state        EyeState
}

// NewGaze builds the pipeline with the tracker selected from the registry.
func NewGaze(cfg Config) (*Gaze, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker, err := NewTracker(cfg.Tracker, cfg.TrackerCfg)
	if err != nil {
		return nil, err
	}
	return NewGazeWithTracker(cfg, tracker)
}

// NewGazeWithTracker builds the pipeline around a pre-initialized tracker
// backend.
func NewGazeWithTracker(cfg Config, tracker Tracker) (*Gaze, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := NewEyeStateClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	monitor, err := NewSafetyMonitor(cfg.Monitor)
	if err != nil {
		return nil, err
	}
	return &Gaze{
		tracker:    tracker,
		classifier: classifier,
		monitor:    monitor,
		threshold:  cfg.PupilThreshold,
		state:      EyeOpen,
	}, nil
}

// Refresh analyzes one frame and advances the safety monitor. A frame
// without a detected face degrades every downstream signal to its
// conservative default instead of failing.
func (g *Gaze) Refresh(frame image.Image, now time.Time) {
	g.left, g.right = nil, nil
	g.leftPupil, g.rightPupil = PupilEstimate{}, PupilEstimate{}

	gray := ToGray(frame)
	g.faceBox, g.faceDetected = g.tracker.DetectFace(gray)
	if !g.faceDetected {
		g.state = EyeOpen
		g.monitor.Update(false, g.state, now)
		return
	}

	g.left, g.right = g.tracker.DetectEyes(gray, g.faceBox)
	g.leftPupil = g.locate(gray, g.left)
	g.rightPupil = g.locate(gray, g.right)

	leftState := g.classifier.Classify(g.left, g.leftPupil, g.hint(g.left))
	rightState := g.classifier.Classify(g.right, g.rightPupil, g.hint(g.right))
	g.state = g.classifier.Fuse(leftState, rightState)

	g.monitor.Update(true, g.state, now)
}

// locate prefers the hinted mode when the tracker can supply a pupil
// center inside the region, falling back to the blind search.
func (g *Gaze) locate(gray *image.Gray, region *EyeRegion) PupilEstimate {
	if region.Empty() {
		return PupilEstimate{}
	}
	if hinter, ok := g.tracker.(PupilHinter); ok {
		if pt, found := hinter.PupilHint(gray, g.faceBox, region.Side); found {
			local := pt.Sub(region.Origin)
			b := region.Img.Bounds()
			if local.X >= 0 && local.Y >= 0 && local.X < b.Dx() && local.Y < b.Dy() {
				return LocatePupilAt(region, g.threshold, local)
			}
		}
	}
	return LocatePupil(region, g.threshold)
}

func (g *Gaze) hint(region *EyeRegion) StateHint {
	if hinter, ok := g.tracker.(EyeStateHinter); ok && !region.Empty() {
		return hinter.EyeStateHint(region)
	}
	return HintUnknown
}

// FaceDetected reports whether the current frame contains a face.
func (g *Gaze) FaceDetected() bool {
	return g.faceDetected
}

// FaceBox returns the face bounding box of the current frame.
func (g *Gaze) FaceBox() (image.Rectangle, bool) {
	return g.faceBox, g.faceDetected
}

// EyeState returns the fused open/closed state of the current frame.
func (g *Gaze) EyeState() EyeState {
	return g.state
}

func (g *Gaze) pupil(side EyeSide) (PupilEstimate, *EyeRegion) {
	if side == LeftEye {
		return g.leftPupil, g.left
	}
	return g.rightPupil, g.right
}

// PupilCoords returns the pupil center in frame coordinates.
func (g *Gaze) PupilCoords(side EyeSide) (image.Point, bool) {
	est, region := g.pupil(side)
	if !est.Present || region.Empty() {
		return image.Point{}, false
	}
	return region.Origin.Add(image.Pt(est.X, est.Y)), true
}

// PupilDiameter returns the measured pupil diameter in pixels.
func (g *Gaze) PupilDiameter(side EyeSide) (float64, bool) {
	est, _ := g.pupil(side)
	if !est.HasDiameter() {
		return 0, false
	}
	return est.Diameter, true
}

// PupilDiameterMean averages the two pupil diameters, tolerating a single
// missing eye.
func (g *Gaze) PupilDiameterMean() (float64, bool) {
	left, lok := g.PupilDiameter(LeftEye)
	right, rok := g.PupilDiameter(RightEye)
	switch {
	case lok && rok:
		return (left + right) / 2, true
	case lok:
		return left, true
	case rok:
		return right, true
	}
	return 0, false
}

// Status returns the current alarm snapshot. Pure read.
func (g *Gaze) Status() Status {
	return g.monitor.Status()
}

// Record assembles the per-frame log record from the current pipeline
// state and the supplied performance figures.
func (g *Gaze) Record(fps, latencyMs float64) Record {
	r := Record{
		Method:          g.tracker.Method(),
		EyeState:        g.state,
		DrowsinessScore: g.monitor.DrowsinessScore(),
		FPS:             fps,
		FaceDetected:    g.faceDetected,
		LatencyMs:       latencyMs,
	}
	if pt, ok := g.PupilCoords(LeftEye); ok {
		r.LeftPupil = &pt
	}
	if pt, ok := g.PupilCoords(RightEye); ok {
		r.RightPupil = &pt
	}
	if d, ok := g.PupilDiameter(LeftEye); ok {
		r.LeftDiameter = d
	}
	if d, ok := g.PupilDiameter(RightEye); ok {
		r.RightDiameter = d
	}
	return r
}
