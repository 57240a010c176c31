package eyeguard

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubTracker feeds canned detections into the pipeline.
type stubTracker struct {
	face    image.Rectangle
	hasFace bool
	left    *EyeRegion
	right   *EyeRegion
}

func (s *stubTracker) Method() string { return "stub" }

func (s *stubTracker) DetectFace(frame *image.Gray) (image.Rectangle, bool) {
	return s.face, s.hasFace
}

func (s *stubTracker) DetectEyes(frame *image.Gray, face image.Rectangle) (*EyeRegion, *EyeRegion) {
	return s.left, s.right
}

// hintingTracker additionally exposes the two optional capabilities.
type hintingTracker struct {
	stubTracker
	pupil    image.Point
	hasPupil bool
	hint     StateHint
}

func (s *hintingTracker) PupilHint(frame *image.Gray, face image.Rectangle, side EyeSide) (image.Point, bool) {
	return s.pupil, s.hasPupil
}

func (s *hintingTracker) EyeStateHint(region *EyeRegion) StateHint {
	return s.hint
}

func testGazeConfig() Config {
	cfg := DefaultConfig()
	cfg.Monitor.OutOfFrameThreshold = 2
	cfg.Monitor.WindowSize = 4
	cfg.Monitor.PerclosThreshold = 0.5
	cfg.Monitor.SustainedDuration = 0
	return cfg
}

// openEyes returns a tracker serving one face and two eye regions with a
// clearly visible pupil each.
func openEyes() *stubTracker {
	left := syntheticEye(40, 30, 20, 20, 4, LeftEye)
	left.Origin = image.Pt(100, 50)
	right := syntheticEye(40, 30, 20, 20, 4, RightEye)
	right.Origin = image.Pt(160, 50)
	return &stubTracker{
		face:    image.Rect(80, 20, 220, 160),
		hasFace: true,
		left:    left,
		right:   right,
	}
}

func frame() *image.Gray {
	return grayImage(320, 240, 128)
}

func TestGaze_OpenEyesShouldReadOpenWithFramePupilCoords(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGazeWithTracker(testGazeConfig(), openEyes())
	assert.NoError(err)

	g.Refresh(frame(), time.Now())

	assert.True(g.FaceDetected())
	assert.Equal(EyeOpen, g.EyeState())

	pt, ok := g.PupilCoords(LeftEye)
	assert.True(ok)
	assert.InDelta(120, pt.X, 3)
	assert.InDelta(70, pt.Y, 3)

	pt, ok = g.PupilCoords(RightEye)
	assert.True(ok)
	assert.InDelta(180, pt.X, 3)

	d, ok := g.PupilDiameter(LeftEye)
	assert.True(ok)
	assert.Greater(d, 0.0)

	mean, ok := g.PupilDiameterMean()
	assert.True(ok)
	assert.Greater(mean, 0.0)
}

func TestGaze_ClosedEyesShouldDriveTheDrowsinessAlarm(t *testing.T) {
	assert := assert.New(t)

	closed := &stubTracker{
		face:    image.Rect(80, 20, 220, 160),
		hasFace: true,
		left:    flatRegion(80),
		right:   flatRegion(80),
	}
	g, err := NewGazeWithTracker(testGazeConfig(), closed)
	assert.NoError(err)

	now := time.Now()
	g.Refresh(frame(), now)

	assert.Equal(EyeClosed, g.EyeState())
	_, ok := g.PupilCoords(LeftEye)
	assert.False(ok)

	// PERCLOS 1.0 with an immediate sustained duration.
	assert.True(g.Status().DrowsinessAlarm)
	assert.InDelta(1.0, g.Status().DrowsinessScore, 1e-9)
}

func TestGaze_MissingFaceShouldRaiseOutOfFrameAlarm(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGazeWithTracker(testGazeConfig(), &stubTracker{})
	assert.NoError(err)

	now := time.Now()
	g.Refresh(frame(), now)
	assert.False(g.FaceDetected())
	assert.False(g.Status().OutOfFrameAlarm)

	_, ok := g.FaceBox()
	assert.False(ok)

	g.Refresh(frame(), now.Add(100*time.Millisecond))
	assert.True(g.Status().OutOfFrameAlarm)

	// Eye state degrades to open, so the drowsiness path stays quiet.
	assert.Equal(EyeOpen, g.EyeState())
	assert.False(g.Status().DrowsinessAlarm)
}

func TestGaze_ReturningFaceShouldClearOutOfFrameAlarm(t *testing.T) {
	assert := assert.New(t)

	tracker := openEyes()
	tracker.hasFace = false

	g, err := NewGazeWithTracker(testGazeConfig(), tracker)
	assert.NoError(err)

	now := time.Now()
	g.Refresh(frame(), now)
	g.Refresh(frame(), now.Add(100*time.Millisecond))
	assert.True(g.Status().OutOfFrameAlarm)

	tracker.hasFace = true
	g.Refresh(frame(), now.Add(200*time.Millisecond))
	assert.False(g.Status().OutOfFrameAlarm)
	assert.True(g.FaceDetected())
}

func TestGaze_PupilHintInsideRegionShouldSwitchToHintedMode(t *testing.T) {
	assert := assert.New(t)

	base := openEyes()
	tracker := &hintingTracker{
		stubTracker: *base,
		// Frame coordinates mapping into the left region's pupil disc.
		pupil:    image.Pt(120, 70),
		hasPupil: true,
	}

	g, err := NewGazeWithTracker(testGazeConfig(), tracker)
	assert.NoError(err)

	g.Refresh(frame(), time.Now())

	// Hinted mode keeps the exact hint coordinates.
	pt, ok := g.PupilCoords(LeftEye)
	assert.True(ok)
	assert.Equal(image.Pt(120, 70), pt)

	d, ok := g.PupilDiameter(LeftEye)
	assert.True(ok)
	assert.Greater(d, 0.0)
}

func TestGaze_HintOutsideRegionShouldFallBackToBlindSearch(t *testing.T) {
	assert := assert.New(t)

	base := openEyes()
	tracker := &hintingTracker{
		stubTracker: *base,
		pupil:       image.Pt(5, 5), // outside both regions
		hasPupil:    true,
	}

	g, err := NewGazeWithTracker(testGazeConfig(), tracker)
	assert.NoError(err)

	g.Refresh(frame(), time.Now())

	pt, ok := g.PupilCoords(LeftEye)
	assert.True(ok)
	assert.InDelta(120, pt.X, 3)
	assert.InDelta(70, pt.Y, 3)
}

func TestGaze_RecordShouldMirrorThePipelineState(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGazeWithTracker(testGazeConfig(), openEyes())
	assert.NoError(err)

	g.Refresh(frame(), time.Now())
	r := g.Record(29.5, 12.25)

	assert.Equal("stub", r.Method)
	assert.True(r.FaceDetected)
	assert.Equal(EyeOpen, r.EyeState)
	assert.NotNil(r.LeftPupil)
	assert.NotNil(r.RightPupil)
	assert.Greater(r.LeftDiameter, 0.0)
	assert.InDelta(29.5, r.FPS, 1e-9)
	assert.InDelta(12.25, r.LatencyMs, 1e-9)
}

func TestGaze_AbsentFaceRecordShouldHaveEmptyMeasurements(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGazeWithTracker(testGazeConfig(), &stubTracker{})
	assert.NoError(err)

	g.Refresh(frame(), time.Now())
	r := g.Record(0, 0)

	assert.False(r.FaceDetected)
	assert.Nil(r.LeftPupil)
	assert.Nil(r.RightPupil)
	assert.Zero(r.LeftDiameter)
}

func TestNewGaze_UnknownTrackerShouldFail(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Tracker = "no-such-backend"
	_, err := NewGaze(cfg)
	assert.Error(err)
	assert.Contains(err.Error(), "no-such-backend")
}

func TestNewGaze_InvalidConfigShouldFail(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.PupilThreshold = 300
	_, err := NewGazeWithTracker(cfg, &stubTracker{})
	assert.Error(err)
}
