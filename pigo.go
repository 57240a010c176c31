package eyeguard

import (
	"image"
	"os"
	"path/filepath"

	pigo "github.com/esimov/pigo/core"
	"github.com/ken001111/eyeguard/utils"
	"github.com/pkg/errors"
)

func init() {
	RegisterTracker("pigo", func(cfg TrackerConfig) (Tracker, error) {
		return NewPigoTracker(cfg)
	})
}

// Eye placement relative to the detected face cluster, expressed as
// fractions of the detection scale. The offsets follow the pigo pupil
// localization examples.
const (
	eyeRowOffset      = 0.075
	leftEyeColOffset  = 0.175
	rightEyeColOffset = 0.185
	eyeRegionWidth    = 0.30
	eyeRegionHeight   = 0.20
	pupilScaleFactor  = 0.25
)

// PigoTracker is a Tracker backend built on the pigo pixel intensity
// comparison cascades. The facefinder cascade localizes the face; the
// optional puploc cascade supplies a coarse pupil center which switches
// the pupil locator into hinted mode.
type PigoTracker struct {
	cfg        TrackerConfig
	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
}

var _ Tracker = (*PigoTracker)(nil)
var _ PupilHinter = (*PigoTracker)(nil)

// NewPigoTracker unpacks the binary cascade files from the configured
// directory. The facefinder cascade is mandatory; a missing puploc
// cascade only disables the pupil hint capability.
func NewPigoTracker(cfg TrackerConfig) (*PigoTracker, error) {
	cascade, err := os.ReadFile(filepath.Join(cfg.CascadeDir, "facefinder"))
	if err != nil {
		return nil, errors.Wrap(err, "reading the facefinder cascade file")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, errors.Wrap(err, "unpacking the facefinder cascade file")
	}

	t := &PigoTracker{cfg: cfg, classifier: classifier}

	plcFile, err := os.ReadFile(filepath.Join(cfg.CascadeDir, "puploc"))
	if err == nil {
		plc, err := pigo.NewPuplocCascade().UnpackCascade(plcFile)
		if err != nil {
			return nil, errors.Wrap(err, "unpacking the puploc cascade file")
		}
		t.puploc = plc
	}
	return t, nil
}

// Method returns the registry tag.
func (t *PigoTracker) Method() string {
	return "pigo"
}

func imageParams(frame *image.Gray) pigo.ImageParams {
	b := frame.Bounds()
	return pigo.ImageParams{
		Pixels: frame.Pix,
		Rows:   b.Dy(),
		Cols:   b.Dx(),
		Dim:    frame.Stride,
	}
}

// detect runs the cascade over the frame and returns the best scoring
// face cluster.
func (t *PigoTracker) detect(frame *image.Gray) (pigo.Detection, bool) {
	cp := pigo.CascadeParams{
		MinSize:     t.cfg.MinFaceSize,
		MaxSize:     t.cfg.MaxFaceSize,
		ShiftFactor: t.cfg.ShiftFactor,
		ScaleFactor: t.cfg.ScaleFactor,
		ImageParams: imageParams(frame),
	}

	dets := t.classifier.RunCascade(cp, 0.0)
	dets = t.classifier.ClusterDetections(dets, t.cfg.IoUThreshold)

	var best pigo.Detection
	found := false
	for _, det := range dets {
		if det.Q >= t.cfg.QualityThreshold && (!found || det.Q > best.Q) {
			best = det
			found = true
		}
	}
	return best, found
}

// DetectFace returns the bounding box of the highest scoring face.
func (t *PigoTracker) DetectFace(frame *image.Gray) (image.Rectangle, bool) {
	det, ok := t.detect(frame)
	if !ok {
		return image.Rectangle{}, false
	}
	half := det.Scale / 2
	box := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
	return box.Intersect(frame.Bounds()), true
}

// DetectEyes crops the two eye regions out of the face box, placing them
// at the canonical offsets of the detection scale.
func (t *PigoTracker) DetectEyes(frame *image.Gray, face image.Rectangle) (left, right *EyeRegion) {
	scale := float64(face.Dx())
	centerX := float64(face.Min.X) + scale/2
	centerY := float64(face.Min.Y) + scale/2

	eyeRow := centerY - eyeRowOffset*scale
	left = t.cropEye(frame, centerX-leftEyeColOffset*scale, eyeRow, scale, LeftEye)
	right = t.cropEye(frame, centerX+rightEyeColOffset*scale, eyeRow, scale, RightEye)
	return left, right
}

func (t *PigoTracker) cropEye(frame *image.Gray, cx, cy, scale float64, side EyeSide) *EyeRegion {
	w := int(eyeRegionWidth * scale)
	h := int(eyeRegionHeight * scale)
	rect := image.Rect(int(cx)-w/2, int(cy)-h/2, int(cx)+w/2, int(cy)+h/2).
		Intersect(frame.Bounds())
	if rect.Empty() {
		return nil
	}
	return &EyeRegion{
		Img:    frame.SubImage(rect).(*image.Gray),
		Origin: rect.Min,
		Side:   side,
	}
}

// PupilHint runs the puploc cascade around the canonical eye position and
// returns the pupil center in frame coordinates.
func (t *PigoTracker) PupilHint(frame *image.Gray, face image.Rectangle, side EyeSide) (image.Point, bool) {
	if t.puploc == nil {
		return image.Point{}, false
	}
	scale := float32(face.Dx())
	row := face.Min.Y + int(scale/2) - int(eyeRowOffset*scale)
	col := face.Min.X + int(scale/2)
	if side == LeftEye {
		col -= int(leftEyeColOffset * scale)
	} else {
		col += int(rightEyeColOffset * scale)
	}

	loc := t.puploc.RunDetector(pigo.Puploc{
		Row:      row,
		Col:      col,
		Scale:    scale * pupilScaleFactor,
		Perturbs: t.cfg.Perturbs,
	}, imageParams(frame), 0.0, false)

	if loc == nil || loc.Row <= 0 || loc.Col <= 0 {
		return image.Point{}, false
	}
	b := frame.Bounds()
	return image.Pt(
		utils.Clamp(loc.Col, b.Min.X, b.Max.X-1),
		utils.Clamp(loc.Row, b.Min.Y, b.Max.Y-1),
	), true
}
