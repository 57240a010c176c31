package eyeguard

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EyeState is the binary open/closed classification of an eye, or of the
// fused pair.
type EyeState int

const (
	EyeClosed EyeState = iota
	EyeOpen
)

func (s EyeState) String() string {
	if s == EyeOpen {
		return "open"
	}
	return "closed"
}

// StateHint is a coarse eye state supplied by an external tracker, used as
// a weak signal by the classifier.
type StateHint int

const (
	HintUnknown StateHint = iota
	HintOpen
	HintClosed
)

// EyeStateClassifier decides whether an eye is open or closed. It follows
// a default-open philosophy: a closed verdict needs strong evidence,
// because a false closed reading eventually triggers a costly false alarm.
type EyeStateClassifier struct {
	cfg ClassifierConfig

	rules []classifierRule
}

// classifierRule is one entry of the ordered decision table. The first
// rule returning a decided verdict wins.
type classifierRule struct {
	name string
	eval func(*classifierInput) (EyeState, bool)
}

// classifierInput carries the per-eye evidence together with the lazily
// computed image signals shared between rules.
type classifierInput struct {
	region *EyeRegion
	pupil  PupilEstimate
	hint   StateHint

	ratio    float64
	ratioOK  bool
	ratioSet bool
}

// NewEyeStateClassifier validates the thresholds and builds the decision
// table.
func NewEyeStateClassifier(cfg ClassifierConfig) (*EyeStateClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &EyeStateClassifier{cfg: cfg}
	c.rules = []classifierRule{
		// A clean pupil contour is by itself sufficient evidence of an
		// open eye.
		{name: "pupil-located", eval: func(in *classifierInput) (EyeState, bool) {
			if in.pupil.Present {
				return EyeOpen, true
			}
			return EyeOpen, false
		}},
		// An external tracker claiming open is trusted as-is. A closed
		// claim is not: it must be corroborated by the openness ratio.
		{name: "tracker-open", eval: func(in *classifierInput) (EyeState, bool) {
			if cfg.UseTrackerState && in.hint == HintOpen {
				return EyeOpen, true
			}
			return EyeOpen, false
		}},
		{name: "tracker-closed-corroborated", eval: func(in *classifierInput) (EyeState, bool) {
			if cfg.UseTrackerState && in.hint == HintClosed {
				if ratio, ok := c.opennessRatio(in); ok && ratio < cfg.ClosedRatio {
					return EyeClosed, true
				}
			}
			return EyeOpen, false
		}},
		// Primary own-computed signal: the intensity projection openness
		// ratio against a strict, conservative lower bound.
		{name: "projection-ratio", eval: func(in *classifierInput) (EyeState, bool) {
			ratio, ok := c.opennessRatio(in)
			if !ok || ratio >= cfg.ClosedRatio {
				return EyeOpen, false
			}
			if !cfg.MultiMethod {
				return EyeClosed, true
			}
			// Multi-method fusion: the primary verdict needs a second
			// opinion before closing.
			if histogramSuggestsClosed(in.region, cfg.HistogramThreshold) ||
				contourAreaSuggestsClosed(in.region, cfg.ContourAreaThreshold) {
				return EyeClosed, true
			}
			return EyeOpen, false
		}},
	}
	return c, nil
}

// Classify runs the decision table over one eye. Missing evidence of any
// kind degrades to open.
func (c *EyeStateClassifier) Classify(region *EyeRegion, pupil PupilEstimate, hint StateHint) EyeState {
	in := &classifierInput{region: region, pupil: pupil, hint: hint}
	for _, rule := range c.rules {
		if state, decided := rule.eval(in); decided {
			return state
		}
	}
	return EyeOpen
}

// Fuse combines the two per-eye verdicts into the pair state. The pair is
// closed as soon as either eye reports closed, maximizing sensitivity.
func (c *EyeStateClassifier) Fuse(left, right EyeState) EyeState {
	if left == EyeClosed || right == EyeClosed {
		return EyeClosed
	}
	return EyeOpen
}

// opennessRatio derives an eye openness measure from the horizontal
// intensity projection of the region: the top-half peak is contrasted
// against the bottom-half peak, normalized by the projection mean and the
// image aspect ratio. Open eyes show a strong asymmetry between the two
// halves; nearly flat projections indicate a closed lid.
func (c *EyeStateClassifier) opennessRatio(in *classifierInput) (float64, bool) {
	if in.ratioSet {
		return in.ratio, in.ratioOK
	}
	in.ratioSet = true

	if in.region.Empty() {
		return 0, false
	}
	b := in.region.Img.Bounds()
	w, h := b.Dx(), b.Dy()
	mid := h / 2
	if mid == 0 || h-mid == 0 {
		return 0, false
	}

	proj := make([]float64, h)
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += float64(in.region.Img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
		proj[y] = row
	}

	var topMax, bottomMax float64
	for y := 0; y < mid; y++ {
		topMax = math.Max(topMax, proj[y])
	}
	for y := mid; y < h; y++ {
		bottomMax = math.Max(bottomMax, proj[y])
	}

	vertical := math.Abs(topMax-bottomMax) / (stat.Mean(proj, nil) + 1e-6)
	ratio := vertical / (2 * float64(w)) * (float64(h) / float64(w))

	in.ratio, in.ratioOK = ratio, true
	return ratio, true
}

// histogramSuggestsClosed checks the normalized intensity variance of the
// region. A closed lid shows little intensity variation.
func histogramSuggestsClosed(region *EyeRegion, threshold float64) bool {
	if region.Empty() {
		return false
	}
	vals := grayValues(region.Img)

	var maxVal float64
	for _, v := range vals {
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == 0 {
		return false
	}
	return stat.Variance(vals, nil)/(maxVal+1e-6) < threshold
}

// contourAreaSuggestsClosed measures the total foreground contour area
// after an Otsu binarization. An open eye exposes the iris and sclera
// structure as sizable foreground blobs; a closed one does not.
func contourAreaSuggestsClosed(region *EyeRegion, threshold float64) bool {
	if region.Empty() {
		return false
	}
	b := region.Img.Bounds()
	frameArea := float64(b.Dx() * b.Dy())
	if frameArea == 0 {
		return false
	}

	var total float64
	for _, c := range FindContours(OtsuThreshold(region.Img)) {
		total += c.Area()
	}
	return total/frameArea < threshold
}
