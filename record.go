package eyeguard

import (
	"encoding/csv"
	"image"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// Record is one per-frame measurement row. Pointer coordinate fields and
// zero diameters denote absent measurements and serialize to empty CSV
// cells.
type Record struct {
	Method          string
	LeftPupil       *image.Point
	RightPupil      *image.Point
	LeftDiameter    float64
	RightDiameter   float64
	EyeState        EyeState
	DrowsinessScore float64
	FPS             float64
	FaceDetected    bool
	LatencyMs       float64
}

// RecordHeader returns the CSV column names in field order.
func RecordHeader() []string {
	return []string{
		"method",
		"left_pupil_x", "left_pupil_y",
		"right_pupil_x", "right_pupil_y",
		"left_diameter", "right_diameter",
		"eye_state",
		"drowsiness_score",
		"fps",
		"face_detected",
		"latency_ms",
	}
}

// Fields serializes the record in the RecordHeader column order.
func (r Record) Fields() []string {
	fields := make([]string, 0, 12)
	fields = append(fields, r.Method)
	fields = append(fields, pointFields(r.LeftPupil)...)
	fields = append(fields, pointFields(r.RightPupil)...)
	fields = append(fields, diameterField(r.LeftDiameter), diameterField(r.RightDiameter))
	fields = append(fields,
		strconv.Itoa(int(r.EyeState)),
		formatFloat(r.DrowsinessScore),
		formatFloat(r.FPS),
		strconv.FormatBool(r.FaceDetected),
		formatFloat(r.LatencyMs),
	)
	return fields
}

func pointFields(pt *image.Point) []string {
	if pt == nil {
		return []string{"", ""}
	}
	return []string{strconv.Itoa(pt.X), strconv.Itoa(pt.Y)}
}

func diameterField(d float64) string {
	if d <= 0 {
		return ""
	}
	return formatFloat(d)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

// Logger accumulates records and writes them out in CSV batches. It is
// not safe for concurrent use.
type Logger struct {
	w         *csv.Writer
	buffer    []Record
	size      int
	autoFlush bool
}

// NewLogger writes the header row immediately and buffers up to
// bufferSize records before each automatic flush.
func NewLogger(w io.Writer, bufferSize int, autoFlush bool) (*Logger, error) {
	if bufferSize < 1 {
		return nil, errors.Errorf("logger buffer size must be positive, got %d", bufferSize)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(RecordHeader()); err != nil {
		return nil, errors.Wrap(err, "unable to write the log header")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, errors.Wrap(err, "unable to write the log header")
	}
	return &Logger{
		w:         cw,
		buffer:    make([]Record, 0, bufferSize),
		size:      bufferSize,
		autoFlush: autoFlush,
	}, nil
}

// Log buffers one record, flushing the batch when the buffer fills and
// automatic flushing is enabled.
func (l *Logger) Log(r Record) error {
	l.buffer = append(l.buffer, r)
	if l.autoFlush && len(l.buffer) >= l.size {
		return l.Flush()
	}
	return nil
}

// Flush writes all buffered records. The buffer is cleared even when the
// write fails, dropping rather than duplicating rows.
func (l *Logger) Flush() error {
	for _, r := range l.buffer {
		if err := l.w.Write(r.Fields()); err != nil {
			l.buffer = l.buffer[:0]
			return errors.Wrap(err, "unable to write a log record")
		}
	}
	l.buffer = l.buffer[:0]
	l.w.Flush()
	return errors.Wrap(l.w.Error(), "unable to flush the log")
}

// Buffered returns the number of records awaiting a flush.
func (l *Logger) Buffered() int {
	return len(l.buffer)
}
