// Package trace reads and writes recorded landmark streams as JSON lines,
// one frame per line:
//
//	{"t_ms": 33, "left": [[x,y,z], ...], "right": [[x,y,z], ...]}
//
// A record with no eye points, or with "face": false, is a frame in which
// no face was detected. Blank lines and lines starting with '#' are skipped.
package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/blink.report/internal/blink"
)

// maxLineBytes bounds a single record line.
const maxLineBytes = 1 << 20

var (
	// ErrEmptyTrace is returned by ReadAll when the input holds no records.
	ErrEmptyTrace = errors.New("trace contains no records")

	// ErrTimeWentBackwards is returned when a record's timestamp is earlier
	// than the previous record's.
	ErrTimeWentBackwards = errors.New("trace timestamp went backwards")
)

// Record is one recorded frame.
type Record struct {
	TimeMS int64        `json:"t_ms"`
	Face   *bool        `json:"face,omitempty"`
	Left   [][3]float64 `json:"left,omitempty"`
	Right  [][3]float64 `json:"right,omitempty"`
}

// Offset is the record's time relative to the start of the trace.
func (r Record) Offset() time.Duration {
	return time.Duration(r.TimeMS) * time.Millisecond
}

// HasFace reports whether the record carries a detected face.
func (r Record) HasFace() bool {
	if r.Face != nil && !*r.Face {
		return false
	}
	return len(r.Left) > 0 || len(r.Right) > 0
}

// Frame converts the record into detector input.
func (r Record) Frame() (blink.Frame, error) {
	if !r.HasFace() {
		return blink.NoFace(), nil
	}
	return blink.FrameFromPoints(toPoints(r.Left), toPoints(r.Right))
}

// RecordFromFrame is the inverse of Record.Frame.
func RecordFromFrame(offset time.Duration, f blink.Frame) Record {
	rec := Record{TimeMS: offset.Milliseconds()}
	if !f.Face {
		face := false
		rec.Face = &face
		return rec
	}
	rec.Left = fromEye(f.Left)
	rec.Right = fromEye(f.Right)
	return rec
}

func toPoints(raw [][3]float64) []blink.Point3D {
	pts := make([]blink.Point3D, len(raw))
	for i, c := range raw {
		pts[i] = blink.Point3D{X: c[0], Y: c[1], Z: c[2]}
	}
	return pts
}

func fromEye(eye blink.EyeLandmarks) [][3]float64 {
	out := make([][3]float64, len(eye))
	for i, p := range eye {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}

// Reader decodes records from a JSON-lines stream.
type Reader struct {
	sc     *bufio.Scanner
	line   int
	lastMS int64
	seen   bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Next returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		text := bytes.TrimSpace(r.sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if r.seen && rec.TimeMS < r.lastMS {
			return Record{}, fmt.Errorf("line %d: t_ms %d after %d: %w", r.line, rec.TimeMS, r.lastMS, ErrTimeWentBackwards)
		}
		r.lastMS = rec.TimeMS
		r.seen = true
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return Record{}, io.EOF
}

// ReadAll decodes every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	tr := NewReader(r)
	var out []Record
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrEmptyTrace
	}
	return out, nil
}

// ReadFile opens path and decodes every record in it.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	recs, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", path, err)
	}
	return recs, nil
}

// Writer encodes records as JSON lines.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends rec as a single line.
func (w *Writer) Write(rec Record) error {
	return w.enc.Encode(rec)
}
