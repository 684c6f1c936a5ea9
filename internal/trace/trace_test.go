package trace

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/blink.report/internal/blink"
)

const openEye = `[[0,0,0],[0.3,0.1,0],[0.7,0.1,0],[1,0,0],[0.7,-0.1,0],[0.3,-0.1,0]]`

func TestReader_Next(t *testing.T) {
	input := strings.Join([]string{
		`# recorded 2026-01-01`,
		`{"t_ms": 0, "left": ` + openEye + `, "right": ` + openEye + `}`,
		``,
		`{"t_ms": 33}`,
		`{"t_ms": 66, "face": false, "left": ` + openEye + `}`,
	}, "\n")

	r := NewReader(strings.NewReader(input))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.True(t, rec.HasFace())
	f, err := rec.Frame()
	require.NoError(t, err)
	assert.True(t, f.Face)
	ear, err := blink.EAR(f.Left)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, ear, 1e-9)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 33*time.Millisecond, rec.Offset())
	f, err = rec.Frame()
	require.NoError(t, err)
	assert.False(t, f.Face)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.False(t, rec.HasFace(), "explicit face=false wins over points")

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Errors(t *testing.T) {
	r := NewReader(strings.NewReader("{\"t_ms\": 0}\n{nope}\n"))
	_, _ = r.Next()
	_, err := r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	r = NewReader(strings.NewReader("{\"t_ms\": 50}\n{\"t_ms\": 10}\n"))
	_, _ = r.Next()
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrTimeWentBackwards)
}

func TestRecord_FrameTooFewPoints(t *testing.T) {
	rec := Record{Left: [][3]float64{{0, 0, 0}}, Right: [][3]float64{{0, 0, 0}}}
	_, err := rec.Frame()
	assert.ErrorIs(t, err, blink.ErrTooFewPoints)
}

func TestReadAll_Empty(t *testing.T) {
	_, err := ReadAll(strings.NewReader("# nothing here\n\n"))
	assert.True(t, errors.Is(err, ErrEmptyTrace))
}

func TestWriterReadAll_RoundTrip(t *testing.T) {
	eye := blink.EyeLandmarks{
		{X: 0}, {X: 0.3, Y: 0.1}, {X: 0.7, Y: 0.1},
		{X: 1}, {X: 0.7, Y: -0.1}, {X: 0.3, Y: -0.1},
	}
	frames := []blink.Frame{blink.NewFrame(eye, eye), blink.NoFace(), blink.NewFrame(eye, eye.Scale(2))}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i, f := range frames {
		require.NoError(t, w.Write(RecordFromFrame(time.Duration(i)*33*time.Millisecond, f)))
	}

	recs, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, recs, len(frames))

	for i, rec := range recs {
		got, err := rec.Frame()
		require.NoError(t, err)
		if diff := cmp.Diff(frames[i], got); diff != "" {
			t.Errorf("frame %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	assert.Equal(t, int64(66), recs[2].TimeMS)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"t_ms": 0}`+"\n"), 0644))

	recs, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
