// Package diag records detector output over a replay and renders it as
// static PNG plots or an interactive HTML chart for threshold tuning.
package diag

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/blink.report/internal/blink"
)

// ErrNoSamples is returned when rendering a plotter that recorded nothing.
var ErrNoSamples = errors.New("no samples recorded")

var (
	earColor       = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	baselineColor  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	blinkColor     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	rejectColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// TraceSample is one frame of recorded detector output.
type TraceSample struct {
	Offset     time.Duration // since the first sample
	Detected   bool
	EAR        float64
	Threshold  float64
	Baseline   float64
	EyesClosed bool
	Blink      bool
	Rejected   bool
}

// TracePlotter accumulates FrameResults between Start and Stop.
type TracePlotter struct {
	mu      sync.Mutex
	title   string
	enabled bool
	start   time.Time
	samples []TraceSample
}

// NewTracePlotter returns a stopped plotter; title labels the rendered output.
func NewTracePlotter(title string) *TracePlotter {
	return &TracePlotter{title: title}
}

// Start clears previous samples and begins recording.
func (tp *TracePlotter) Start() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.enabled = true
	tp.start = time.Time{}
	tp.samples = nil
}

// Stop ends recording. Samples are kept for rendering.
func (tp *TracePlotter) Stop() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (tp *TracePlotter) IsEnabled() bool {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.enabled
}

// Sample records r as observed at t. It is a no-op while stopped.
func (tp *TracePlotter) Sample(t time.Time, r blink.FrameResult) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if !tp.enabled {
		return
	}
	if tp.start.IsZero() {
		tp.start = t
	}
	tp.samples = append(tp.samples, TraceSample{
		Offset:     t.Sub(tp.start),
		Detected:   r.Detected,
		EAR:        r.EAR,
		Threshold:  r.Threshold,
		Baseline:   r.Baseline,
		EyesClosed: r.EyesClosed,
		Blink:      r.Blink != nil,
		Rejected:   r.Rejected != nil,
	})
}

// Samples returns a copy of the recorded samples.
func (tp *TracePlotter) Samples() []TraceSample {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	out := make([]TraceSample, len(tp.samples))
	copy(out, tp.samples)
	return out
}

// WritePNG renders EAR, threshold and baseline against time with blink and
// rejection markers.
func (tp *TracePlotter) WritePNG(path string) error {
	samples := tp.Samples()
	if len(samples) == 0 {
		return ErrNoSamples
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = tp.title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "EAR"

	earPts := make(plotter.XYs, 0, len(samples))
	thrPts := make(plotter.XYs, 0, len(samples))
	basePts := make(plotter.XYs, 0, len(samples))
	var blinkPts, rejectPts plotter.XYs
	for _, s := range samples {
		x := s.Offset.Seconds()
		// Threshold is tracked through dropouts; EAR only exists with a face.
		thrPts = append(thrPts, plotter.XY{X: x, Y: s.Threshold})
		if s.Baseline > 0 {
			basePts = append(basePts, plotter.XY{X: x, Y: s.Baseline})
		}
		if !s.Detected {
			continue
		}
		earPts = append(earPts, plotter.XY{X: x, Y: s.EAR})
		if s.Blink {
			blinkPts = append(blinkPts, plotter.XY{X: x, Y: s.EAR})
		}
		if s.Rejected {
			rejectPts = append(rejectPts, plotter.XY{X: x, Y: s.EAR})
		}
	}

	if err := addLine(p, "EAR (smoothed)", earPts, earColor); err != nil {
		return err
	}
	if err := addLine(p, "threshold", thrPts, thresholdColor); err != nil {
		return err
	}
	if err := addLine(p, "baseline", basePts, baselineColor); err != nil {
		return err
	}
	if err := addMarkers(p, "blink", blinkPts, blinkColor, draw.CircleGlyph{}); err != nil {
		return err
	}
	if err := addMarkers(p, "rejected", rejectPts, rejectColor, draw.CrossGlyph{}); err != nil {
		return err
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save trace plot: %w", err)
	}
	return nil
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s line: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func addMarkers(p *plot.Plot, name string, pts plotter.XYs, c color.Color, shape draw.GlyphDrawer) error {
	if len(pts) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("%s markers: %w", name, err)
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Shape = shape
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc)
	p.Legend.Add(name, sc)
	return nil
}

// WriteHTML renders the same series as an interactive echarts line chart.
// Frames without a face leave gaps in the EAR series.
func (tp *TracePlotter) WriteHTML(w io.Writer) error {
	samples := tp.Samples()
	if len(samples) == 0 {
		return ErrNoSamples
	}

	x := make([]string, len(samples))
	ear := make([]opts.LineData, len(samples))
	thr := make([]opts.LineData, len(samples))
	base := make([]opts.LineData, len(samples))
	blinks := make([]opts.LineData, len(samples))
	for i, s := range samples {
		x[i] = strconv.FormatFloat(s.Offset.Seconds(), 'f', 3, 64)
		thr[i] = opts.LineData{Value: s.Threshold}
		base[i] = gap()
		ear[i] = gap()
		blinks[i] = gap()
		if s.Baseline > 0 {
			base[i] = opts.LineData{Value: s.Baseline}
		}
		if s.Detected {
			ear[i] = opts.LineData{Value: s.EAR}
			if s.Blink {
				blinks[i] = opts.LineData{Value: s.EAR}
			}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: tp.title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: tp.title, Subtitle: fmt.Sprintf("frames=%d", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "EAR", NameLocation: "middle", NameGap: 35}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries("EAR (smoothed)", ear).
		AddSeries("threshold", thr).
		AddSeries("baseline", base).
		AddSeries("blink", blinks)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// gap is the echarts placeholder for a missing value.
func gap() opts.LineData {
	return opts.LineData{Value: "-"}
}
