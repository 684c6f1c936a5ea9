// Command blink-replay runs a recorded landmark trace through the blink
// detector and reports blinks, rejected closures and session stats.
//
// Usage:
//
//	blink-replay -trace session.jsonl [-config tuning.json] [-glasses] [-debug] [-plot-dir plots] [-json] [-metrics-out blink.prom]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/blink/diag"
	"github.com/banshee-data/blink.report/internal/blink/metrics"
	"github.com/banshee-data/blink.report/internal/config"
	"github.com/banshee-data/blink.report/internal/insights"
	"github.com/banshee-data/blink.report/internal/monitoring"
	"github.com/banshee-data/blink.report/internal/timeutil"
	"github.com/banshee-data/blink.report/internal/trace"
	"github.com/banshee-data/blink.report/internal/version"
)

// Config holds the command-line options.
type Config struct {
	TraceFile   string
	ConfigFile  string
	Glasses     bool
	Debug       bool
	PlotDir     string
	JSON        bool
	MetricsFile string
	Version     bool
}

// Summary is the result of one replay.
type Summary struct {
	TraceFile      string                  `json:"trace_file"`
	Frames         int                     `json:"frames"`
	NoFaceFrames   int                     `json:"no_face_frames"`
	InvalidFrames  int                     `json:"invalid_frames"`
	Blinks         []blink.Event           `json:"blinks"`
	Rejections     []blink.Rejection       `json:"rejections"`
	Stats          blink.Stats             `json:"stats"`
	Interpretation insights.Interpretation `json:"interpretation"`
	Insight        *insights.Insight       `json:"insight,omitempty"`
	Plots          []string                `json:"plots,omitempty"`
}

// replayEpoch anchors trace offsets on the mock clock.
var replayEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func main() {
	cfg := parseFlags()

	if cfg.Version {
		fmt.Println(version.String("blink-replay"))
		return
	}

	if cfg.TraceFile == "" {
		log.Fatal("trace file is required (-trace)")
	}

	if err := run(cfg, os.Stdout); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.TraceFile, "trace", "", "Path to JSON-lines landmark trace")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to tuning JSON (defaults apply when empty)")
	flag.BoolVar(&cfg.Glasses, "glasses", false, "Use the glasses drop margin")
	flag.BoolVar(&cfg.Debug, "debug", false, "Log every closure")
	flag.StringVar(&cfg.PlotDir, "plot-dir", "", "Write EAR trace PNG and HTML plots to this directory")
	flag.BoolVar(&cfg.JSON, "json", false, "Print the summary as JSON")
	flag.StringVar(&cfg.MetricsFile, "metrics-out", "", "Write final Prometheus metrics to this file")
	flag.BoolVar(&cfg.Version, "version", false, "Print version and exit")

	flag.Parse()

	return cfg
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func run(cfg Config, out io.Writer) error {
	tuning, err := loadTuning(cfg.ConfigFile)
	if err != nil {
		return err
	}

	params := blink.ParamsFromTuning(tuning)
	if cfg.Glasses {
		params.GlassesMode = true
	}
	if cfg.Debug {
		params.Debug = true
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid detector parameters: %w", err)
	}
	monitoring.SetDebug(params.Debug)

	records, err := trace.ReadFile(cfg.TraceFile)
	if err != nil {
		return err
	}

	clock := timeutil.NewMockClock(replayEpoch)
	collector := metrics.New()
	det := blink.NewDetector(params, blink.WithClock(clock), blink.WithObserver(collector))

	var plotter *diag.TracePlotter
	if cfg.PlotDir != "" {
		plotter = diag.NewTracePlotter(filepath.Base(cfg.TraceFile))
		plotter.Start()
	}

	sum := Summary{TraceFile: cfg.TraceFile, Blinks: []blink.Event{}, Rejections: []blink.Rejection{}}
	for i, rec := range records {
		clock.Set(replayEpoch.Add(rec.Offset()))

		frame, err := rec.Frame()
		if err != nil {
			monitoring.Logf("record %d: %v; treating as no face", i+1, err)
			sum.InvalidFrames++
			frame = blink.NoFace()
		}

		res := det.ProcessFrame(frame)
		collector.ObserveFrame(res)
		if plotter != nil {
			plotter.Sample(res.Time, res)
		}

		sum.Frames++
		if !res.Detected {
			sum.NoFaceFrames++
		}
		if res.Blink != nil {
			sum.Blinks = append(sum.Blinks, *res.Blink)
		}
		if res.Rejected != nil {
			sum.Rejections = append(sum.Rejections, *res.Rejected)
		}
	}

	sum.Stats = det.Stats()
	collector.ObserveStats(sum.Stats)
	sum.Interpretation = insights.Interpret(sum.Stats.BlinksPerMinute)
	if in, show := insights.MonitorFromTuning(tuning, clock).Analyze(sum.Stats); show {
		sum.Insight = in
	}

	if plotter != nil {
		plotter.Stop()
		plots, err := writePlots(plotter, cfg.PlotDir)
		if err != nil {
			return err
		}
		sum.Plots = plots
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, collector.Registry()); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if cfg.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(out, sum)
	return nil
}

func writePlots(tp *diag.TracePlotter, dir string) ([]string, error) {
	pngPath := filepath.Join(dir, "ear_trace.png")
	if err := tp.WritePNG(pngPath); err != nil {
		if errors.Is(err, diag.ErrNoSamples) {
			return nil, nil
		}
		return nil, err
	}

	htmlPath := filepath.Join(dir, "ear_trace.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", htmlPath, err)
	}
	if err := tp.WriteHTML(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", htmlPath, err)
	}
	return []string{pngPath, htmlPath}, nil
}

func printSummary(w io.Writer, sum Summary) {
	for _, e := range sum.Blinks {
		fmt.Fprintf(w, "blink #%d at %.3fs duration=%dms ear=%.3f threshold=%.3f\n",
			e.Sequence, e.Time.Sub(replayEpoch).Seconds(), e.Duration.Milliseconds(), e.EAR, e.Threshold)
	}
	for _, r := range sum.Rejections {
		fmt.Fprintf(w, "rejected %s at %.3fs duration=%dms\n",
			r.Reason, r.Time.Sub(replayEpoch).Seconds(), r.Duration.Milliseconds())
	}

	s := sum.Stats
	fmt.Fprintf(w, "\nframes: %d (no face: %d, invalid: %d)\n", sum.Frames, sum.NoFaceFrames, sum.InvalidFrames)
	fmt.Fprintf(w, "blinks: %d\n", s.TotalBlinks)
	fmt.Fprintf(w, "rejected closures: %d\n", s.RejectedClosures)
	fmt.Fprintf(w, "session: %.1fs\n", s.SessionDurationSeconds)
	fmt.Fprintf(w, "rate: %.1f blinks/min (%s: %s)\n", s.BlinksPerMinute, sum.Interpretation.Category, sum.Interpretation.Description)
	if sum.Insight != nil {
		fmt.Fprintf(w, "insight [%s] %s: %s\n", sum.Insight.Level, sum.Insight.Title, sum.Insight.Message)
	}
	for _, p := range sum.Plots {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
}
