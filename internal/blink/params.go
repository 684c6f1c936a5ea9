package blink

import (
	"fmt"
	"time"

	"github.com/banshee-data/blink.report/internal/config"
)

// Params holds the runtime configuration of a Detector. Configuration is
// never cleared by Reset.
type Params struct {
	Threshold         float64       // Fixed EAR threshold when no adaptive threshold applies (default: 0.25)
	ConsecutiveFrames int           // Frames required to confirm open→closed and closed→open (default: 1)
	MinBlinkDuration  time.Duration // Shortest closure counted as a blink, inclusive (default: 30ms)
	MaxBlinkDuration  time.Duration // Longest closure counted as a blink, inclusive (default: 500ms)
	DropMargin        float64       // Baseline minus this gives the adaptive threshold (default: 0.08)
	GlassesDropMargin float64       // Margin used instead of DropMargin in glasses mode (default: 0.06)
	GlassesMode       bool
	Adaptive          bool // Derive the threshold from the open-eye baseline (default: true)

	SmoothingWindow      int     // Raw EAR samples averaged per frame (default: 3)
	BaselineWindow       int     // Open-eye samples averaged into the baseline (default: 30)
	BaselineGateFraction float64 // Baseline only learns when EAR > fraction × threshold (default: 0.8)
	ResetBaselineOnReset bool    // Drop the baseline on Reset as well (default: false)

	Debug bool // Log every confirmed and rejected closure
}

// DefaultParams returns the built-in detector defaults.
func DefaultParams() Params {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		Threshold:            cfg.GetEARThreshold(),
		ConsecutiveFrames:    cfg.GetConsecutiveFrames(),
		MinBlinkDuration:     cfg.GetMinBlinkDuration(),
		MaxBlinkDuration:     cfg.GetMaxBlinkDuration(),
		DropMargin:           cfg.GetEARDropMargin(),
		GlassesDropMargin:    cfg.GetGlassesEARDropMargin(),
		GlassesMode:          cfg.GetGlassesMode(),
		Adaptive:             cfg.GetAdaptiveThreshold(),
		SmoothingWindow:      cfg.GetSmoothingWindow(),
		BaselineWindow:       cfg.GetBaselineWindow(),
		BaselineGateFraction: cfg.GetBaselineGateFraction(),
		ResetBaselineOnReset: cfg.GetResetBaselineOnReset(),
		Debug:                cfg.GetDebug(),
	}
}

// Validate checks that the parameters are usable. The Detector itself
// accepts any values; Validate is for hosts that want to reject bad
// configuration before it reaches the detector.
func (p Params) Validate() error {
	if p.ConsecutiveFrames < 1 {
		return fmt.Errorf("ConsecutiveFrames must be at least 1, got %d", p.ConsecutiveFrames)
	}
	if p.SmoothingWindow < 1 {
		return fmt.Errorf("SmoothingWindow must be at least 1, got %d", p.SmoothingWindow)
	}
	if p.BaselineWindow < 1 {
		return fmt.Errorf("BaselineWindow must be at least 1, got %d", p.BaselineWindow)
	}
	if p.MinBlinkDuration < 0 || p.MaxBlinkDuration < p.MinBlinkDuration {
		return fmt.Errorf("invalid blink duration range [%v, %v]", p.MinBlinkDuration, p.MaxBlinkDuration)
	}
	if p.DropMargin < 0 || p.GlassesDropMargin < 0 {
		return fmt.Errorf("drop margins must be non-negative, got %f and %f", p.DropMargin, p.GlassesDropMargin)
	}
	if p.Threshold <= 0 {
		return fmt.Errorf("Threshold must be positive, got %f", p.Threshold)
	}
	return nil
}

// activeMargin returns the drop margin selected by the glasses flag.
func (p Params) activeMargin() float64 {
	if p.GlassesMode {
		return p.GlassesDropMargin
	}
	return p.DropMargin
}

// confirmFrames is ConsecutiveFrames with values below 1 treated as 1.
func (p Params) confirmFrames() int {
	if p.ConsecutiveFrames < 1 {
		return 1
	}
	return p.ConsecutiveFrames
}
