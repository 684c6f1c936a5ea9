package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for blink detection tuning.
// Every field is optional; the Get* accessors fall back to the built-in
// defaults so that partial JSON files are safe.
type TuningConfig struct {
	// Threshold params
	EARThreshold         *float64 `json:"ear_threshold,omitempty"`
	EARDropMargin        *float64 `json:"ear_drop_margin,omitempty"`
	GlassesEARDropMargin *float64 `json:"glasses_ear_drop_margin,omitempty"`
	GlassesMode          *bool    `json:"glasses_mode,omitempty"`
	AdaptiveThreshold    *bool    `json:"adaptive_threshold,omitempty"`
	BaselineGateFraction *float64 `json:"baseline_gate_fraction,omitempty"`

	// Hysteresis and duration validation
	ConsecutiveFrames *int    `json:"consecutive_frames,omitempty"`
	MinBlinkDuration  *string `json:"min_blink_duration,omitempty"` // duration string like "30ms"
	MaxBlinkDuration  *string `json:"max_blink_duration,omitempty"` // duration string like "500ms"

	// History windows
	SmoothingWindow      *int  `json:"smoothing_window,omitempty"`
	BaselineWindow       *int  `json:"baseline_window,omitempty"`
	ResetBaselineOnReset *bool `json:"reset_baseline_on_reset,omitempty"`

	Debug *bool `json:"debug,omitempty"`

	// Insight params
	AlertCooldown *string `json:"alert_cooldown,omitempty"` // duration string like "5m"
}

// Built-in defaults, mirrored by config/tuning.defaults.json.
const (
	defaultEARThreshold         = 0.25
	defaultEARDropMargin        = 0.08
	defaultGlassesEARDropMargin = 0.06
	defaultBaselineGateFraction = 0.8
	defaultConsecutiveFrames    = 1
	defaultMinBlinkDuration     = 30 * time.Millisecond
	defaultMaxBlinkDuration     = 500 * time.Millisecond
	defaultSmoothingWindow      = 3
	defaultBaselineWindow       = 30
	defaultAlertCooldown        = 5 * time.Minute
)

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		EARThreshold:         ptrFloat64(defaultEARThreshold),
		EARDropMargin:        ptrFloat64(defaultEARDropMargin),
		GlassesEARDropMargin: ptrFloat64(defaultGlassesEARDropMargin),
		GlassesMode:          ptrBool(false),
		AdaptiveThreshold:    ptrBool(true),
		BaselineGateFraction: ptrFloat64(defaultBaselineGateFraction),
		ConsecutiveFrames:    ptrInt(defaultConsecutiveFrames),
		MinBlinkDuration:     ptrString(defaultMinBlinkDuration.String()),
		MaxBlinkDuration:     ptrString(defaultMaxBlinkDuration.String()),
		SmoothingWindow:      ptrInt(defaultSmoothingWindow),
		BaselineWindow:       ptrInt(defaultBaselineWindow),
		ResetBaselineOnReset: ptrBool(false),
		Debug:                ptrBool(false),
		AlertCooldown:        ptrString(defaultAlertCooldown.String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/blink/diag/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.EARThreshold != nil && (*c.EARThreshold <= 0 || *c.EARThreshold >= 1) {
		return fmt.Errorf("ear_threshold must be in (0, 1), got %f", *c.EARThreshold)
	}
	if c.EARDropMargin != nil && *c.EARDropMargin < 0 {
		return fmt.Errorf("ear_drop_margin must be non-negative, got %f", *c.EARDropMargin)
	}
	if c.GlassesEARDropMargin != nil && *c.GlassesEARDropMargin < 0 {
		return fmt.Errorf("glasses_ear_drop_margin must be non-negative, got %f", *c.GlassesEARDropMargin)
	}
	if c.BaselineGateFraction != nil && (*c.BaselineGateFraction < 0 || *c.BaselineGateFraction > 1) {
		return fmt.Errorf("baseline_gate_fraction must be between 0 and 1, got %f", *c.BaselineGateFraction)
	}
	if c.ConsecutiveFrames != nil && *c.ConsecutiveFrames < 1 {
		return fmt.Errorf("consecutive_frames must be at least 1, got %d", *c.ConsecutiveFrames)
	}
	if c.SmoothingWindow != nil && *c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be at least 1, got %d", *c.SmoothingWindow)
	}
	if c.BaselineWindow != nil && *c.BaselineWindow < 1 {
		return fmt.Errorf("baseline_window must be at least 1, got %d", *c.BaselineWindow)
	}

	for name, v := range map[string]*string{
		"min_blink_duration": c.MinBlinkDuration,
		"max_blink_duration": c.MaxBlinkDuration,
		"alert_cooldown":     c.AlertCooldown,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	if lo, hi := c.GetMinBlinkDuration(), c.GetMaxBlinkDuration(); lo > hi {
		return fmt.Errorf("min_blink_duration (%s) exceeds max_blink_duration (%s)", lo, hi)
	}

	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetEARThreshold returns the fixed EAR threshold or the default.
func (c *TuningConfig) GetEARThreshold() float64 {
	if c.EARThreshold == nil {
		return defaultEARThreshold
	}
	return *c.EARThreshold
}

// GetEARDropMargin returns the standard baseline drop margin or the default.
func (c *TuningConfig) GetEARDropMargin() float64 {
	if c.EARDropMargin == nil {
		return defaultEARDropMargin
	}
	return *c.EARDropMargin
}

// GetGlassesEARDropMargin returns the glasses-mode drop margin or the default.
func (c *TuningConfig) GetGlassesEARDropMargin() float64 {
	if c.GlassesEARDropMargin == nil {
		return defaultGlassesEARDropMargin
	}
	return *c.GlassesEARDropMargin
}

// GetGlassesMode returns the glasses_mode value or the default.
func (c *TuningConfig) GetGlassesMode() bool {
	if c.GlassesMode == nil {
		return false
	}
	return *c.GlassesMode
}

// GetAdaptiveThreshold returns the adaptive_threshold value or the default.
func (c *TuningConfig) GetAdaptiveThreshold() bool {
	if c.AdaptiveThreshold == nil {
		return true
	}
	return *c.AdaptiveThreshold
}

// GetBaselineGateFraction returns the baseline_gate_fraction value or the default.
func (c *TuningConfig) GetBaselineGateFraction() float64 {
	if c.BaselineGateFraction == nil {
		return defaultBaselineGateFraction
	}
	return *c.BaselineGateFraction
}

// GetConsecutiveFrames returns the confirmation frame count or the default.
func (c *TuningConfig) GetConsecutiveFrames() int {
	if c.ConsecutiveFrames == nil {
		return defaultConsecutiveFrames
	}
	return *c.ConsecutiveFrames
}

// GetMinBlinkDuration parses and returns MinBlinkDuration as a time.Duration.
func (c *TuningConfig) GetMinBlinkDuration() time.Duration {
	return parseDurationOr(c.MinBlinkDuration, defaultMinBlinkDuration)
}

// GetMaxBlinkDuration parses and returns MaxBlinkDuration as a time.Duration.
func (c *TuningConfig) GetMaxBlinkDuration() time.Duration {
	return parseDurationOr(c.MaxBlinkDuration, defaultMaxBlinkDuration)
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return defaultSmoothingWindow
	}
	return *c.SmoothingWindow
}

// GetBaselineWindow returns the baseline_window value or the default.
func (c *TuningConfig) GetBaselineWindow() int {
	if c.BaselineWindow == nil {
		return defaultBaselineWindow
	}
	return *c.BaselineWindow
}

// GetResetBaselineOnReset returns the reset_baseline_on_reset value or the default.
func (c *TuningConfig) GetResetBaselineOnReset() bool {
	if c.ResetBaselineOnReset == nil {
		return false
	}
	return *c.ResetBaselineOnReset
}

// GetDebug returns the debug value or the default.
func (c *TuningConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}

// GetAlertCooldown parses and returns AlertCooldown as a time.Duration.
func (c *TuningConfig) GetAlertCooldown() time.Duration {
	return parseDurationOr(c.AlertCooldown, defaultAlertCooldown)
}
