package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.EARThreshold == nil || *cfg.EARThreshold != 0.25 {
		t.Errorf("Expected EARThreshold 0.25, got %v", cfg.EARThreshold)
	}
	if cfg.MinBlinkDuration == nil || *cfg.MinBlinkDuration != "30ms" {
		t.Errorf("Expected MinBlinkDuration '30ms', got %v", cfg.MinBlinkDuration)
	}
	if cfg.MaxBlinkDuration == nil || *cfg.MaxBlinkDuration != "500ms" {
		t.Errorf("Expected MaxBlinkDuration '500ms', got %v", cfg.MaxBlinkDuration)
	}

	assert.Equal(t, 0.25, cfg.GetEARThreshold())
	assert.Equal(t, 0.08, cfg.GetEARDropMargin())
	assert.Equal(t, 0.06, cfg.GetGlassesEARDropMargin())
	assert.False(t, cfg.GetGlassesMode())
	assert.True(t, cfg.GetAdaptiveThreshold())
	assert.Equal(t, 0.8, cfg.GetBaselineGateFraction())
	assert.Equal(t, 1, cfg.GetConsecutiveFrames())
	assert.Equal(t, 30*time.Millisecond, cfg.GetMinBlinkDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.GetMaxBlinkDuration())
	assert.Equal(t, 3, cfg.GetSmoothingWindow())
	assert.Equal(t, 30, cfg.GetBaselineWindow())
	assert.False(t, cfg.GetResetBaselineOnReset())
	assert.False(t, cfg.GetDebug())
	assert.Equal(t, 5*time.Minute, cfg.GetAlertCooldown())
	assert.NoError(t, cfg.Validate())
}

func TestEmptyTuningConfig_GettersUseDefaults(t *testing.T) {
	empty := EmptyTuningConfig()
	def := DefaultTuningConfig()

	assert.Equal(t, def.GetEARThreshold(), empty.GetEARThreshold())
	assert.Equal(t, def.GetEARDropMargin(), empty.GetEARDropMargin())
	assert.Equal(t, def.GetGlassesEARDropMargin(), empty.GetGlassesEARDropMargin())
	assert.Equal(t, def.GetGlassesMode(), empty.GetGlassesMode())
	assert.Equal(t, def.GetAdaptiveThreshold(), empty.GetAdaptiveThreshold())
	assert.Equal(t, def.GetBaselineGateFraction(), empty.GetBaselineGateFraction())
	assert.Equal(t, def.GetConsecutiveFrames(), empty.GetConsecutiveFrames())
	assert.Equal(t, def.GetMinBlinkDuration(), empty.GetMinBlinkDuration())
	assert.Equal(t, def.GetMaxBlinkDuration(), empty.GetMaxBlinkDuration())
	assert.Equal(t, def.GetSmoothingWindow(), empty.GetSmoothingWindow())
	assert.Equal(t, def.GetBaselineWindow(), empty.GetBaselineWindow())
	assert.Equal(t, def.GetResetBaselineOnReset(), empty.GetResetBaselineOnReset())
	assert.Equal(t, def.GetAlertCooldown(), empty.GetAlertCooldown())
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "ear_threshold": 0.22,
  "consecutive_frames": 2,
  "min_blink_duration": "50ms",
  "max_blink_duration": "400ms",
  "glasses_mode": true,
  "baseline_window": 45,
  "reset_baseline_on_reset": true
}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.22, cfg.GetEARThreshold())
	assert.Equal(t, 2, cfg.GetConsecutiveFrames())
	assert.Equal(t, 50*time.Millisecond, cfg.GetMinBlinkDuration())
	assert.Equal(t, 400*time.Millisecond, cfg.GetMaxBlinkDuration())
	assert.True(t, cfg.GetGlassesMode())
	assert.Equal(t, 45, cfg.GetBaselineWindow())
	assert.True(t, cfg.GetResetBaselineOnReset())

	// Fields not present fall back to defaults
	assert.Equal(t, 0.08, cfg.GetEARDropMargin())
	assert.Equal(t, 3, cfg.GetSmoothingWindow())
	assert.True(t, cfg.GetAdaptiveThreshold())
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "tuning.yaml", `{}`, "must have .json extension"},
		{"bad json", "bad.json", `{"ear_threshold": `, "failed to parse config JSON"},
		{"threshold out of range", "t.json", `{"ear_threshold": 1.5}`, "ear_threshold must be in (0, 1)"},
		{"negative margin", "m.json", `{"ear_drop_margin": -0.1}`, "ear_drop_margin must be non-negative"},
		{"zero frames", "f.json", `{"consecutive_frames": 0}`, "consecutive_frames must be at least 1"},
		{"zero smoothing window", "s.json", `{"smoothing_window": 0}`, "smoothing_window must be at least 1"},
		{"zero baseline window", "b.json", `{"baseline_window": 0}`, "baseline_window must be at least 1"},
		{"gate fraction", "g.json", `{"baseline_gate_fraction": 1.2}`, "baseline_gate_fraction must be between 0 and 1"},
		{"bad duration", "d.json", `{"min_blink_duration": "soon"}`, "invalid min_blink_duration"},
		{"negative duration", "n.json", `{"alert_cooldown": "-1m"}`, "alert_cooldown must be non-negative"},
		{"inverted window", "w.json", `{"min_blink_duration": "600ms"}`, "exceeds max_blink_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadTuningConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadTuningConfig_MissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat config file")
}

func TestLoadTuningConfig_TooLarge(t *testing.T) {
	body := `{"debug": false` + strings.Repeat(" ", 1024*1024) + `}`
	path := writeConfig(t, "big.json", body)

	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file too large")
}

func TestMustLoadDefaultConfig_MatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	def := DefaultTuningConfig()

	assert.Equal(t, def.GetEARThreshold(), cfg.GetEARThreshold())
	assert.Equal(t, def.GetEARDropMargin(), cfg.GetEARDropMargin())
	assert.Equal(t, def.GetGlassesEARDropMargin(), cfg.GetGlassesEARDropMargin())
	assert.Equal(t, def.GetConsecutiveFrames(), cfg.GetConsecutiveFrames())
	assert.Equal(t, def.GetMinBlinkDuration(), cfg.GetMinBlinkDuration())
	assert.Equal(t, def.GetMaxBlinkDuration(), cfg.GetMaxBlinkDuration())
	assert.Equal(t, def.GetSmoothingWindow(), cfg.GetSmoothingWindow())
	assert.Equal(t, def.GetBaselineWindow(), cfg.GetBaselineWindow())
	assert.Equal(t, def.GetBaselineGateFraction(), cfg.GetBaselineGateFraction())
	assert.Equal(t, def.GetAlertCooldown(), cfg.GetAlertCooldown())
}

func TestParseDurationOr_FallsBackOnGarbage(t *testing.T) {
	cfg := &TuningConfig{MaxBlinkDuration: ptrString("not-a-duration")}
	assert.Equal(t, 500*time.Millisecond, cfg.GetMaxBlinkDuration())
}
