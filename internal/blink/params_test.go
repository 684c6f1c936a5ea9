package blink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/blink.report/internal/config"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, 0.25, p.Threshold)
	assert.Equal(t, 1, p.ConsecutiveFrames)
	assert.Equal(t, 30*time.Millisecond, p.MinBlinkDuration)
	assert.Equal(t, 500*time.Millisecond, p.MaxBlinkDuration)
	assert.Equal(t, 0.08, p.DropMargin)
	assert.Equal(t, 0.06, p.GlassesDropMargin)
	assert.False(t, p.GlassesMode)
	assert.True(t, p.Adaptive)
	assert.Equal(t, 3, p.SmoothingWindow)
	assert.Equal(t, 30, p.BaselineWindow)
	assert.Equal(t, 0.8, p.BaselineGateFraction)
	assert.False(t, p.ResetBaselineOnReset)
}

func TestParamsFromTuning_DefaultsFile(t *testing.T) {
	assert.Equal(t, DefaultParams(), ParamsFromTuning(config.MustLoadDefaultConfig()))
}

func TestParamsFromTuning_Overrides(t *testing.T) {
	frames := 2
	glasses := true
	window := "250ms"
	cfg := &config.TuningConfig{
		ConsecutiveFrames: &frames,
		GlassesMode:       &glasses,
		MaxBlinkDuration:  &window,
	}

	p := ParamsFromTuning(cfg)
	assert.Equal(t, 2, p.ConsecutiveFrames)
	assert.True(t, p.GlassesMode)
	assert.Equal(t, 250*time.Millisecond, p.MaxBlinkDuration)
	assert.Equal(t, p.GlassesDropMargin, p.activeMargin())
}

func TestParams_ConfirmFramesFloor(t *testing.T) {
	p := DefaultParams()
	for _, n := range []int{-3, 0, 1} {
		p.ConsecutiveFrames = n
		assert.Equal(t, 1, p.confirmFrames())
	}
	p.ConsecutiveFrames = 4
	assert.Equal(t, 4, p.confirmFrames())
}
