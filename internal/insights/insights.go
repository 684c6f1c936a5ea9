// Package insights interprets a session's blink rate against typical
// screen-work ranges and raises rate-limited reminders.
package insights

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/config"
	"github.com/banshee-data/blink.report/internal/monitoring"
	"github.com/banshee-data/blink.report/internal/timeutil"
)

// Blink rate bands, in blinks per minute.
const (
	VeryLowRate  = 8.0
	LowRate      = 12.0
	HighRate     = 20.0
	VeryHighRate = 30.0
)

// Session length reminders.
const (
	BreakInterval     = 60 * time.Minute
	MaxContinuousWork = 120 * time.Minute
)

// DefaultCooldown is the minimum gap between two insights of the same kind.
const DefaultCooldown = 5 * time.Minute

// Level is the severity of an Insight.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelAlert
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelAlert:
		return "alert"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Kind identifies an insight for cooldown purposes.
type Kind string

const (
	KindSeverelyLow   Kind = "severely_low"
	KindLow           Kind = "low"
	KindVeryHigh      Kind = "very_high"
	KindElevated      Kind = "elevated"
	KindExtendedWork  Kind = "extended_work"
	KindBreakReminder Kind = "break_reminder"
)

// Insight is a single recommendation derived from session stats.
type Insight struct {
	Kind            Kind     `json:"kind"`
	Level           Level    `json:"level"`
	Title           string   `json:"title"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
}

// Monitor classifies session stats and rate-limits repeated insights.
type Monitor struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	cooldown  time.Duration
	lastShown map[Kind]time.Time
}

// NewMonitor returns a Monitor. A nil clock uses the wall clock; a
// non-positive cooldown uses DefaultCooldown.
func NewMonitor(clock timeutil.Clock, cooldown time.Duration) *Monitor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Monitor{
		clock:     clock,
		cooldown:  cooldown,
		lastShown: make(map[Kind]time.Time),
	}
}

// MonitorFromTuning builds a Monitor using the tuning alert cooldown.
func MonitorFromTuning(cfg *config.TuningConfig, clock timeutil.Clock) *Monitor {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return NewMonitor(clock, cfg.GetAlertCooldown())
}

// Classify returns the most pressing insight for s, or nil when the rate is
// healthy and the session is short. Rate problems take precedence over
// session length.
func Classify(s blink.Stats) *Insight {
	bpm := s.BlinksPerMinute
	minutes := s.SessionDuration.Minutes()

	switch {
	case bpm > 0 && bpm < VeryLowRate:
		return &Insight{
			Kind:    KindSeverelyLow,
			Level:   LevelCritical,
			Title:   "Very low blink rate",
			Message: fmt.Sprintf("%.1f blinks/min over %.0f minutes, well under the usual 12-20.", bpm, minutes),
			Recommendations: []string{
				"Look away from the screen and blink fully a few times",
				"Follow the 20-20-20 rule",
				"Consider lubricating eye drops if your eyes feel dry",
			},
		}
	case bpm > 0 && bpm < LowRate:
		return &Insight{
			Kind:    KindLow,
			Level:   LevelWarning,
			Title:   "Low blink rate",
			Message: fmt.Sprintf("%.1f blinks/min, a little under the usual 12-20.", bpm),
			Recommendations: []string{
				"Blink consciously for the next few minutes",
				"Check screen brightness against room lighting",
			},
		}
	case bpm > VeryHighRate:
		return &Insight{
			Kind:    KindVeryHigh,
			Level:   LevelAlert,
			Title:   "Very high blink rate",
			Message: fmt.Sprintf("%.1f blinks/min; frequent blinking can indicate irritation or fatigue.", bpm),
			Recommendations: []string{
				"Take a short break away from the screen",
				"Check for irritants such as dry air or dust",
			},
		}
	case bpm > HighRate:
		return &Insight{
			Kind:            KindElevated,
			Level:           LevelInfo,
			Title:           "Elevated blink rate",
			Message:         fmt.Sprintf("%.1f blinks/min, slightly above the usual range.", bpm),
			Recommendations: []string{"Monitor for patterns over the session"},
		}
	case s.SessionDuration >= MaxContinuousWork:
		return &Insight{
			Kind:    KindExtendedWork,
			Level:   LevelAlert,
			Title:   "Extended screen session",
			Message: fmt.Sprintf("You have been working for %.0f minutes without a reset.", minutes),
			Recommendations: []string{
				"Take a 15 minute break",
				"Focus on distant objects to relax the eyes",
			},
		}
	case s.SessionDuration >= BreakInterval:
		return &Insight{
			Kind:    KindBreakReminder,
			Level:   LevelInfo,
			Title:   "Break reminder",
			Message: fmt.Sprintf("You have been working for %.0f minutes. Time for a break.", minutes),
			Recommendations: []string{
				"Take a 5-10 minute break",
				"Stand up and stretch",
			},
		}
	}
	return nil
}

// Analyze classifies s and reports whether the resulting insight should be
// shown now. An insight is suppressed while another of the same kind was
// shown within the cooldown.
func (m *Monitor) Analyze(s blink.Stats) (*Insight, bool) {
	in := Classify(s)
	if in == nil {
		return nil, false
	}
	show := m.ShouldShow(in.Kind)
	if show {
		monitoring.Logf("insight %s (%s): %s", in.Kind, in.Level, in.Message)
	}
	return in, show
}

// ShouldShow records and allows kind if its cooldown has elapsed.
func (m *Monitor) ShouldShow(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if last, ok := m.lastShown[kind]; ok && now.Sub(last) <= m.cooldown {
		return false
	}
	m.lastShown[kind] = now
	return true
}
