package blink

import "time"

// Event is a confirmed blink, emitted once per validated closed→open cycle.
type Event struct {
	SessionID string        `json:"session_id"`
	Sequence  int           `json:"sequence"` // 1-based within the session
	Time      time.Time     `json:"time"`     // when the reopening was confirmed
	Duration  time.Duration `json:"duration_ns"`
	EAR       float64       `json:"ear"`
	Threshold float64       `json:"threshold"`
	Baseline  float64       `json:"baseline"`
}

// RejectReason says why a closure was not counted as a blink.
type RejectReason string

const (
	RejectTooShort RejectReason = "too_short" // faster than MinBlinkDuration
	RejectTooLong  RejectReason = "too_long"  // slower than MaxBlinkDuration, e.g. resting eyes
)

// Rejection describes a closed→open cycle whose duration fell outside the
// valid blink window. It is informational only; no blink is counted.
type Rejection struct {
	Reason    RejectReason  `json:"reason"`
	Time      time.Time     `json:"time"`
	Duration  time.Duration `json:"duration_ns"`
	Threshold float64       `json:"threshold"`
}

// FrameResult is the per-frame output of Detector.ProcessFrame. It doubles
// as the live snapshot a display layer polls.
type FrameResult struct {
	Detected bool      `json:"detected"`
	Time     time.Time `json:"time"`

	EAR      float64 `json:"ear"` // smoothed
	LeftEAR  float64 `json:"left_ear"`
	RightEAR float64 `json:"right_ear"`

	Left  EyeLandmarks `json:"-"`
	Right EyeLandmarks `json:"-"`

	EyesClosed bool    `json:"eyes_closed"`
	Threshold  float64 `json:"threshold"`
	Baseline   float64 `json:"baseline"` // 0 until the first open-eye sample

	Blink    *Event     `json:"blink,omitempty"`
	Rejected *Rejection `json:"rejected,omitempty"`
}

// Stats are the session-scoped aggregates of a Detector.
type Stats struct {
	SessionID              string        `json:"session_id"`
	SessionStart           time.Time     `json:"session_start"`
	TotalBlinks            int           `json:"total_blinks"`
	RejectedClosures       int           `json:"rejected_closures"`
	SessionDuration        time.Duration `json:"session_duration_ns"`
	SessionDurationSeconds float64       `json:"session_duration_seconds"`
	BlinksPerMinute        float64       `json:"blinks_per_minute"`
	LastBlinkTime          time.Time     `json:"last_blink_time"` // zero when no blink yet
}

// Observer receives confirmed blinks synchronously from ProcessFrame.
type Observer interface {
	OnBlink(Event)
}

// RejectionObserver is optionally implemented by an Observer that also
// wants to hear about discarded closures.
type RejectionObserver interface {
	OnRejectedClosure(Rejection)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// OnBlink calls f(e).
func (f ObserverFunc) OnBlink(e Event) { f(e) }
