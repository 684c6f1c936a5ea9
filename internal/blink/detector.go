package blink

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/blink.report/internal/monitoring"
	"github.com/banshee-data/blink.report/internal/timeutil"
)

// Detector converts a stream of eye landmarks into blink events. One
// Detector serves one tracking session at a time; Reset starts a new one.
//
// All methods are safe for concurrent use, so a capture goroutine may call
// ProcessFrame while a UI goroutine reads Stats or changes settings.
// Observers run on the goroutine that called ProcessFrame, after the
// detector's lock has been released.
type Detector struct {
	mu    sync.Mutex
	clock timeutil.Clock

	params Params

	earHistory      *ring
	baselineHistory *ring
	baseline        float64

	closedFrames int
	openFrames   int
	eyesClosed   bool
	closedSince  time.Time

	sessionID    string
	sessionStart time.Time
	totalBlinks  int
	rejected     int
	lastBlink    time.Time

	last      FrameResult
	observers []Observer
}

// Option configures a Detector at construction.
type Option func(*Detector)

// WithClock sets the time source. Defaults to timeutil.RealClock.
func WithClock(c timeutil.Clock) Option {
	return func(d *Detector) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(d *Detector) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// NewDetector creates a Detector and starts its first session.
func NewDetector(p Params, opts ...Option) *Detector {
	d := &Detector{
		clock:  timeutil.RealClock{},
		params: p,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.earHistory = newRing(p.SmoothingWindow)
	d.baselineHistory = newRing(p.BaselineWindow)
	d.startSession()
	return d
}

// AddObserver registers o for blink notifications.
func (d *Detector) AddObserver(o Observer) {
	if o == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// ProcessFrame consumes one frame and returns the detector's view of it.
// FrameResult.Blink is set on exactly the frame that confirms a blink, and
// registered observers are notified before ProcessFrame returns.
func (d *Detector) ProcessFrame(f Frame) FrameResult {
	d.mu.Lock()
	res := d.process(f)
	var observers []Observer
	if res.Blink != nil || res.Rejected != nil {
		observers = append(observers, d.observers...)
	}
	d.mu.Unlock()

	for _, o := range observers {
		if res.Blink != nil {
			o.OnBlink(*res.Blink)
		}
		if res.Rejected != nil {
			if ro, ok := o.(RejectionObserver); ok {
				ro.OnRejectedClosure(*res.Rejected)
			}
		}
	}
	return res
}

func (d *Detector) process(f Frame) FrameResult {
	now := d.clock.Now()

	if !f.Face {
		return d.dropout(now)
	}

	leftEAR, errL := EAR(f.Left)
	rightEAR, errR := EAR(f.Right)
	if errL != nil || errR != nil {
		monitoring.Debugf("blink: skipping frame with unusable eye geometry (left: %v, right: %v)", errL, errR)
		return d.dropout(now)
	}

	d.earHistory.Push((leftEAR + rightEAR) / 2.0)
	ear := d.earHistory.Mean()

	// The baseline learns only from frames that look open under the
	// threshold in force before this frame.
	if !d.eyesClosed && ear > d.params.BaselineGateFraction*d.threshold() {
		d.baselineHistory.Push(ear)
		d.baseline = d.baselineHistory.Mean()
	}

	threshold := d.threshold()
	res := FrameResult{
		Detected:  true,
		Time:      now,
		EAR:       ear,
		LeftEAR:   leftEAR,
		RightEAR:  rightEAR,
		Left:      f.Left,
		Right:     f.Right,
		Threshold: threshold,
		Baseline:  d.currentBaseline(),
	}

	confirm := d.params.confirmFrames()
	if ear < threshold {
		d.closedFrames++
		d.openFrames = 0
		if d.closedFrames >= confirm && !d.eyesClosed {
			d.eyesClosed = true
			d.closedSince = now
		}
	} else {
		d.openFrames++
		d.closedFrames = 0
		if d.eyesClosed && d.openFrames >= confirm {
			d.completeClosure(now, &res)
		}
	}

	res.EyesClosed = d.eyesClosed
	d.last = res
	return res
}

// completeClosure validates the duration of the closure that just ended and
// unlatches the closed state whether or not it counted as a blink.
func (d *Detector) completeClosure(now time.Time, res *FrameResult) {
	duration := now.Sub(d.closedSince)

	switch {
	case duration < d.params.MinBlinkDuration:
		d.reject(RejectTooShort, now, duration, res)
	case duration > d.params.MaxBlinkDuration:
		d.reject(RejectTooLong, now, duration, res)
	default:
		d.totalBlinks++
		d.lastBlink = now
		res.Blink = &Event{
			SessionID: d.sessionID,
			Sequence:  d.totalBlinks,
			Time:      now,
			Duration:  duration,
			EAR:       res.EAR,
			Threshold: res.Threshold,
			Baseline:  res.Baseline,
		}
		if d.params.Debug {
			monitoring.Logf("Blink detected: duration=%dms ear=%.3f threshold=%.3f baseline=%.3f",
				duration.Milliseconds(), res.EAR, res.Threshold, res.Baseline)
		}
	}

	d.eyesClosed = false
	d.closedSince = time.Time{}
}

func (d *Detector) reject(reason RejectReason, now time.Time, duration time.Duration, res *FrameResult) {
	d.rejected++
	res.Rejected = &Rejection{
		Reason:    reason,
		Time:      now,
		Duration:  duration,
		Threshold: res.Threshold,
	}
	if d.params.Debug {
		monitoring.Logf("Closure discarded (%s): duration=%dms", reason, duration.Milliseconds())
	}
}

// dropout handles a frame without usable eyes. Regime counters restart but
// the open/closed latch is kept so a brief detection gap cannot fabricate a
// transition.
func (d *Detector) dropout(now time.Time) FrameResult {
	d.closedFrames = 0
	d.openFrames = 0
	res := FrameResult{
		Detected:   false,
		Time:       now,
		EyesClosed: d.eyesClosed,
		Threshold:  d.threshold(),
		Baseline:   d.currentBaseline(),
	}
	d.last = res
	return res
}

// threshold returns the active decision threshold.
func (d *Detector) threshold() float64 {
	if d.params.Adaptive && d.baselineHistory.Len() > 0 {
		return d.baseline - d.params.activeMargin()
	}
	return d.params.Threshold
}

func (d *Detector) currentBaseline() float64 {
	if d.baselineHistory.Len() == 0 {
		return 0
	}
	return d.baseline
}

func (d *Detector) startSession() {
	d.sessionID = fmt.Sprintf("ses_%s", uuid.NewString())
	d.sessionStart = d.clock.Now()
}

// Reset starts a new tracking session. Blink totals, regime counters, the
// closed latch and the smoothing history are cleared. The baseline survives
// unless Params.ResetBaselineOnReset is set; configuration always survives.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalBlinks = 0
	d.rejected = 0
	d.closedFrames = 0
	d.openFrames = 0
	d.eyesClosed = false
	d.closedSince = time.Time{}
	d.lastBlink = time.Time{}
	d.earHistory.Clear()
	if d.params.ResetBaselineOnReset {
		d.baselineHistory.Clear()
		d.baseline = 0
	}
	d.last = FrameResult{}
	d.startSession()
}

// Stats returns the current session statistics.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := d.clock.Since(d.sessionStart)
	secs := elapsed.Seconds()
	var bpm float64
	if secs > 0 {
		bpm = float64(d.totalBlinks) / (secs / 60)
	}
	return Stats{
		SessionID:              d.sessionID,
		SessionStart:           d.sessionStart,
		TotalBlinks:            d.totalBlinks,
		RejectedClosures:       d.rejected,
		SessionDuration:        elapsed,
		SessionDurationSeconds: secs,
		BlinksPerMinute:        bpm,
		LastBlinkTime:          d.lastBlink,
	}
}

// Snapshot returns the result of the most recently processed frame.
func (d *Detector) Snapshot() FrameResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Params returns a copy of the current configuration.
func (d *Detector) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// Baseline returns the current open-eye baseline and whether one exists.
func (d *Detector) Baseline() (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentBaseline(), d.baselineHistory.Len() > 0
}

// Threshold returns the threshold the next frame will be compared against.
func (d *Detector) Threshold() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold()
}

// EyesClosed reports the open/closed latch.
func (d *Detector) EyesClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eyesClosed
}

// historyLens reports the smoothing and baseline buffer lengths.
func (d *Detector) historyLens() (smoothing, baseline int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.earHistory.Len(), d.baselineHistory.Len()
}

// SetParams replaces the whole configuration, resizing history windows
// without discarding the newest samples.
func (d *Detector) SetParams(p Params) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = p
	d.earHistory.Resize(p.SmoothingWindow)
	d.resizeBaseline(p.BaselineWindow)
}

// SetThreshold sets the fixed EAR threshold.
func (d *Detector) SetThreshold(threshold float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.Threshold = threshold
	monitoring.Logf("EAR threshold set to %.3f", threshold)
}

// SetConsecutiveFrames sets the confirmation frame count. Values below 1
// are stored as given and behave as 1.
func (d *Detector) SetConsecutiveFrames(frames int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.ConsecutiveFrames = frames
	monitoring.Logf("Consecutive frames set to %d", frames)
}

// SetGlassesMode selects the glasses drop margin.
func (d *Detector) SetGlassesMode(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.GlassesMode = enabled
	monitoring.Logf("Glasses mode: %s", enabledString(enabled))
}

// SetAdaptiveThreshold toggles baseline-derived thresholds.
func (d *Detector) SetAdaptiveThreshold(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.Adaptive = enabled
	monitoring.Logf("Adaptive threshold: %s", enabledString(enabled))
}

// SetDropMargin sets the standard baseline drop margin.
func (d *Detector) SetDropMargin(margin float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.DropMargin = margin
}

// SetGlassesDropMargin sets the glasses-mode baseline drop margin.
func (d *Detector) SetGlassesDropMargin(margin float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.GlassesDropMargin = margin
}

// SetBlinkDurationRange sets the inclusive valid blink duration window.
func (d *Detector) SetBlinkDurationRange(shortest, longest time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.MinBlinkDuration = shortest
	d.params.MaxBlinkDuration = longest
}

// SetSmoothingWindow resizes the smoothing history, keeping the newest samples.
func (d *Detector) SetSmoothingWindow(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.SmoothingWindow = n
	d.earHistory.Resize(n)
}

// SetBaselineWindow resizes the baseline history, keeping the newest samples.
func (d *Detector) SetBaselineWindow(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.BaselineWindow = n
	d.resizeBaseline(n)
}

func (d *Detector) resizeBaseline(n int) {
	d.baselineHistory.Resize(n)
	d.baseline = d.baselineHistory.Mean()
}

// SetDebug toggles per-closure logging.
func (d *Detector) SetDebug(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params.Debug = enabled
	monitoring.Logf("Debug mode: %s", enabledString(enabled))
}

func enabledString(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
