// Package blink turns a per-frame stream of eye landmarks into discrete
// blink events and blink-rate statistics.
//
// Responsibilities: eye aspect ratio (EAR) computation, moving-average
// smoothing, adaptive baselining of the open-eye EAR, hysteresis on the
// open/closed state, and duration validation of each closed→open cycle.
// Key types: Frame, FrameResult, Event, Stats, Params, Detector.
//
// The package performs no I/O. Landmark extraction happens upstream and
// event storage or display happens downstream, both behind plain Go values
// and the Observer interface.
package blink
