package blink

import (
	"errors"
	"fmt"
	"math"
)

// Eye landmark indices within EyeLandmarks. {UpperLid1, LowerLid2} and
// {UpperLid2, LowerLid1} are the vertical pairs; OuterCorner and
// InnerCorner span the eye horizontally.
const (
	OuterCorner = 0
	UpperLid1   = 1
	UpperLid2   = 2
	InnerCorner = 3
	LowerLid1   = 4
	LowerLid2   = 5

	NumEyePoints = 6
)

// MinCornerDistance is the smallest horizontal corner distance accepted by
// EAR. Anything shorter is treated as degenerate geometry.
const MinCornerDistance = 1e-9

var (
	// ErrDegenerateEye is returned when an eye's geometry cannot produce a
	// meaningful aspect ratio (collapsed corners or non-finite coordinates).
	ErrDegenerateEye = errors.New("degenerate eye geometry")

	// ErrTooFewPoints is returned when an eye has fewer than NumEyePoints points.
	ErrTooFewPoints = errors.New("too few eye landmarks")
)

// Point3D is a landmark in normalized image space; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// EyeLandmarks holds the six ordered contour points of one eye.
type EyeLandmarks [NumEyePoints]Point3D

// Scale returns a copy with every coordinate multiplied by f.
func (e EyeLandmarks) Scale(f float64) EyeLandmarks {
	var out EyeLandmarks
	for i, p := range e {
		out[i] = Point3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
	}
	return out
}

// EAR computes the eye aspect ratio:
//
//	(|p1-p5| + |p2-p4|) / (2 |p0-p3|)
//
// The ratio is invariant to uniform scaling of the eye.
func EAR(eye EyeLandmarks) (float64, error) {
	for _, p := range eye {
		if !p.finite() {
			return 0, ErrDegenerateEye
		}
	}

	h := distance3D(eye[OuterCorner], eye[InnerCorner])
	if h < MinCornerDistance {
		return 0, ErrDegenerateEye
	}

	v1 := distance3D(eye[UpperLid1], eye[LowerLid2])
	v2 := distance3D(eye[UpperLid2], eye[LowerLid1])
	return (v1 + v2) / (2.0 * h), nil
}

// Frame is one frame's worth of input: either no face, or both eyes.
type Frame struct {
	Face  bool
	Left  EyeLandmarks
	Right EyeLandmarks
}

// NoFace returns the sentinel frame for "no face detected".
func NoFace() Frame {
	return Frame{}
}

// NewFrame returns a detected frame for the given eyes.
func NewFrame(left, right EyeLandmarks) Frame {
	return Frame{Face: true, Left: left, Right: right}
}

// FrameFromPoints builds a detected frame from landmark slices as produced
// by a face mesh provider. Points beyond the first six of each eye are
// ignored.
func FrameFromPoints(left, right []Point3D) (Frame, error) {
	var f Frame
	if len(left) < NumEyePoints {
		return f, fmt.Errorf("left eye has %d points: %w", len(left), ErrTooFewPoints)
	}
	if len(right) < NumEyePoints {
		return f, fmt.Errorf("right eye has %d points: %w", len(right), ErrTooFewPoints)
	}
	f.Face = true
	copy(f.Left[:], left[:NumEyePoints])
	copy(f.Right[:], right[:NumEyePoints])
	return f, nil
}
