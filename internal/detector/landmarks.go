// Package detector finds hands in camera frames and reports their 21
// landmarks, plus the recognizer's gesture category when one is available.
package detector

import "math"

// Landmark indices in MediaPipe hand landmarker order.
const (
	Wrist = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip

	NumLandmarks
)

// Finger identifies one digit of the hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// fingerBase is the first landmark of each finger; the next three follow it.
var fingerBase = [...]int{Thumb: ThumbCMC, Index: IndexMCP, Middle: MiddleMCP, Ring: RingMCP, Pinky: PinkyMCP}

// Point3D is a landmark position.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Dist returns the Euclidean distance between p and q.
func (p Point3D) Dist(q Point3D) float64 {
	d := p.Sub(q)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// HandLandmarks is one detected hand. Points are normalized to the frame,
// with (0, 0) at the top left and (1, 1) at the bottom right.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`

	// Gesture is the recognizer category, e.g. "Closed_Fist", or empty
	// when the service only reports landmarks.
	Gesture      string  `json:"gesture,omitempty"`
	GestureScore float64 `json:"gesture_score,omitempty"`
}

// Pixel returns landmark i in pixel coordinates for a frame of the given size.
func (h *HandLandmarks) Pixel(i, width, height int) (x, y float64) {
	p := h.Points[i]
	return p.X * float64(width), p.Y * float64(height)
}

// Extended reports whether finger f is straightened: its tip lies farther
// from the wrist than its middle joint.
func (h *HandLandmarks) Extended(f Finger) bool {
	base := fingerBase[f]
	wrist := h.Points[Wrist]
	return wrist.Dist(h.Points[base+3]) > wrist.Dist(h.Points[base+1])
}

// Normalize returns a copy of h translated so the wrist is the origin and
// scaled so the wrist to middle MCP distance is 1. A degenerate hand is
// translated but not scaled.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := *h
	wrist := h.Points[Wrist]
	for i := range out.Points {
		out.Points[i] = h.Points[i].Sub(wrist)
	}

	scale := out.Points[MiddleMCP].Dist(Point3D{})
	if scale < 1e-10 {
		return &out
	}
	for i := range out.Points {
		out.Points[i].X /= scale
		out.Points[i].Y /= scale
		out.Points[i].Z /= scale
	}
	return &out
}
