// Package classify adapts hand detection to the symbol stream the dispatcher
// consumes: one symbol, a confidence and a few auxiliary points per frame.
package classify

import (
	"fmt"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Result is the classification of one frame. A frame without a hand has
// HasHand false and SymbolNone; that is not an error.
type Result struct {
	HasHand    bool
	Symbol     gesture.Symbol
	Confidence float64
	Points     gesture.Points
	Geometry   action.Geometry
}

// Classifier classifies camera frames.
type Classifier interface {
	Classify(frame *gocv.Mat) (Result, error)
	Close() error
}

// LandmarkClassifier classifies frames from detected hand landmarks. The
// detector's recognizer category wins; when it reports none the template
// matcher is consulted. It is safe to change templates while classifying.
type LandmarkClassifier struct {
	detector detector.Detector

	mu      sync.Mutex
	matcher *gesture.StaticMatcher
}

// NewLandmarkClassifier returns a classifier over d. A nil matcher starts empty.
func NewLandmarkClassifier(d detector.Detector, m *gesture.StaticMatcher) *LandmarkClassifier {
	if m == nil {
		m = gesture.NewStaticMatcher()
	}
	return &LandmarkClassifier{detector: d, matcher: m}
}

// Classify detects the first hand in frame and classifies it.
func (c *LandmarkClassifier) Classify(frame *gocv.Mat) (Result, error) {
	var geom action.Geometry
	if frame != nil && !frame.Empty() {
		geom = action.Geometry{Width: frame.Cols(), Height: frame.Rows()}
	}

	hands, err := c.detector.Detect(frame)
	if err != nil {
		return Result{Symbol: gesture.SymbolNone, Geometry: geom}, fmt.Errorf("detect: %w", err)
	}
	if len(hands) == 0 {
		return Result{Symbol: gesture.SymbolNone, Geometry: geom}, nil
	}

	return c.ClassifyHand(&hands[0], geom), nil
}

// ClassifyHand classifies a single detected hand in a frame of size geom.
func (c *LandmarkClassifier) ClassifyHand(hand *detector.HandLandmarks, geom action.Geometry) Result {
	res := Result{
		HasHand:  true,
		Symbol:   gesture.FromCategory(hand.Gesture),
		Points:   AuxPoints(hand, geom),
		Geometry: geom,
	}
	if !res.Symbol.IsNone() {
		res.Confidence = hand.GestureScore
		return res
	}

	c.mu.Lock()
	sym, score := c.matcher.Classify(hand)
	c.mu.Unlock()

	res.Symbol = sym
	res.Confidence = score
	return res
}

// AddTemplate registers a fallback template.
func (c *LandmarkClassifier) AddTemplate(t *gesture.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matcher.AddTemplate(t)
}

// RemoveTemplate removes a fallback template by ID.
func (c *LandmarkClassifier) RemoveTemplate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matcher.RemoveTemplate(id)
}

// Templates returns the number of fallback templates.
func (c *LandmarkClassifier) Templates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matcher.Len()
}

// Close closes the detector.
func (c *LandmarkClassifier) Close() error {
	return c.detector.Close()
}

// AuxPoints computes the auxiliary points for hand: the index fingertip in
// pixels, whether the index points up, and whether it is the only extended
// finger. Pixel values are truncated to whole pixels.
func AuxPoints(hand *detector.HandLandmarks, geom action.Geometry) gesture.Points {
	tip := hand.Points[detector.IndexTip]
	base := hand.Points[detector.IndexMCP]

	p := gesture.Points{}
	if !geom.IsZero() {
		x, y := hand.Pixel(detector.IndexTip, geom.Width, geom.Height)
		p[gesture.PointIndexX] = math.Trunc(x)
		p[gesture.PointIndexY] = math.Trunc(y)
	}
	p.SetBool(gesture.PointPointingUp, tip.Y < base.Y)
	p.SetBool(gesture.PointSingleFinger, hand.Extended(detector.Index) &&
		!hand.Extended(detector.Middle) && !hand.Extended(detector.Ring))
	return p
}
