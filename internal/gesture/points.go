package gesture

// Auxiliary point keys produced by the classifier.
const (
	PointIndexX       = "index_x"
	PointIndexY       = "index_y"
	PointPointingUp   = "pointing_up"
	PointSingleFinger = "single_finger"
)

// Points holds per-frame auxiliary values reported alongside a symbol,
// such as the index fingertip position in pixels. Booleans are stored as 0 or 1.
// A Points value is only valid for the frame it was produced for.
type Points map[string]float64

// Value returns the value for key and whether it was present.
func (p Points) Value(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p[key]
	return v, ok
}

// Bool reports whether key is present and non-zero.
func (p Points) Bool(key string) bool {
	v, ok := p.Value(key)
	return ok && v != 0
}

// SetBool stores a boolean value as 0 or 1.
func (p Points) SetBool(key string, b bool) {
	if b {
		p[key] = 1
		return
	}
	p[key] = 0
}
