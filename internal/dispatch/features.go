package dispatch

// Feature is the single mutually-exclusive mode currently engaged. At most
// one feature is active; entering a different feature requires a reset
// first. FeatureNone is both the initial state and the reset target.
type Feature int

const (
	FeatureNone Feature = iota
	FeatureRecording
	FeatureDrawing
	FeatureHandDraw
	FeaturePointer
)

func (f Feature) String() string {
	switch f {
	case FeatureNone:
		return "none"
	case FeatureRecording:
		return "recording"
	case FeatureDrawing:
		return "drawing"
	case FeatureHandDraw:
		return "hand_draw"
	case FeaturePointer:
		return "pointer"
	default:
		return "unknown"
	}
}
