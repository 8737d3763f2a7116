package editor

import "math"

type GestureState int

const (
	GestureUndetermined GestureState = iota
	GestureZooming
	GestureScrolling
)

func (s GestureState) String() string {
	switch s {
	case GestureZooming:
		return "zooming"
	case GestureScrolling:
		return "scrolling"
	}
	return "undetermined"
}

// Gesture classifies a two-finger editor gesture as a pinch zoom or a layer
// scroll. The first threshold crossed wins and the classification holds until
// Reset. If both are crossed by the same sample, zooming wins.
type Gesture struct {
	pinchThreshold  float32
	scrollThreshold float32

	state      GestureState
	started    bool
	startDist  float32
	startMid   float32
	prevDist   float32
	prevMid    float32
	haveSample bool
}

func NewGesture(pinchThreshold, scrollThreshold float32) *Gesture {
	return &Gesture{pinchThreshold: pinchThreshold, scrollThreshold: scrollThreshold}
}

func (g *Gesture) State() GestureState { return g.state }

// Advance feeds one touch-move sample: the squared distance between the two
// touches and their vertical midpoint. It returns the classification after the
// sample and the change in both measures since the previous sample.
func (g *Gesture) Advance(dist2, midY float32) (state GestureState, dDist, dMid float32) {
	if !g.started {
		g.started = true
		g.startDist = dist2
		g.startMid = midY
	}
	if g.haveSample {
		dDist = dist2 - g.prevDist
		dMid = midY - g.prevMid
	}
	g.prevDist, g.prevMid, g.haveSample = dist2, midY, true

	if g.state == GestureUndetermined {
		switch {
		case abs(dist2-g.startDist) > g.pinchThreshold:
			g.state = GestureZooming
			// the crossing sample only classifies
			return g.state, 0, 0
		case abs(midY-g.startMid) > g.scrollThreshold:
			g.state = GestureScrolling
			return g.state, 0, 0
		}
	}
	return g.state, dDist, dMid
}

// Reset is called once all touches are released.
func (g *Gesture) Reset() {
	*g = Gesture{pinchThreshold: g.pinchThreshold, scrollThreshold: g.scrollThreshold}
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
