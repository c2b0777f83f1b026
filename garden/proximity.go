package garden

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Strength is the connectedness one node contributes to another at distance d.
// It is 1 at d=0, falls linearly to 0 at the threshold and is 0 beyond it.
func Strength(d, threshold float64) float64 {
	if d >= threshold {
		return 0
	}
	return Map(d, 0, threshold, 1, 0)
}

// Accumulate clears every node's connectedness and sums the proximity
// strength of every ordered pair into both of its nodes. O(n²) on purpose,
// the garden holds tens of nodes.
func Accumulate(nodes []*Node, threshold float64) {
	for _, n := range nodes {
		n.Connectedness = 0
	}

	for i, a := range nodes {
		for j, b := range nodes {
			if i == j {
				continue
			}
			s := Strength(r2.Norm(r2.Sub(b.Current, a.Current)), threshold)
			a.Connectedness += s
			b.Connectedness += s
		}
	}
}

// RunningMax is the slowly decaying maximum connectedness used to
// normalise raw connectedness into [0,1]
type RunningMax struct {
	max   float64
	floor float64
	decay float64
}

// NewRunningMax starts at floor, which is also the lowest value decay reaches
func NewRunningMax(floor, decay float64) *RunningMax {
	return &RunningMax{max: floor, floor: floor, decay: decay}
}

// Value returns the current maximum
func (r *RunningMax) Value() float64 {
	return r.max
}

// Decay lowers the maximum by one decay step, not below the floor
func (r *RunningMax) Decay() {
	r.max -= r.decay
	if r.max < r.floor {
		r.max = r.floor
	}
}

// Normalize raises the maximum if raw exceeds it and maps raw into [0,1]
func (r *RunningMax) Normalize(raw float64) float64 {
	if raw > r.max {
		r.max = raw
	}
	v := Map(raw, 0, r.max, 0, 1)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// settle turns the accumulated connectedness of every node into Level and
// Size, then resets the accumulator for the next pass
func settle(nodes []*Node, rm *RunningMax, cfg *Config) {
	rm.Decay()
	for _, n := range nodes {
		n.Level = rm.Normalize(n.Connectedness)

		sizeMax := cfg.SizeMax
		if n.Self {
			sizeMax = cfg.SelfSizeMax
		}
		n.Size = Map(n.Level, 0, 1, cfg.SizeMin, sizeMax)
		if glow := n.Level * cfg.GlowSize; glow > n.Size {
			n.Size = glow
		}

		n.Connectedness = 0
	}
}
