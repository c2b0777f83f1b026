package garden

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Move runs one motion tick for n inside bounds.
// Suppressed nodes are skipped entirely.
func Move(n *Node, bounds r2.Vec, m Motion, rng *rand.Rand) {
	if n.Suppressed {
		return
	}

	// Rare jump of the target somewhere else on screen
	if rng.Float64() < m.RelocateChance {
		n.Target = r2.Vec{X: rng.Float64() * bounds.X, Y: rng.Float64() * bounds.Y}
	}

	// Ease a fixed fraction of the remaining distance; never overshoots
	d := r2.Sub(n.Target, n.Current)
	if math.Abs(d.X) > m.Epsilon || math.Abs(d.Y) > m.Epsilon {
		n.Current = r2.Add(n.Current, r2.Scale(m.Easing, d))
	}
}
