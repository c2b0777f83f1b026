package garden

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Node is a single garden entity
type Node struct {
	ID      string
	Target  r2.Vec // Nominal position, moved by relocation, drag or remote updates
	Current r2.Vec // Eased position, drawn and sonified
	Note    Note
	Tag     string

	Connectedness float64 // Proximity accumulator, zero outside a pass
	Level         float64 // Connectedness normalised to [0,1] by the last pass
	Size          float64 // Render size from the last pass

	Quantized int // Current.X rounded to the sweep step

	Suppressed bool // Motion model leaves this node alone
	Self       bool // Driven by local input
}

func newNode(id string, pos r2.Vec, note Note) *Node {
	return &Node{
		ID:      id,
		Target:  pos,
		Current: pos,
		Note:    note,
	}
}

// Teleport moves both target and eased position, skipping the easing
func (n *Node) Teleport(pos r2.Vec) {
	n.Target = pos
	n.Current = pos
}

// Map linearly maps value from the range [x1,y1] onto [x2,y2]
func Map(value, x1, y1, x2, y2 float64) float64 {
	a := (value - x1) / (y1 - x1)
	return x2 + a*(y2-x2)
}

// Quantize rounds x to the nearest multiple of step. Halves round away from
// zero (math.Round), so 155 with step 10 lands on 160 and -155 on -160.
func Quantize(x float64, step int) int {
	if step <= 0 {
		return int(math.Round(x))
	}
	return int(math.Round(x/float64(step))) * step
}
