package garden

// Trigger is one node hit by the sweep marker
type Trigger struct {
	ID    string
	Note  Note
	Self  bool    // Self hits also play the cue
	Level float64 // Normalised connectedness at the last frame
}

// Sweeper moves the marker across the display in fixed steps
type Sweeper struct {
	marker int
	step   int
	wrap   int
	passes int
}

func NewSweeper(step, wrap int) *Sweeper {
	return &Sweeper{step: step, wrap: wrap}
}

// Marker is the current marker position
func (s *Sweeper) Marker() int {
	return s.marker
}

// Passes counts completed sweeps
func (s *Sweeper) Passes() int {
	return s.passes
}

// Advance moves the marker by one step and reports whether it ran past the
// wrap limit, in which case the marker is back at 0
func (s *Sweeper) Advance() bool {
	s.marker += s.step
	if s.marker >= s.wrap {
		s.marker = 0
		s.passes++
		return true
	}
	return false
}

// Hits requantizes every node from its eased position and returns those
// sitting on the marker. The marker never reaches the wrap limit, so every
// bucket at or past it is played at 0 together with the start of the next
// pass.
func (s *Sweeper) Hits(nodes []*Node) []*Node {
	var hit []*Node
	for _, n := range nodes {
		n.Quantized = Quantize(n.Current.X, s.step)
		bucket := n.Quantized
		if bucket >= s.wrap {
			bucket = 0
		}
		if bucket == s.marker {
			hit = append(hit, n)
		}
	}
	return hit
}
