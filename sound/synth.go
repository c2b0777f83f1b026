package sound

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"

	"github.com/olivierh59500/note-garden-go/garden"
)

// midi maps each note onto one octave starting at middle C
var midi = [garden.NumNotes]int{
	garden.MiddleC: 60,
	garden.D:       62,
	garden.E:       64,
	garden.F:       65,
	garden.G:       67,
	garden.A:       69,
	garden.B:       71,
	garden.C:       72,
}

// Frequency returns the pitch of n in Hz, A4 = 440Hz equal temperament
func Frequency(n garden.Note) float64 {
	if !n.Valid() {
		n = garden.MiddleC
	}
	return 440.0 * math.Pow(2, float64(midi[n]-69)/12.0)
}

// Scale returns every note ordered by pitch
func Scale() []garden.Note {
	notes := make([]garden.Note, 0, garden.NumNotes)
	for n := garden.Note(0); n < garden.NumNotes; n++ {
		notes = append(notes, n)
	}
	for i := 1; i < len(notes); i++ {
		for j := i; j > 0 && midi[notes[j]] < midi[notes[j-1]]; j-- {
			notes[j], notes[j-1] = notes[j-1], notes[j]
		}
	}
	return notes
}

// Synth builds the streamers for notes and the cue
type Synth struct {
	Rate    beep.SampleRate
	NoteLen time.Duration
	CueLen  time.Duration // Per note of the cue scale
	Volume  float64
}

// Tone is a single enveloped sine at the pitch of n
func (s *Synth) Tone(n garden.Note, length time.Duration) beep.Streamer {
	total := s.Rate.N(length)
	sine, err := generators.SineTone(s.Rate, Frequency(n))
	if err != nil {
		return generators.Silence(total)
	}
	attack := s.Rate.N(5 * time.Millisecond)
	return newVolume(&envelope{
		streamer: beep.Take(total, sine),
		attack:   attack,
		total:    total,
	}, s.Volume)
}

// Note is the sound played when the marker crosses a node
func (s *Synth) Note(n garden.Note) beep.Streamer {
	return s.Tone(n, s.NoteLen)
}

// Cue plays the whole scale upwards, for hits on the self node
func (s *Synth) Cue() beep.Streamer {
	var parts []beep.Streamer
	for _, n := range Scale() {
		parts = append(parts, s.Tone(n, s.CueLen))
	}
	return beep.Seq(parts...)
}

// envelope ramps in over attack samples and decays linearly to silence
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	total    int
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1.0
		if e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		} else if e.total > e.attack {
			vol = float64(e.total-e.position) / float64(e.total-e.attack)
		}
		if vol < 0 {
			vol = 0
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// newVolume scales linearly; log2(0) is -Inf so zero is silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// Render drains st into 16-bit little-endian stereo PCM
func Render(st beep.Streamer) []byte {
	var out []byte
	buf := make([][2]float64, 512)
	for {
		n, ok := st.Stream(buf)
		for i := 0; i < n; i++ {
			for c := 0; c < 2; c++ {
				v := buf[i][c]
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
				x := int16(v * math.MaxInt16)
				out = append(out, byte(x), byte(x>>8))
			}
		}
		if !ok {
			return out
		}
	}
}
