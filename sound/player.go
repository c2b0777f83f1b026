// Package sound turns garden triggers into audio. Notes are synthesised
// once with beep and handed to an Output as raw PCM on every trigger.
package sound

import (
	"log"
	"sync/atomic"

	"github.com/olivierh59500/note-garden-go/garden"
)

// Output plays one buffer of 16-bit little-endian stereo PCM
type Output interface {
	Play(pcm []byte) error
}

// Player implements garden.Voice on top of an Output
type Player struct {
	out   Output
	notes [garden.NumNotes][]byte
	cue   []byte
	muted atomic.Bool
}

// NewPlayer pre-renders every note and the cue
func NewPlayer(out Output, synth *Synth) *Player {
	p := &Player{out: out}
	for n := garden.Note(0); n < garden.NumNotes; n++ {
		p.notes[n] = Render(synth.Note(n))
	}
	p.cue = Render(synth.Cue())
	return p
}

// PlayNote plays n; out of range notes play middle C
func (p *Player) PlayNote(n garden.Note) {
	if !n.Valid() {
		n = garden.MiddleC
	}
	p.play(p.notes[n])
}

// PlayCue plays the scale
func (p *Player) PlayCue() {
	p.play(p.cue)
}

// SetMuted silences playback without touching the sweep
func (p *Player) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Muted reports the mute state
func (p *Player) Muted() bool {
	return p.muted.Load()
}

func (p *Player) play(pcm []byte) {
	if p.muted.Load() || p.out == nil {
		return
	}
	if err := p.out.Play(pcm); err != nil {
		log.Printf("sound: play failed: %v", err)
	}
}
