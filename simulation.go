package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/olivierh59500/note-garden-go/config"
	"github.com/olivierh59500/note-garden-go/garden"
	"github.com/olivierh59500/note-garden-go/sound"
)

// Simulation is the ebiten front end of a garden session
type Simulation struct {
	Width, Height int
	Session       *garden.Session
	Clock         *garden.Clock
	Flashes       *flashBoard
	Player        *sound.Player // nil when audio is off
	Theme         int
	Paused        bool
	ShowHUD       bool
	PeerCount     func() int

	backgrounds map[int]*ebiten.Image
	seed        int64
	touch       ebiten.TouchID
	touching    bool
}

// NewSimulation wires the window to a started session
func NewSimulation(cfg *config.Config, s *garden.Session, flashes *flashBoard, player *sound.Player) *Simulation {
	return &Simulation{
		Width:       int(cfg.Garden.Width),
		Height:      int(cfg.Garden.Height),
		Session:     s,
		Clock:       garden.NewClock(s),
		Flashes:     flashes,
		Player:      player,
		Theme:       themeIndex(cfg.Window.Theme),
		backgrounds: make(map[int]*ebiten.Image),
		seed:        cfg.Garden.Seed,
	}
}

// Update is called each tick by Ebitengine
func (s *Simulation) Update() error {
	s.handleInput()

	if s.Paused {
		return nil
	}

	dt := time.Second / time.Duration(ebiten.TPS())
	s.Clock.Advance(dt)
	s.Flashes.advance(dt)
	return nil
}

// Draw is called each frame by Ebitengine
func (s *Simulation) Draw(screen *ebiten.Image) {
	theme := themes[s.Theme]
	screen.DrawImage(s.background(), nil)

	view := s.Session.Snapshot()

	if theme.ShowMarker {
		x := float32(view.Marker)
		vector.StrokeLine(screen, x, 0, x, float32(s.Height), 2, theme.Marker, true)
	}

	// Self is drawn last so it stays on top
	nodes := view.Nodes
	sort.SliceStable(nodes, func(i, j int) bool { return !nodes[i].Self && nodes[j].Self })

	for _, n := range nodes {
		base := theme.NoteFill
		if n.Self {
			base = selfFill
		}
		col := s.Flashes.tint(n.ID, base)
		vector.DrawFilledCircle(screen, float32(n.Pos.X), float32(n.Pos.Y), float32(n.Size/2), col, true)
	}

	if s.ShowHUD {
		peers := 0
		if s.PeerCount != nil {
			peers = s.PeerCount()
		}
		muted := s.Player == nil || s.Player.Muted()
		msg := fmt.Sprintf("nodes %d  pass %d  peers %d  theme %s  muted %v\nmax %.3f  tps %.0f",
			len(view.Nodes), view.Passes, peers, theme.Name, muted, view.MaxConnectedness, ebiten.ActualTPS())
		ebitenutil.DebugPrint(screen, msg)
	}
}

// Layout returns the screen size
func (s *Simulation) Layout(outsideWidth, outsideHeight int) (int, int) {
	return s.Width, s.Height
}

// handleInput processes keyboard, mouse and touch input
func (s *Simulation) handleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		s.Paused = !s.Paused
		if s.Paused {
			s.touching = false
			s.Session.DragEnd()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		s.Theme = (s.Theme + 1) % len(themes)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) && s.Player != nil {
		s.Player.SetMuted(!s.Player.Muted())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		s.ShowHUD = !s.ShowHUD
	}

	// Nothing drains the session while paused
	if s.Paused {
		return
	}

	// Mouse drag moves the self node
	mx, my := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		s.Session.DragBegin(float64(mx), float64(my))
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		s.Session.DragEnd()
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		s.Session.DragMove(float64(mx), float64(my))
	}

	// Primary touch does the same
	if !s.touching {
		if ids := inpututil.AppendJustPressedTouchIDs(nil); len(ids) > 0 {
			s.touch = ids[0]
			s.touching = true
			tx, ty := ebiten.TouchPosition(s.touch)
			s.Session.DragBegin(float64(tx), float64(ty))
		}
		return
	}
	if inpututil.IsTouchJustReleased(s.touch) {
		s.touching = false
		s.Session.DragEnd()
		return
	}
	tx, ty := ebiten.TouchPosition(s.touch)
	s.Session.DragMove(float64(tx), float64(ty))
}

func (s *Simulation) background() *ebiten.Image {
	if img, ok := s.backgrounds[s.Theme]; ok {
		return img
	}
	img := backgroundImage(themes[s.Theme], s.Width, s.Height, s.seed)
	s.backgrounds[s.Theme] = img
	return img
}

// speakerOutput plays PCM through the ebiten audio context
type speakerOutput struct {
	ctx *audio.Context
}

func (o speakerOutput) Play(pcm []byte) error {
	o.ctx.NewPlayerFromBytes(pcm).Play()
	return nil
}
