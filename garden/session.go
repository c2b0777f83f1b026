package garden

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
)

// Voice plays notes. Calls are fire-and-forget.
type Voice interface {
	PlayNote(n Note)
	PlayCue()
}

// Flasher starts the highlight animation of a node
type Flasher interface {
	Flash(id string)
}

// Publisher forwards the self node position to other devices
type Publisher interface {
	Publish(id string, pos r2.Vec, tag string)
}

// Retracter is implemented by publishers that can withdraw a published node
type Retracter interface {
	Retract(id string)
}

var (
	ErrSelfExists = errors.New("self node already exists")
	ErrClosed     = errors.New("session closed")
)

// Session owns one garden: its nodes, the sweep marker and the running
// connectedness maximum. Every exported method is safe for concurrent use;
// input that arrives from other goroutines is queued and applied at the
// start of the next Frame or Sweep.
type Session struct {
	cfg    Config
	rng    *rand.Rand
	bounds r2.Vec

	voice     Voice
	flasher   Flasher
	publisher Publisher
	tag       string

	mu       sync.Mutex
	nodes    []*Node
	byID     map[string]*Node
	self     *Node
	dragging bool
	sweeper  *Sweeper
	maxConn  *RunningMax
	frames   int
	closed   bool
	outbox   []publication

	inboxMu sync.Mutex
	inbox   []func()
	move    *pendingMove // Last queued drag move, updated in place while it is the inbox tail
}

type pendingMove struct {
	pos r2.Vec
	at  int
}

type publication struct {
	id  string
	pos r2.Vec
	tag string
}

// Option configures a Session
type Option func(*Session)

func WithVoice(v Voice) Option         { return func(s *Session) { s.voice = v } }
func WithFlasher(f Flasher) Option     { return func(s *Session) { s.flasher = f } }
func WithPublisher(p Publisher) Option { return func(s *Session) { s.publisher = p } }

// WithTag sets the tag published with the self node
func WithTag(tag string) Option { return func(s *Session) { s.tag = tag } }

// WithRand replaces the session random source, mostly for tests
func WithRand(rng *rand.Rand) Option { return func(s *Session) { s.rng = rng } }

// NewSession validates cfg and returns an empty, idle session
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		bounds:  r2.Vec{X: cfg.Width, Y: cfg.Height},
		byID:    make(map[string]*Node),
		sweeper: NewSweeper(cfg.Step, cfg.WrapLimit),
		maxConn: NewRunningMax(cfg.ConnectednessFloor, cfg.Decay),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the session runs with
func (s *Session) Config() Config {
	return s.cfg
}

// Start creates the self node and activates the sweep. An empty id gets a
// random one. Returns the self node id.
func (s *Session) Start(id string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	if s.self != nil {
		s.mu.Unlock()
		return "", ErrSelfExists
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, taken := s.byID[id]; taken {
		s.mu.Unlock()
		return "", fmt.Errorf("start session: id %q already in use", id)
	}

	n := newNode(id, s.randomPosition(s.cfg.SelfSizeMax), AssignNote(s.rng))
	n.Self = true
	n.Suppressed = true
	n.Tag = s.tag
	s.insert(n)
	s.self = n
	s.outbox = append(s.outbox, publication{id: n.ID, pos: n.Target, tag: n.Tag})
	s.mu.Unlock()

	s.flush()
	return id, nil
}

// SelfID returns the self node id, or "" before Start
func (s *Session) SelfID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.self == nil {
		return ""
	}
	return s.self.ID
}

// Spawn adds count locally simulated nodes at random positions
func (s *Session) Spawn(count int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		n := newNode(uuid.NewString(), s.randomPosition(s.cfg.SizeMax), AssignNote(s.rng))
		s.insert(n)
		ids = append(ids, n.ID)
	}
	return ids
}

// Remove deletes a non-self node. Reports whether anything was removed.
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

// ApplyRemote queues a position report for a node living on another device.
// Unknown ids create a suppressed node, known ids are teleported.
func (s *Session) ApplyRemote(id string, x, y float64, tag string) {
	s.enqueue(func() {
		if s.self != nil && s.self.ID == id {
			return
		}
		pos := r2.Vec{X: x, Y: y}
		if n, ok := s.byID[id]; ok {
			n.Teleport(pos)
			n.Tag = tag
			return
		}
		n := newNode(id, pos, AssignNote(s.rng))
		n.Tag = tag
		n.Suppressed = true
		s.insert(n)
	})
}

// RemoveRemote queues removal of a node reported gone by another device
func (s *Session) RemoveRemote(id string) {
	s.enqueue(func() {
		s.remove(id)
	})
}

// DragBegin teleports the self node to (x,y) and starts a drag
func (s *Session) DragBegin(x, y float64) {
	s.enqueue(func() {
		if s.self == nil {
			return
		}
		s.dragging = true
		s.moveSelf(r2.Vec{X: x, Y: y})
	})
}

// DragMove teleports the self node while a drag is active. Moves queued
// back to back between ticks collapse into the latest one.
func (s *Session) DragMove(x, y float64) {
	pos := r2.Vec{X: x, Y: y}

	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()
	if m := s.move; m != nil && m.at == len(s.inbox)-1 {
		m.pos = pos
		return
	}
	m := &pendingMove{pos: pos, at: len(s.inbox)}
	s.move = m
	s.inbox = append(s.inbox, func() {
		if s.self == nil || !s.dragging {
			return
		}
		s.moveSelf(m.pos)
	})
}

// DragEnd finishes the current drag
func (s *Session) DragEnd() {
	s.enqueue(func() {
		s.dragging = false
	})
}

// SetBounds resizes the canvas used for relocation and placement.
// Non-positive sizes are ignored.
func (s *Session) SetBounds(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.enqueue(func() {
		s.bounds = r2.Vec{X: width, Y: height}
	})
}

// Frame runs the motion model and the proximity pass for every node
func (s *Session) Frame() {
	s.mu.Lock()
	s.drain()
	if s.closed {
		s.mu.Unlock()
		return
	}

	for _, n := range s.nodes {
		Move(n, s.bounds, s.cfg.Motion, s.rng)
	}
	Accumulate(s.nodes, s.cfg.Threshold)
	settle(s.nodes, s.maxConn, &s.cfg)
	s.frames++
	s.mu.Unlock()

	s.flush()
}

// Sweep advances the marker one step and fires every node under it.
// Idle until Start. The returned triggers have already been dispatched to
// the voice and flasher.
func (s *Session) Sweep() []Trigger {
	s.mu.Lock()
	s.drain()
	if s.closed || s.self == nil {
		s.mu.Unlock()
		s.flush()
		return nil
	}

	if s.sweeper.Advance() {
		for _, n := range s.nodes {
			n.Note = AssignNote(s.rng)
		}
	}

	hits := s.sweeper.Hits(s.nodes)
	triggers := make([]Trigger, 0, len(hits))
	for _, n := range hits {
		triggers = append(triggers, Trigger{ID: n.ID, Note: n.Note, Self: n.Self, Level: n.Level})
	}
	s.mu.Unlock()

	s.flush()
	for _, t := range triggers {
		s.fire(t)
	}
	return triggers
}

// Close stops the session for good and drops every node. A publisher that
// is also a Retracter is told the self node is gone. Stop whatever drives
// Frame and Sweep before calling it.
func (s *Session) Close() {
	s.mu.Lock()
	var selfID string
	if s.self != nil {
		selfID = s.self.ID
	}
	s.closed = true
	s.nodes = nil
	s.byID = make(map[string]*Node)
	s.self = nil
	s.outbox = nil

	s.inboxMu.Lock()
	s.inbox = nil
	s.move = nil
	s.inboxMu.Unlock()
	s.mu.Unlock()

	// Peers forget the self node once the session is gone
	if r, ok := s.publisher.(Retracter); ok && selfID != "" {
		s.safely("retract", func() { r.Retract(selfID) })
	}
}

// NodeView is the read-only state the renderer needs for one node
type NodeView struct {
	ID        string
	Pos       r2.Vec
	Size      float64
	Level     float64
	Note      Note
	Self      bool
	Quantized int
}

// View is a consistent copy of the session state
type View struct {
	Marker           int
	Passes           int
	Frames           int
	MaxConnectedness float64
	Nodes            []NodeView
}

// Snapshot copies the state under the session lock
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Marker:           s.sweeper.Marker(),
		Passes:           s.sweeper.Passes(),
		Frames:           s.frames,
		MaxConnectedness: s.maxConn.Value(),
		Nodes:            make([]NodeView, 0, len(s.nodes)),
	}
	for _, n := range s.nodes {
		v.Nodes = append(v.Nodes, NodeView{
			ID:        n.ID,
			Pos:       n.Current,
			Size:      n.Size,
			Level:     n.Level,
			Note:      n.Note,
			Self:      n.Self,
			Quantized: n.Quantized,
		})
	}
	return v
}

func (s *Session) enqueue(fn func()) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, fn)
	s.inboxMu.Unlock()
}

// drain applies queued input in arrival order. Caller holds s.mu.
func (s *Session) drain() {
	s.inboxMu.Lock()
	pending := s.inbox
	s.inbox = nil
	s.move = nil
	s.inboxMu.Unlock()

	if s.closed {
		return
	}
	for _, fn := range pending {
		fn()
	}
}

// flush hands queued self positions to the publisher outside the lock
func (s *Session) flush() {
	s.mu.Lock()
	out := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	if s.publisher == nil {
		return
	}
	for _, p := range out {
		s.safely("publish", func() { s.publisher.Publish(p.id, p.pos, p.tag) })
	}
}

func (s *Session) fire(t Trigger) {
	if s.voice != nil {
		if t.Self {
			s.safely("cue", s.voice.PlayCue)
		}
		s.safely("note", func() { s.voice.PlayNote(t.Note) })
	}
	if s.flasher != nil {
		s.safely("flash", func() { s.flasher.Flash(t.ID) })
	}
}

// safely runs a collaborator call; a panicking collaborator never takes the tick down
func (s *Session) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("garden: %s failed: %v", what, r)
		}
	}()
	fn()
}

func (s *Session) moveSelf(pos r2.Vec) {
	s.self.Teleport(pos)
	s.outbox = append(s.outbox, publication{id: s.self.ID, pos: pos, tag: s.self.Tag})
}

func (s *Session) insert(n *Node) {
	s.nodes = append(s.nodes, n)
	s.byID[n.ID] = n
}

func (s *Session) remove(id string) bool {
	n, ok := s.byID[id]
	if !ok || n.Self {
		return false
	}
	delete(s.byID, id)
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	return true
}

// randomPosition picks a point inset from the edges by margin when the
// bounds leave room for it
func (s *Session) randomPosition(margin float64) r2.Vec {
	pick := func(extent float64) float64 {
		if extent <= 2*margin {
			return s.rng.Float64() * extent
		}
		return margin + s.rng.Float64()*(extent-2*margin)
	}
	return r2.Vec{X: pick(s.bounds.X), Y: pick(s.bounds.Y)}
}
