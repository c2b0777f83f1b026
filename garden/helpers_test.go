package garden

import (
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

type recorder struct {
	mu        sync.Mutex
	notes     []Note
	cues      int
	flashes   []string
	published []publication
	retracted []string
}

func (r *recorder) PlayNote(n Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) PlayCue() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues++
}

func (r *recorder) Flash(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flashes = append(r.flashes, id)
}

func (r *recorder) Publish(id string, pos r2.Vec, tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, publication{id: id, pos: pos, tag: tag})
}

func (r *recorder) Retract(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retracted = append(r.retracted, id)
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 42
	s, err := NewSession(cfg, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

// startAt starts s and parks the self node at (x,y)
func startAt(t *testing.T, s *Session, x, y float64) string {
	t.Helper()
	id, err := s.Start("")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.DragBegin(x, y)
	s.DragEnd()
	return id
}

func hitIDs(triggers []Trigger) map[string]bool {
	ids := make(map[string]bool, len(triggers))
	for _, tr := range triggers {
		ids[tr.ID] = true
	}
	return ids
}

func findNode(v View, id string) (NodeView, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}
