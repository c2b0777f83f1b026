package garden

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewSessionRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Step = 0
	if _, err := NewSession(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestStartOnlyOnce(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithPublisher(rec))

	id, err := s.Start("me")
	if err != nil || id != "me" {
		t.Fatalf("Start = %q, %v", id, err)
	}
	if _, err := s.Start("again"); !errors.Is(err, ErrSelfExists) {
		t.Errorf("second Start err = %v, want ErrSelfExists", err)
	}
	if s.SelfID() != "me" {
		t.Errorf("SelfID = %q", s.SelfID())
	}
	if len(rec.published) != 1 || rec.published[0].id != "me" {
		t.Errorf("published on start: %+v", rec.published)
	}
}

func TestSpawnPlacesNodesInsideMargins(t *testing.T) {
	s := newTestSession(t)
	ids := s.Spawn(50)
	if len(ids) != 50 {
		t.Fatalf("spawned %d nodes", len(ids))
	}
	cfg := s.Config()
	for _, n := range s.Snapshot().Nodes {
		if n.Self {
			t.Fatalf("spawned node %s is self", n.ID)
		}
		if n.Pos.X < cfg.SizeMax || n.Pos.X > cfg.Width-cfg.SizeMax ||
			n.Pos.Y < cfg.SizeMax || n.Pos.Y > cfg.Height-cfg.SizeMax {
			t.Errorf("node %s at %v outside margins", n.ID, n.Pos)
		}
	}
	if len(uniq(ids)) != len(ids) {
		t.Error("duplicate node ids")
	}
}

func TestApplyRemoteIdempotent(t *testing.T) {
	s := newTestSession(t)
	s.ApplyRemote("r", 120, 340, "blue")
	s.ApplyRemote("r", 120, 340, "blue")
	s.Frame()
	first := s.Snapshot()

	s.ApplyRemote("r", 120, 340, "blue")
	s.Frame()
	second := s.Snapshot()

	if len(second.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(second.Nodes))
	}
	a, _ := findNode(first, "r")
	b, _ := findNode(second, "r")
	if a.Pos != b.Pos || a.Pos != (r2.Vec{X: 120, Y: 340}) {
		t.Errorf("positions %v then %v", a.Pos, b.Pos)
	}
}

func TestApplyRemoteTeleportsKnownNode(t *testing.T) {
	s := newTestSession(t)
	s.ApplyRemote("r", 10, 10, "")
	s.Frame()
	s.ApplyRemote("r", 400, 600, "")
	s.Frame()

	n, ok := findNode(s.Snapshot(), "r")
	if !ok {
		t.Fatal("remote node missing")
	}
	if n.Pos != (r2.Vec{X: 400, Y: 600}) {
		t.Errorf("remote update eased instead of teleporting: %v", n.Pos)
	}
	if n.Self {
		t.Error("remote node marked self")
	}
}

func TestApplyRemoteIgnoresSelfID(t *testing.T) {
	s := newTestSession(t)
	self := startAt(t, s, 100, 100)
	s.ApplyRemote(self, 300, 300, "")
	s.Frame()
	v := s.Snapshot()

	if len(v.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(v.Nodes))
	}
	if v.Nodes[0].Pos != (r2.Vec{X: 100, Y: 100}) {
		t.Errorf("self moved by remote report to %v", v.Nodes[0].Pos)
	}
}

func TestRemoveKeepsSelf(t *testing.T) {
	s := newTestSession(t)
	self, _ := s.Start("")
	ids := s.Spawn(1)

	if s.Remove(self) {
		t.Error("self node removed")
	}
	if !s.Remove(ids[0]) {
		t.Error("spawned node not removed")
	}
	if s.Remove(ids[0]) {
		t.Error("second removal reported success")
	}
	if len(s.Snapshot().Nodes) != 1 {
		t.Errorf("nodes left: %+v", s.Snapshot().Nodes)
	}
}

func TestDragTeleportsAndPublishes(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithPublisher(rec))
	self, _ := s.Start("")

	s.DragMove(1, 1) // no drag in progress
	s.Frame()
	s.DragBegin(50, 60)
	s.DragMove(70, 80)
	s.Frame()

	n, _ := findNode(s.Snapshot(), self)
	if n.Pos != (r2.Vec{X: 70, Y: 80}) {
		t.Errorf("self at %v, want (70,80)", n.Pos)
	}

	s.DragEnd()
	s.DragMove(5, 5)
	s.Frame()
	n, _ = findNode(s.Snapshot(), self)
	if n.Pos != (r2.Vec{X: 70, Y: 80}) {
		t.Errorf("moved after drag end: %v", n.Pos)
	}

	// start, begin, move
	if len(rec.published) != 3 {
		t.Fatalf("published %d positions: %+v", len(rec.published), rec.published)
	}
	if got := rec.published[2].pos; got != (r2.Vec{X: 70, Y: 80}) {
		t.Errorf("last published %v", got)
	}
}

func TestFrameLeavesConnectednessZero(t *testing.T) {
	s := newTestSession(t)
	s.Start("")
	s.Spawn(15)

	for i := 0; i < 50; i++ {
		s.Frame()
		s.mu.Lock()
		for _, n := range s.nodes {
			if n.Connectedness != 0 {
				t.Fatalf("frame %d: node %s connectedness %v", i, n.ID, n.Connectedness)
			}
			if n.Level < 0 || n.Level > 1 {
				t.Fatalf("frame %d: level %v out of range", i, n.Level)
			}
		}
		s.mu.Unlock()
	}
}

type panicky struct{}

func (panicky) PlayNote(Note) { panic("no sample") }
func (panicky) PlayCue()      { panic("no sample") }

func TestSweepSurvivesVoiceFailure(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithVoice(panicky{}), WithFlasher(rec))
	startAt(t, s, 100, 100)

	for i := 0; i < 10; i++ {
		s.Sweep()
	}
	if len(rec.flashes) != 1 {
		t.Errorf("flashes = %d, want 1 despite voice failures", len(rec.flashes))
	}
}

func TestCloseStopsEverything(t *testing.T) {
	s := newTestSession(t)
	s.Start("")
	s.Spawn(3)
	s.Close()

	s.ApplyRemote("r", 1, 1, "")
	s.Frame()
	if got := s.Sweep(); got != nil {
		t.Errorf("sweep after close fired %v", got)
	}
	if n := len(s.Snapshot().Nodes); n != 0 {
		t.Errorf("%d nodes after close", n)
	}
	if _, err := s.Start(""); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after close err = %v", err)
	}
}

func TestConcurrentInput(t *testing.T) {
	s := newTestSession(t)
	startAt(t, s, 200, 200)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("w%d-%d", w, i%10)
				s.ApplyRemote(id, float64(i), float64(w*100), "")
				if i%7 == 0 {
					s.RemoveRemote(id)
				}
			}
		}(w)
	}
	for i := 0; i < 200; i++ {
		s.Frame()
		s.Sweep()
	}
	wg.Wait()
	s.Frame()
	v := s.Snapshot()

	if len(v.Nodes) > 41 {
		t.Errorf("%d nodes, at most 41 ids exist", len(v.Nodes))
	}
	if len(uniq(ids(v))) != len(v.Nodes) {
		t.Error("duplicate ids after concurrent updates")
	}
}

func ids(v View) []string {
	out := make([]string, len(v.Nodes))
	for i, n := range v.Nodes {
		out[i] = n.ID
	}
	return out
}

func uniq(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

func TestSetBoundsAppliesOnNextTick(t *testing.T) {
	s := newTestSession(t)
	s.SetBounds(100, 50)
	s.SetBounds(0, 10)

	if got := s.Spawn(1); len(got) != 1 {
		t.Fatalf("Spawn(1) = %v", got)
	}
	s.Frame()

	for _, id := range s.Spawn(20) {
		n, ok := findNode(s.Snapshot(), id)
		if !ok {
			t.Fatalf("node %s missing", id)
		}
		if n.Pos.X > 100 || n.Pos.Y > 50 {
			t.Errorf("node %s at %v, outside 100x50", id, n.Pos)
		}
	}
}

func TestDragMovesCollapseBetweenTicks(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithPublisher(rec))
	self, _ := s.Start("")

	s.DragBegin(10, 10)
	for i := 1; i <= 1000; i++ {
		s.DragMove(float64(i%400), 20)
	}
	s.inboxMu.Lock()
	queued := len(s.inbox)
	s.inboxMu.Unlock()
	if queued != 2 {
		t.Fatalf("inbox holds %d entries after 1000 moves, want 2", queued)
	}

	s.Frame()
	n, _ := findNode(s.Snapshot(), self)
	if n.Pos != (r2.Vec{X: 200, Y: 20}) {
		t.Errorf("self at %v, want the latest move (200,20)", n.Pos)
	}
	// start, begin, one collapsed move
	if len(rec.published) != 3 {
		t.Errorf("published %d positions, want 3", len(rec.published))
	}

	// A move queued after DragEnd stays behind it and is ignored
	s.DragMove(30, 30)
	s.DragEnd()
	s.DragMove(40, 40)
	s.Frame()
	n, _ = findNode(s.Snapshot(), self)
	if n.Pos != (r2.Vec{X: 30, Y: 30}) {
		t.Errorf("self at %v, want (30,30)", n.Pos)
	}
}

func TestStartPublishesTag(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithPublisher(rec), WithTag("green"))
	startAt(t, s, 50, 60)
	s.Frame()

	// start and drag begin
	if len(rec.published) != 2 {
		t.Fatalf("published %d positions, want 2", len(rec.published))
	}
	for _, p := range rec.published {
		if p.tag != "green" {
			t.Errorf("published tag %q, want green", p.tag)
		}
	}
}

func TestCloseRetractsSelf(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithPublisher(rec))
	self, _ := s.Start("")
	s.Spawn(3)

	s.Close()
	s.Close()

	if len(rec.retracted) != 1 || rec.retracted[0] != self {
		t.Errorf("retracted %v, want [%s]", rec.retracted, self)
	}
}
