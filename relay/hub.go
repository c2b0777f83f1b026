// Package relay shares node positions between gardens on different
// devices. A Hub streams this device's self node as server-sent events; a
// Client follows a peer's hub and reports its nodes to the local session.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Event kinds
const (
	KindChanged = "changed"
	KindRemoved = "removed"
)

// Event is one node notification on the wire
type Event struct {
	Kind string  `json:"kind"`
	ID   string  `json:"id"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	Tag  string  `json:"tag,omitempty"`
}

type client struct {
	id     string
	events chan []byte
}

// Hub fans events out to every connected peer
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  map[string]Event // Last known state per local node, replayed to new peers

	register   chan *client
	unregister chan *client
	broadcast  chan Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		latest:     make(map[string]Event),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
	}
}

// Run is the hub event loop; it returns when ctx is done
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			// Deliver what is already queued, a final retraction included
			for drained := false; !drained; {
				select {
				case e := <-h.broadcast:
					h.deliver(e)
				default:
					drained = true
				}
			}
			for c := range h.clients {
				delete(h.clients, c)
				close(c.events)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			for _, e := range h.latest {
				msg, err := encode(e)
				if err != nil {
					continue
				}
				select {
				case c.events <- msg:
				default:
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("relay: peer %s connected (total: %d)", c.id, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("relay: peer %s disconnected (total: %d)", c.id, n)

		case e := <-h.broadcast:
			h.mu.Lock()
			h.deliver(e)
			h.mu.Unlock()
		}
	}
}

// deliver records e and sends it to every peer. Caller holds h.mu.
func (h *Hub) deliver(e Event) {
	msg, err := encode(e)
	if err != nil {
		log.Printf("relay: failed to encode event: %v", err)
		return
	}

	if e.Kind == KindRemoved {
		delete(h.latest, e.ID)
	} else {
		h.latest[e.ID] = e
	}
	for c := range h.clients {
		select {
		case c.events <- msg:
		default:
			log.Printf("relay: peer %s is slow, skipping event", c.id)
		}
	}
}

// Broadcast queues an event for every peer, dropping it if the queue is full
func (h *Hub) Broadcast(e Event) {
	select {
	case h.broadcast <- e:
	default:
		log.Println("relay: broadcast queue full, dropping event")
	}
}

// Publish announces a local node position
func (h *Hub) Publish(id string, pos r2.Vec, tag string) {
	h.Broadcast(Event{Kind: KindChanged, ID: id, X: pos.X, Y: pos.Y, Tag: tag})
}

// Retract tells peers a local node is gone. It implements garden.Retracter.
func (h *Hub) Retract(id string) {
	h.Broadcast(Event{Kind: KindRemoved, ID: id})
}

// PeerCount returns the number of connected peers
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP streams events to one peer until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := &client{
		id:     r.RemoteAddr,
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- c:
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-time.After(time.Second):
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data)), nil
}
