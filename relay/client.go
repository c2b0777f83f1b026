package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Sink receives nodes reported by a peer. *garden.Session satisfies it.
type Sink interface {
	ApplyRemote(id string, x, y float64, tag string)
	RemoveRemote(id string)
}

// ErrStreamClosed is returned by Follow when the peer ends the stream
var ErrStreamClosed = errors.New("peer closed stream")

// Client follows one peer hub
type Client struct {
	URL     string
	Sink    Sink
	Backoff time.Duration
	HTTP    *http.Client
}

func NewClient(url string, sink Sink, backoff time.Duration) *Client {
	return &Client{
		URL:     url,
		Sink:    sink,
		Backoff: backoff,
		HTTP:    &http.Client{},
	}
}

// Run follows the peer until ctx is done, reconnecting after failures.
// Failures are logged here and never returned.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.Follow(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("relay: peer %s: %v, retrying in %v", c.URL, err, c.Backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.Backoff):
		}
	}
}

// Follow reads one event stream to its end. Every node learned from the
// stream is removed from the sink when the stream ends.
func (c *Client) Follow(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connect: unexpected status %s", resp.Status)
	}

	seen := make(map[string]struct{})
	defer func() {
		for id := range seen {
			c.Sink.RemoveRemote(id)
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			log.Printf("relay: peer %s sent bad event: %v", c.URL, err)
			continue
		}
		c.apply(e, seen)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrStreamClosed
}

func (c *Client) apply(e Event, seen map[string]struct{}) {
	if e.ID == "" {
		return
	}
	switch e.Kind {
	case KindChanged:
		seen[e.ID] = struct{}{}
		c.Sink.ApplyRemote(e.ID, e.X, e.Y, e.Tag)
	case KindRemoved:
		delete(seen, e.ID)
		c.Sink.RemoveRemote(e.ID)
	}
}
