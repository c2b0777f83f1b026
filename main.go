package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gopxl/beep"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"golang.org/x/sync/errgroup"

	"github.com/olivierh59500/note-garden-go/config"
	"github.com/olivierh59500/note-garden-go/garden"
	"github.com/olivierh59500/note-garden-go/relay"
	"github.com/olivierh59500/note-garden-go/sound"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	headless := flag.Bool("headless", false, "run without a window, logging triggers")
	listen := flag.String("listen", "", "address to serve this garden's self node on, e.g. :7420")
	peers := flag.String("peers", "", "comma-separated peer event URLs, e.g. http://10.0.0.2:7420/events")
	nodes := flag.Int("nodes", -1, "number of generated nodes (overrides config)")
	seed := flag.Int64("seed", 0, "random seed (overrides config)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, path, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if path != "" {
		log.Printf("Config loaded: %s", path)
	}

	if *listen != "" {
		cfg.Relay.Listen = *listen
	}
	if *peers != "" {
		cfg.Relay.Peers = strings.Split(*peers, ",")
	}
	if *nodes >= 0 {
		cfg.Garden.Nodes = *nodes
	}
	if *seed != 0 {
		cfg.Garden.Seed = *seed
	}

	if err := run(cfg, *headless); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, headless bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Garden.Seed == 0 {
		cfg.Garden.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Garden.Seed))

	var hub *relay.Hub
	opts := []garden.Option{garden.WithTag(cfg.Relay.Tag)}
	if cfg.Relay.Listen != "" {
		hub = relay.NewHub()
		opts = append(opts, garden.WithPublisher(hub))
	}

	flashes := newFlashBoard(rng)
	var player *sound.Player
	if headless {
		opts = append(opts, garden.WithVoice(logVoice{}))
	} else {
		opts = append(opts, garden.WithFlasher(flashes))
		if cfg.Audio.Enabled {
			player = newPlayer(cfg.Audio)
			opts = append(opts, garden.WithVoice(player))
		}
	}

	session, err := garden.NewSession(cfg.Garden, opts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	selfID, err := session.Start("")
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	session.Spawn(cfg.Garden.Nodes)
	log.Printf("Garden started: self %s, %d generated nodes", selfID, cfg.Garden.Nodes)

	// The network side outlives the garden so the self node is retracted
	// from peers before the hub goes down
	netCtx, netCancel := context.WithCancel(context.Background())
	defer netCancel()
	g, gctx := errgroup.WithContext(netCtx)
	go func() {
		<-gctx.Done()
		stop()
	}()

	if hub != nil {
		g.Go(func() error { return hub.Run(gctx) })
		g.Go(func() error { return serve(gctx, cfg.Relay.Listen, hub) })
	}
	for _, peer := range cfg.Relay.Peers {
		peer = strings.TrimSpace(peer)
		if peer == "" {
			continue
		}
		client := relay.NewClient(peer, session, cfg.Relay.Backoff)
		g.Go(func() error { return client.Run(gctx) })
	}

	var runErr error
	if headless {
		runErr = garden.NewLoop(session).Run(ctx)
	} else {
		sim := NewSimulation(cfg, session, flashes, player)
		if hub != nil {
			sim.PeerCount = hub.PeerCount
		}

		ebiten.SetWindowSize(sim.Width*cfg.Window.Scale, sim.Height*cfg.Window.Scale)
		ebiten.SetWindowTitle(cfg.Window.Title)
		ebiten.SetTPS(cfg.Window.TPS)

		runErr = ebiten.RunGame(sim)
	}

	session.Close()
	netCancel()
	if err := g.Wait(); err != nil {
		if runErr == nil {
			return err
		}
		log.Printf("Shutdown error: %v", err)
	}
	return runErr
}

// serve exposes the hub until ctx is done
func serve(ctx context.Context, addr string, hub *relay.Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/events", hub)

	srv := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		log.Printf("Relay listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Relay shutdown error: %v", err)
	}
	return nil
}

func newPlayer(cfg config.AudioConfig) *sound.Player {
	synth := &sound.Synth{
		Rate:    beep.SampleRate(cfg.SampleRate),
		NoteLen: cfg.NoteDuration,
		CueLen:  cfg.CueNote,
		Volume:  cfg.Volume,
	}
	return sound.NewPlayer(speakerOutput{ctx: audio.NewContext(cfg.SampleRate)}, synth)
}

// logVoice stands in for audio in headless mode
type logVoice struct{}

func (logVoice) PlayNote(n garden.Note) { log.Printf("note %v", n) }
func (logVoice) PlayCue()               { log.Printf("cue") }
