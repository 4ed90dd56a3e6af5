package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"landgrab.io/internal/game"
	"landgrab.io/internal/game/tuning"
	"landgrab.io/internal/mapdata"
	"landgrab.io/internal/persistence/eventlog"
	"landgrab.io/internal/persistence/indexdb"
	"landgrab.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		mapPath    = flag.String("map", "", "path to map.yaml (default: built-in US states map)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite event index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	var regions *mapdata.Map
	if mp := strings.TrimSpace(*mapPath); mp != "" {
		regions, err = mapdata.Load(mp)
		if err != nil {
			logger.Fatalf("load map: %v", err)
		}
	} else {
		regions = mapdata.Default()
	}
	logger.Printf("map ready: %d regions", regions.Len())

	_ = os.MkdirAll(*dataDir, 0o755)

	events := eventlog.NewWriter(filepath.Join(*dataDir, "events"))
	defer events.Close()

	var sink game.EventSink = events
	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		sink = multiSink{a: events, b: idx}
	}

	reg := game.NewRegistry(regions, nil)
	hub := game.NewHub(reg, game.NewResolver(reg, tune), tune, logger, sink)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := hub.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("hub stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := hub.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP landgrab_games Active game instances.\n")
		fmt.Fprintf(rw, "# TYPE landgrab_games gauge\n")
		fmt.Fprintf(rw, "landgrab_games %d\n", m.Games)

		fmt.Fprintf(rw, "# HELP landgrab_players Players across all game instances.\n")
		fmt.Fprintf(rw, "# TYPE landgrab_players gauge\n")
		fmt.Fprintf(rw, "landgrab_players %d\n", m.Players)

		fmt.Fprintf(rw, "# HELP landgrab_clients Connected websocket clients.\n")
		fmt.Fprintf(rw, "# TYPE landgrab_clients gauge\n")
		fmt.Fprintf(rw, "landgrab_clients %d\n", m.Clients)

		fmt.Fprintf(rw, "# HELP landgrab_inbox_depth Hub inbox backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE landgrab_inbox_depth gauge\n")
		fmt.Fprintf(rw, "landgrab_inbox_depth %d\n", m.InboxDepth)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(hub, tune, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// multiSink fans durable events out to the JSONL log and the sqlite
// index.
type multiSink struct {
	a game.EventSink
	b game.EventSink
}

func (m multiSink) LogEvent(gameID, playerID, eventType string, data any) {
	if m.a != nil {
		m.a.LogEvent(gameID, playerID, eventType, data)
	}
	if m.b != nil {
		m.b.LogEvent(gameID, playerID, eventType, data)
	}
}
