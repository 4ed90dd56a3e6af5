package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"landgrab.io/internal/client"
	"landgrab.io/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		gameID  = flag.String("game", "lobby", "game instance id")
		name    = flag.String("name", "bot", "player name")
		cadence = flag.Duration("cadence", 3*time.Second, "time between actions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	sess := client.NewSession(client.SessionConfig{
		Endpoint:   *url,
		GameID:     *gameID,
		PlayerName: *name,
		Logger:     logger,
		OnState: func(s client.State, attempt int) {
			if s == client.StateReconnecting {
				logger.Printf("state=%s attempt=%d", s, attempt)
				return
			}
			logger.Printf("state=%s", s)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		sess.Leave()
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(*cadence)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Fatalf("session ended: %v", err)
			}
			return
		case ev, ok := <-sess.Events():
			if !ok {
				continue
			}
			logEvent(logger, ev)
		case <-ticker.C:
			act(sess, rng, logger)
		}
	}
}

// act claims a neutral region when one is reachable, otherwise attacks
// the cheapest enemy region. Actions issued while reconnecting queue up
// and flush with the next connect.
func act(sess *client.Session, rng *rand.Rand, logger *log.Logger) {
	snap := sess.Snapshot()
	me := sess.PlayerID()
	if me == "" {
		return
	}

	var neutral, enemy []string
	for id, r := range snap.Regions {
		switch {
		case r.OwnerID == "":
			neutral = append(neutral, id)
		case r.OwnerID != me:
			enemy = append(enemy, id)
		}
	}
	sort.Strings(neutral)
	sort.Strings(enemy)

	switch {
	case len(neutral) > 0:
		target := neutral[rng.Intn(len(neutral))]
		if _, err := sess.Claim(target); err != nil {
			logger.Printf("claim %s: %v", target, err)
		}
	case len(enemy) > 0:
		target := enemy[rng.Intn(len(enemy))]
		extra := rng.Intn(3) * 5
		if _, err := sess.Attack(target, extra); err != nil {
			logger.Printf("attack %s: %v", target, err)
		}
	}
}

func logEvent(logger *log.Logger, ev client.Event) {
	if ev.Err != nil {
		logger.Printf("rollback: %v", ev.Err)
		return
	}
	switch m := ev.Msg.(type) {
	case protocol.GameStateMsg:
		logger.Printf("joined game=%s as %s (%d players, %d regions)",
			m.GameID, m.PlayerID, len(m.Game.Players), len(m.Game.Regions))
	case protocol.StateClaimedMsg:
		logger.Printf("claimed state=%s by=%s resources=%d", m.StateID, m.PlayerID, m.Resources)
	case protocol.StateAttackedMsg:
		logger.Printf("attack state=%s by=%s success=%t %d vs %d",
			m.StateID, m.PlayerID, m.Success, m.AttackStrength, m.DefenseStrength)
	case protocol.ResourcesUpdatedMsg:
		logger.Printf("resources updated for %d players", len(m.PlayerResources))
	case protocol.ErrorMsg:
		logger.Printf("error code=%s msg=%s", m.Code, m.Message)
	}
}
