package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"landgrab.io/internal/persistence/eventlog"
)

// Reads the durable event log back out: every game mutation the server
// recorded, filterable by game, player and type, with a per-game
// summary at the end.
func main() {
	var (
		eventsDir = flag.String("events", "./data/events", "events dir containing events-*.jsonl.zst")
		gameID    = flag.String("game", "", "only this game instance (optional)")
		playerID  = flag.String("player", "", "only this player (optional)")
		eventType = flag.String("type", "", "only this event type, e.g. STATE_CLAIMED (optional)")
		since     = flag.String("since", "", "only events at or after this RFC3339 time (optional)")
		quiet     = flag.Bool("quiet", false, "suppress per-event lines, print summaries only")
	)
	flag.Parse()

	var sinceAt time.Time
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -since:", err)
			os.Exit(2)
		}
		sinceAt = t
	}

	files, err := listEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	summaries := map[string]*gameSummary{}
	var total int
	for _, path := range files {
		if err := scanFile(path, func(rec eventlog.Record) {
			if *gameID != "" && rec.GameID != *gameID {
				return
			}
			if *playerID != "" && rec.PlayerID != *playerID {
				return
			}
			if *eventType != "" && rec.Type != *eventType {
				return
			}
			if !sinceAt.IsZero() && rec.At.Before(sinceAt) {
				return
			}
			total++
			summarize(summaries, rec)
			if !*quiet {
				printRecord(rec)
			}
		}); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	games := make([]string, 0, len(summaries))
	for id := range summaries {
		games = append(games, id)
	}
	sort.Strings(games)
	fmt.Printf("replayed %d events across %d games\n", total, len(games))
	for _, id := range games {
		s := summaries[id]
		fmt.Printf("game=%s events=%d joins=%d leaves=%d claims=%d attacks=%d won=%d\n",
			id, s.events, s.joins, s.leaves, s.claims, s.attacks, s.attacksWon)
	}
}

type gameSummary struct {
	events     int
	joins      int
	leaves     int
	claims     int
	attacks    int
	attacksWon int
}

func summarize(summaries map[string]*gameSummary, rec eventlog.Record) {
	s := summaries[rec.GameID]
	if s == nil {
		s = &gameSummary{}
		summaries[rec.GameID] = s
	}
	s.events++
	switch rec.Type {
	case "PLAYER_JOINED":
		s.joins++
	case "PLAYER_LEFT":
		s.leaves++
	case "STATE_CLAIMED":
		s.claims++
	case "STATE_ATTACKED":
		s.attacks++
		var data struct {
			Success bool `json:"success"`
		}
		if json.Unmarshal(rec.Data, &data) == nil && data.Success {
			s.attacksWon++
		}
	}
}

func printRecord(rec eventlog.Record) {
	data := ""
	if len(rec.Data) > 0 {
		data = " " + string(rec.Data)
	}
	fmt.Printf("%s %-14s game=%s player=%s%s\n",
		rec.At.Format(time.RFC3339), rec.Type, rec.GameID, rec.PlayerID, data)
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile(path string, fn func(eventlog.Record)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var rec eventlog.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		fn(rec)
	}
	return sc.Err()
}
