package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"landgrab.io/internal/persistence/indexdb"
)

// Offline queries against the sqlite event index. The server keeps the
// index current; this tool only reads it.
func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "count":
			countCmd(os.Args[2:])
			return
		}
	}
	gamesCmd(os.Args[1:])
}

func openIndex(dataDir string) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index db:", err)
		os.Exit(1)
	}
	return idx
}

func gamesCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	games, err := idx.Games()
	if err != nil {
		fmt.Fprintln(os.Stderr, "query games:", err)
		os.Exit(1)
	}
	for _, g := range games {
		fmt.Printf("game=%s events=%d first=%s last=%s\n",
			g.GameID, g.Events,
			g.FirstEventAt.Format(time.RFC3339),
			g.LastEventAt.Format(time.RFC3339))
	}
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game instance id")
	limit := fs.Int("limit", 50, "max events to print")
	_ = fs.Parse(args)

	if strings.TrimSpace(*gameID) == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}

	idx := openIndex(*dataDir)
	defer idx.Close()

	events, err := idx.RecentEvents(*gameID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query events:", err)
		os.Exit(1)
	}
	for _, e := range events {
		data := ""
		if e.DataJSON != "" {
			data = " " + e.DataJSON
		}
		fmt.Printf("%s %-14s player=%s%s\n",
			e.At.Format(time.RFC3339), e.Type, e.PlayerID, data)
	}
}

func countCmd(args []string) {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game instance id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*gameID) == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}

	idx := openIndex(*dataDir)
	defer idx.Close()

	n, err := idx.GameEventCount(*gameID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query count:", err)
		os.Exit(1)
	}
	fmt.Println(n)
}
