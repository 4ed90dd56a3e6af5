// Package indexdb keeps a queryable sqlite projection of the game
// event stream. Writes go through a single writer goroutine with
// batched transactions so the hub loop never blocks on disk.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan eventRow
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type eventRow struct {
	At       string
	GameID   string
	PlayerID string
	Type     string
	DataJSON string
}

// Event is a queried row.
type Event struct {
	At       time.Time
	GameID   string
	PlayerID string
	Type     string
	DataJSON string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Buffered for bursty writes (mass claims on join); the JSONL
		// event log remains the source of truth if we drop.
		ch: make(chan eventRow, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a fair
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			game_id TEXT NOT NULL,
			player_id TEXT,
			type TEXT NOT NULL,
			data_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_game ON events(game_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_player ON events(player_id, id);`,
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY,
			first_event_at TEXT NOT NULL,
			last_event_at TEXT NOT NULL,
			events INTEGER NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// LogEvent implements game.EventSink. It never blocks: rows are
// dropped if the indexer falls behind.
func (s *SQLiteIndex) LogEvent(gameID, playerID, eventType string, data any) {
	if s == nil || s.closed.Load() {
		return
	}
	row := eventRow{
		At:       time.Now().UTC().Format(time.RFC3339Nano),
		GameID:   gameID,
		PlayerID: playerID,
		Type:     eventType,
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			row.DataJSON = string(b)
		}
	}
	select {
	case s.ch <- row:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Dropped() int64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT INTO events(at,game_id,player_id,type,data_json) VALUES(?,?,?,?,?)`)
	upsertGame, _ := s.db.Prepare(`INSERT INTO games(game_id,first_event_at,last_event_at,events) VALUES(?,?,?,1)
		ON CONFLICT(game_id) DO UPDATE SET last_event_at=excluded.last_event_at, events=events+1`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
		if upsertGame != nil {
			_ = upsertGame.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushTimer := time.NewTicker(250 * time.Millisecond)
	defer flushTimer.Stop()

	for {
		select {
		case row, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			if insertEvent != nil {
				_, _ = tx.Stmt(insertEvent).Exec(row.At, row.GameID, nullable(row.PlayerID), row.Type, nullable(row.DataJSON))
			}
			if upsertGame != nil {
				_, _ = tx.Stmt(upsertGame).Exec(row.GameID, row.At, row.At)
			}
			opCount++
			if opCount >= commitEvery {
				commit()
			}
		case <-flushTimer.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RecentEvents returns up to limit events for gameID, newest last.
func (s *SQLiteIndex) RecentEvents(gameID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT at, game_id, COALESCE(player_id,''), type, COALESCE(data_json,'')
		FROM events WHERE game_id = ? ORDER BY id DESC LIMIT ?`, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var at string
		if err := rows.Scan(&at, &e.GameID, &e.PlayerID, &e.Type, &e.DataJSON); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GameRow is the per-game summary maintained alongside the event
// stream.
type GameRow struct {
	GameID       string
	FirstEventAt time.Time
	LastEventAt  time.Time
	Events       int64
}

// Games lists every game the index has seen, most recently active
// first.
func (s *SQLiteIndex) Games() ([]GameRow, error) {
	rows, err := s.db.Query(`SELECT game_id, first_event_at, last_event_at, events
		FROM games ORDER BY last_event_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameRow
	for rows.Next() {
		var g GameRow
		var first, last string
		if err := rows.Scan(&g.GameID, &first, &last, &g.Events); err != nil {
			return nil, err
		}
		g.FirstEventAt, _ = time.Parse(time.RFC3339Nano, first)
		g.LastEventAt, _ = time.Parse(time.RFC3339Nano, last)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GameEventCount returns the counter row maintained per game.
func (s *SQLiteIndex) GameEventCount(gameID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT events FROM games WHERE game_id = ?`, gameID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
