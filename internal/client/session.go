package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"landgrab.io/internal/game/tuning"
	"landgrab.io/internal/protocol"
)

const defaultActionTimeout = 5 * time.Second

// SessionConfig configures one game session.
type SessionConfig struct {
	Endpoint   string
	GameID     string
	PlayerName string

	// Gameplay constants, used to price speculative patches. Zero
	// value falls back to Defaults.
	Tuning tuning.Tuning

	// How long a speculative patch may wait for its authoritative
	// echo before it is rolled back.
	ActionTimeout time.Duration

	Logger  *log.Logger
	OnState func(State, int)
}

// Event is a session notification: a decoded server message, or a
// local outcome such as a rolled-back action.
type Event struct {
	Msg any
	Err error
}

type pendingOp struct {
	issuedAt time.Time
	kind     string
	rollback func()
}

// Session owns one channel to one game instance: it keeps the local
// snapshot, applies speculative patches tagged with correlation ids,
// reconciles them against authoritative echoes, buffers actions while
// disconnected and drives reconnects.
type Session struct {
	cfg      SessionConfig
	dialer   *Dialer
	ctrl     *Controller
	queue    *OutboundQueue
	presence *PresenceTracker

	mu        sync.Mutex
	conn      *Conn
	playerID  string
	game      protocol.GameSnapshot
	pending   map[string]pendingOp
	closed    bool
	cancelRun context.CancelFunc

	newID func() string
	now   func() time.Time

	events chan Event
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Tuning.ClaimCost == 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	rc := cfg.Tuning.Reconnect
	return &Session{
		cfg: cfg,
		dialer: &Dialer{
			Endpoint: cfg.Endpoint,
			Timeout:  time.Duration(rc.ConnectTimeoutMs) * time.Millisecond,
			Logger:   cfg.Logger,
		},
		ctrl:     NewController(rc, cfg.OnState),
		queue:    &OutboundQueue{},
		presence: NewPresenceTracker(),
		pending:  make(map[string]pendingOp),
		newID:    uuid.NewString,
		now:      time.Now,
		events:   make(chan Event, 256),
	}
}

// Run connects and serves the session until ctx is cancelled, Leave is
// called, or the reconnect budget runs out. Dropped connections are
// re-dialed with capped exponential backoff; queued actions flush in
// order after every successful (re)connect.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)

	// Leave cancels this context too, so retry timers and in-flight
	// dials stop the moment the caller disconnects deliberately.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()

	reconnecting := false
	for {
		if s.isClosed() {
			s.ctrl.setState(StateDisconnected, 0)
			return nil
		}
		if err := s.ctrl.Connect(runCtx, reconnecting, s.dialOnce); err != nil {
			if s.isClosed() {
				s.ctrl.setState(StateDisconnected, 0)
				return nil
			}
			if errors.Is(err, ErrMaxRetries) {
				s.emit(Event{
					Msg: protocol.ErrorMsg{
						Type:    protocol.TypeError,
						GameID:  s.cfg.GameID,
						Code:    protocol.ErrMaxRetriesExceeded,
						Message: err.Error(),
					},
					Err: err,
				})
			}
			return err
		}
		s.flushQueue()
		err := s.serve(runCtx)
		if s.isClosed() {
			s.ctrl.setState(StateDisconnected, 0)
			return nil
		}
		if ctx.Err() != nil {
			s.ctrl.setState(StateDisconnected, 0)
			return ctx.Err()
		}
		if err != nil {
			if s.cfg.Logger != nil {
				s.cfg.Logger.Printf("connection lost (game=%s): %v", s.cfg.GameID, err)
			}
			s.emit(Event{Msg: protocol.ErrorMsg{
				Type:    protocol.TypeError,
				GameID:  s.cfg.GameID,
				Code:    protocol.ErrTransport,
				Message: err.Error(),
			}})
		}
		reconnecting = true
	}
}

// dialOnce performs one join attempt. On success the authoritative
// snapshot replaces the local view and stale speculative patches are
// dropped; queued actions survive for the flush.
func (s *Session) dialOnce(ctx context.Context) error {
	if s.isClosed() {
		return ErrConnClosed
	}
	conn, welcome, err := s.dialer.Dial(ctx, s.cfg.GameID, s.cfg.PlayerName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.playerID = welcome.PlayerID
	s.game = cloneSnapshot(welcome.Game)
	s.pending = make(map[string]pendingOp)
	s.mu.Unlock()
	s.emit(Event{Msg: welcome})
	return nil
}

func (s *Session) serve(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	sweep := time.NewTicker(s.cfg.ActionTimeout / 2)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return ctx.Err()
		case <-sweep.C:
			s.expirePending()
		case msg, ok := <-conn.Inbound():
			if !ok {
				return conn.Err()
			}
			s.handle(msg)
		}
	}
}

// Claim issues CLAIM_STATE and speculatively takes the region in the
// local view. Returns the correlation id of the attempt.
func (s *Session) Claim(stateID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrConnClosed
	}
	corrID := s.newID()

	region, ok := s.game.Regions[stateID]
	if ok {
		prevRegion := region
		me, haveMe := s.game.Players[s.playerID]
		if haveMe && me.Resources >= s.cfg.Tuning.ClaimCost && region.OwnerID == "" {
			me.Resources -= s.cfg.Tuning.ClaimCost
			s.game.Players[s.playerID] = me
			now := s.now()
			region.OwnerID = s.playerID
			region.CapturedAt = &now
			s.game.Regions[stateID] = region
			cost := s.cfg.Tuning.ClaimCost
			playerID := s.playerID
			s.pending[corrID] = pendingOp{
				issuedAt: s.now(),
				kind:     "claim",
				rollback: func() {
					// revert the region only if it still carries our
					// speculative value; an authoritative claim by
					// another player that landed in between wins
					if r, ok := s.game.Regions[stateID]; ok && r.OwnerID == playerID {
						s.game.Regions[stateID] = prevRegion
					}
					if p, ok := s.game.Players[playerID]; ok {
						p.Resources += cost
						s.game.Players[playerID] = p
					}
				},
			}
		}
	}

	s.sendLocked(protocol.ClaimStateMsg{
		Type:          protocol.TypeClaimState,
		GameID:        s.cfg.GameID,
		PlayerID:      s.playerID,
		StateID:       stateID,
		CorrelationID: corrID,
	})
	return corrID, nil
}

// Attack issues ATTACK_STATE. The speculative patch deducts the cost
// only; the outcome waits for the authoritative echo.
func (s *Session) Attack(stateID string, extraResources int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrConnClosed
	}
	if extraResources < 0 {
		return "", fmt.Errorf("negative extra resources: %d", extraResources)
	}
	corrID := s.newID()

	cost := s.cfg.Tuning.AttackBaseCost + extraResources
	if me, ok := s.game.Players[s.playerID]; ok && me.Resources >= cost {
		me.Resources -= cost
		s.game.Players[s.playerID] = me
		playerID := s.playerID
		s.pending[corrID] = pendingOp{
			issuedAt: s.now(),
			kind:     "attack",
			rollback: func() {
				if p, ok := s.game.Players[playerID]; ok {
					p.Resources += cost
					s.game.Players[playerID] = p
				}
			},
		}
	}

	s.sendLocked(protocol.AttackStateMsg{
		Type:           protocol.TypeAttackState,
		GameID:         s.cfg.GameID,
		PlayerID:       s.playerID,
		StateID:        stateID,
		ExtraResources: extraResources,
		CorrelationID:  corrID,
	})
	return corrID, nil
}

// Leave ends the session deliberately: LEAVE_GAME is sent best-effort,
// the connection closes and Run returns without reconnecting.
func (s *Session) Leave() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	cancel := s.cancelRun
	msg := protocol.LeaveGameMsg{
		Type:     protocol.TypeLeaveGame,
		GameID:   s.cfg.GameID,
		PlayerID: s.playerID,
	}
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Send(msg)
		conn.Close()
	}
	// halts any pending retry timer or in-flight dial
	if cancel != nil {
		cancel()
	}
}

func (s *Session) handle(msg any) {
	s.mu.Lock()
	switch m := msg.(type) {
	case protocol.PlayerJoinedMsg:
		s.game.Players[m.Player.ID] = m.Player
	case protocol.PlayerLeftMsg:
		delete(s.game.Players, m.PlayerID)
		for id, r := range s.game.Regions {
			if r.OwnerID == m.PlayerID {
				r.OwnerID = ""
				r.CapturedAt = nil
				s.game.Regions[id] = r
			}
		}
	case protocol.StateClaimedMsg:
		if r, ok := s.game.Regions[m.StateID]; ok {
			now := s.now()
			r.OwnerID = m.PlayerID
			r.CapturedAt = &now
			s.game.Regions[m.StateID] = r
		}
		if p, ok := s.game.Players[m.PlayerID]; ok {
			p.Resources = m.Resources
			s.game.Players[m.PlayerID] = p
		}
		delete(s.pending, m.CorrelationID)
	case protocol.StateAttackedMsg:
		if m.Success {
			if r, ok := s.game.Regions[m.StateID]; ok {
				now := s.now()
				r.OwnerID = m.PlayerID
				r.CapturedAt = &now
				s.game.Regions[m.StateID] = r
			}
		}
		if p, ok := s.game.Players[m.PlayerID]; ok {
			p.Resources = m.Resources
			s.game.Players[m.PlayerID] = p
		}
		delete(s.pending, m.CorrelationID)
	case protocol.ResourcesUpdatedMsg:
		for id, res := range m.PlayerResources {
			if p, ok := s.game.Players[id]; ok {
				p.Resources = res
				s.game.Players[id] = p
			}
		}
	case protocol.PresenceSyncMsg:
		s.presence.Sync(m.Players)
	case protocol.GameStateMsg:
		s.playerID = m.PlayerID
		s.game = cloneSnapshot(m.Game)
	case protocol.ErrorMsg:
		if op, ok := s.pending[m.CorrelationID]; ok {
			op.rollback()
			delete(s.pending, m.CorrelationID)
		}
	}
	s.mu.Unlock()
	s.emit(Event{Msg: msg})
}

// expirePending rolls back speculative patches whose echo never came.
func (s *Session) expirePending() {
	s.mu.Lock()
	var expired []string
	for id, op := range s.pending {
		if s.now().Sub(op.issuedAt) >= s.cfg.ActionTimeout {
			op.rollback()
			delete(s.pending, id)
			expired = append(expired, op.kind)
		}
	}
	s.mu.Unlock()
	for _, kind := range expired {
		s.emit(Event{Err: fmt.Errorf("%s rolled back: no reply within %v", kind, s.cfg.ActionTimeout)})
	}
}

// sendLocked writes to the live connection or queues for the next
// flush. Callers hold s.mu.
func (s *Session) sendLocked(msg any) {
	if s.ctrl.State() != StateConnected || s.conn == nil {
		s.queue.Enqueue(msg)
		return
	}
	if err := s.conn.Send(msg); err != nil {
		s.queue.Enqueue(msg)
	}
}

func (s *Session) flushQueue() {
	s.mu.Lock()
	conn := s.conn
	playerID := s.playerID
	s.mu.Unlock()
	msgs := s.queue.Drain()
	for i, msg := range msgs {
		msg = restamp(msg, playerID)
		msgs[i] = msg
		if err := conn.Send(msg); err != nil {
			s.queue.Requeue(msgs[i:])
			return
		}
	}
}

// restamp rewrites the sender identity on a queued frame. A rejoin
// assigns a fresh player id, so frames queued under the old session
// would fail the server's identity check if sent as-is.
func restamp(msg any, playerID string) any {
	switch m := msg.(type) {
	case protocol.ClaimStateMsg:
		m.PlayerID = playerID
		return m
	case protocol.AttackStateMsg:
		m.PlayerID = playerID
		return m
	case protocol.LeaveGameMsg:
		m.PlayerID = playerID
		return m
	}
	return msg
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// slow consumer, drop the oldest to keep the session live
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- ev:
		default:
		}
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Events delivers session notifications. Closed when Run returns.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) State() State { return s.ctrl.State() }

func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// Snapshot returns a copy of the local view, speculative patches
// included.
func (s *Session) Snapshot() protocol.GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.game)
}

func (s *Session) Presence() *PresenceTracker { return s.presence }

func (s *Session) QueuedActions() int { return s.queue.Len() }

func (s *Session) PendingActions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func cloneSnapshot(g protocol.GameSnapshot) protocol.GameSnapshot {
	out := g
	out.Players = make(map[string]protocol.PlayerInfo, len(g.Players))
	for id, p := range g.Players {
		out.Players[id] = p
	}
	out.Regions = make(map[string]protocol.RegionInfo, len(g.Regions))
	for id, r := range g.Regions {
		if r.CapturedAt != nil {
			at := *r.CapturedAt
			r.CapturedAt = &at
		}
		r.Neighbors = append([]string(nil), r.Neighbors...)
		out.Regions[id] = r
	}
	return out
}
