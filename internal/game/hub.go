package game

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"landgrab.io/internal/game/tuning"
	"landgrab.io/internal/protocol"
)

// JoinRequest is sent by the transport after a valid JOIN_GAME
// handshake. Out is the per-connection outbound frame channel.
type JoinRequest struct {
	GameID        string
	PlayerName    string
	CorrelationID string
	Out           chan []byte
	Resp          chan JoinResponse
}

type JoinResponse struct {
	PlayerID string
	Snapshot []byte // GAME_STATE frame for the joiner
}

// ActionEnvelope carries one raw client frame into the hub loop.
// PlayerID is the transport-authenticated sender, not whatever the
// frame claims.
type ActionEnvelope struct {
	GameID   string
	PlayerID string
	Raw      []byte
}

type LeaveRequest struct {
	GameID   string
	PlayerID string
}

// EventSink receives durable event notifications. It is off the
// critical path of resolution; failures are logged and ignored.
type EventSink interface {
	LogEvent(gameID, playerID, eventType string, data any)
}

type clientState struct {
	Out chan []byte
}

// Hub owns the registry, resolver and accrual scheduler. A single
// goroutine (Run) consumes all requests, so claim/attack operations on
// the same region are serialized and no partial mutation is ever
// visible. Deployments must route each gameId to exactly one hub.
type Hub struct {
	reg      *Registry
	resolver *Resolver
	accruer  *Accruer
	tune     tuning.Tuning
	log      *log.Logger
	sink     EventSink

	clients map[string]map[string]*clientState

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan LeaveRequest
	stop  chan struct{}

	gamesGauge   atomic.Int64
	playersGauge atomic.Int64
	clientsGauge atomic.Int64
}

func NewHub(reg *Registry, resolver *Resolver, tune tuning.Tuning, logger *log.Logger, sink EventSink) *Hub {
	return &Hub{
		reg:      reg,
		resolver: resolver,
		accruer:  NewAccruer(reg, tune.ResourceGainPerRegion),
		tune:     tune,
		log:      logger,
		sink:     sink,
		clients:  make(map[string]map[string]*clientState),
		inbox:    make(chan ActionEnvelope, 256),
		join:     make(chan JoinRequest, 16),
		leave:    make(chan LeaveRequest, 16),
		stop:     make(chan struct{}),
	}
}

func (h *Hub) Inbox() chan<- ActionEnvelope { return h.inbox }
func (h *Hub) Join() chan<- JoinRequest     { return h.join }
func (h *Hub) Leave() chan<- LeaveRequest   { return h.leave }

func (h *Hub) Stop() { close(h.stop) }

// Run is the authoritative loop. The resource ticker only runs while
// at least one client is connected anywhere; it stops when the server
// goes idle and restarts on the next join.
func (h *Hub) Run(ctx context.Context) error {
	interval := time.Duration(h.tune.ResourceTickMs) * time.Millisecond

	var ticker *time.Ticker
	var tickC <-chan time.Time
	startTicker := func() {
		if ticker == nil {
			ticker = time.NewTicker(interval)
			tickC = ticker.C
		}
	}
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.stop:
			return nil
		case req := <-h.join:
			h.handleJoin(req)
			startTicker()
		case req := <-h.leave:
			h.handleLeave(req)
			if h.totalClients() == 0 {
				stopTicker()
			}
		case env := <-h.inbox:
			h.handleAction(env)
			if h.totalClients() == 0 {
				stopTicker()
			}
		case now := <-tickC:
			h.handleAccrual(now)
		}
	}
}

func (h *Hub) handleJoin(req JoinRequest) {
	p, in := h.resolver.JoinGame(req.GameID, req.PlayerName)

	if req.Out != nil {
		byGame := h.clients[req.GameID]
		if byGame == nil {
			byGame = make(map[string]*clientState)
			h.clients[req.GameID] = byGame
		}
		byGame[p.ID] = &clientState{Out: req.Out}
	}

	snapshot := mustMarshal(protocol.GameStateMsg{
		Type:     protocol.TypeGameState,
		GameID:   req.GameID,
		PlayerID: p.ID,
		Game:     in.Snapshot(),
	})
	if req.Resp != nil {
		req.Resp <- JoinResponse{PlayerID: p.ID, Snapshot: snapshot}
	}

	h.broadcast(req.GameID, protocol.PlayerJoinedMsg{
		Type:          protocol.TypePlayerJoined,
		GameID:        req.GameID,
		Player:        p.Info(),
		CorrelationID: req.CorrelationID,
	})
	h.broadcastPresence(req.GameID)
	h.logEvent(req.GameID, p.ID, protocol.TypePlayerJoined, map[string]any{"name": p.Name, "color": p.Color})
	h.refreshGauges()
}

func (h *Hub) handleLeave(req LeaveRequest) {
	if byGame := h.clients[req.GameID]; byGame != nil {
		delete(byGame, req.PlayerID)
		if len(byGame) == 0 {
			delete(h.clients, req.GameID)
		}
	}

	evicted, err := h.resolver.LeaveGame(req.GameID, req.PlayerID)
	if err != nil {
		// Duplicate leave (explicit LEAVE_GAME followed by the socket
		// close) is normal; nothing to broadcast.
		h.refreshGauges()
		return
	}
	if !evicted {
		h.broadcast(req.GameID, protocol.PlayerLeftMsg{
			Type:     protocol.TypePlayerLeft,
			GameID:   req.GameID,
			PlayerID: req.PlayerID,
		})
		h.broadcastPresence(req.GameID)
	}
	h.logEvent(req.GameID, req.PlayerID, protocol.TypePlayerLeft, nil)
	h.refreshGauges()
}

func (h *Hub) handleAction(env ActionEnvelope) {
	e, err := protocol.DecodeEnvelope(env.Raw)
	if err != nil {
		h.log.Printf("drop malformed frame from %s/%s: %v", env.GameID, env.PlayerID, err)
		h.sendError(env.GameID, env.PlayerID, protocol.ErrBadRequest, "malformed message", "")
		return
	}

	switch e.Type {
	case protocol.TypeClaimState:
		var msg protocol.ClaimStateMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(env.GameID, env.PlayerID, protocol.ErrBadRequest, "malformed CLAIM_STATE", "")
			return
		}
		h.handleClaim(env, msg)

	case protocol.TypeAttackState:
		var msg protocol.AttackStateMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(env.GameID, env.PlayerID, protocol.ErrBadRequest, "malformed ATTACK_STATE", "")
			return
		}
		h.handleAttack(env, msg)

	case protocol.TypeLeaveGame:
		h.handleLeave(LeaveRequest{GameID: env.GameID, PlayerID: env.PlayerID})

	case protocol.TypeJoinGame:
		// Joining happens in the transport handshake, never mid-session.
		h.sendError(env.GameID, env.PlayerID, protocol.ErrBadRequest, "already joined", "")

	default:
		h.log.Printf("unknown message type %q from %s/%s", e.Type, env.GameID, env.PlayerID)
		h.sendError(env.GameID, env.PlayerID, protocol.ErrUnknownMessageType, "unknown message type "+e.Type, "")
	}
}

func (h *Hub) handleClaim(env ActionEnvelope, msg protocol.ClaimStateMsg) {
	if msg.PlayerID != "" && msg.PlayerID != env.PlayerID {
		h.sendError(env.GameID, env.PlayerID, protocol.ErrBadRequest, "playerId does not match session", msg.CorrelationID)
		return
	}
	out, rerr := h.resolver.ClaimState(env.GameID, env.PlayerID, msg.StateID, msg.CorrelationID)
	if rerr != nil {
		h.sendError(env.GameID, env.PlayerID, rerr.Code, rerr.Message, msg.CorrelationID)
		return
	}
	h.broadcast(env.GameID, out)
	h.logEvent(env.GameID, env.PlayerID, protocol.TypeStateClaimed, map[string]any{"stateId": out.StateID})
}

func (h *Hub) handleAttack(env ActionEnvelope, msg protocol.AttackStateMsg) {
	if msg.PlayerID != "" && msg.PlayerID != env.PlayerID {
		h.sendError(env.GameID, env.PlayerID, protocol.ErrBadRequest, "playerId does not match session", msg.CorrelationID)
		return
	}
	out, rerr := h.resolver.AttackState(env.GameID, env.PlayerID, msg.StateID, msg.ExtraResources, msg.CorrelationID)
	if rerr != nil {
		h.sendError(env.GameID, env.PlayerID, rerr.Code, rerr.Message, msg.CorrelationID)
		return
	}
	h.broadcast(env.GameID, out)
	h.logEvent(env.GameID, env.PlayerID, protocol.TypeStateAttacked, map[string]any{
		"stateId": out.StateID,
		"target":  out.TargetPlayerID,
		"success": out.Success,
	})
}

func (h *Hub) handleAccrual(now time.Time) {
	for _, update := range h.accruer.Tick(now) {
		h.broadcast(update.GameID, update)
	}
}

// broadcast marshals once and fans out to every connected client of
// the game, the originator included (self-echo drives client-side
// reconciliation).
func (h *Hub) broadcast(gameID string, msg any) {
	byGame := h.clients[gameID]
	if len(byGame) == 0 {
		return
	}
	b := mustMarshal(msg)
	for _, c := range byGame {
		sendLatest(c.Out, b)
	}
}

func (h *Hub) broadcastPresence(gameID string) {
	in := h.reg.Get(gameID)
	if in == nil {
		return
	}
	byGame := h.clients[gameID]
	players := make([]protocol.PlayerInfo, 0, len(byGame))
	for id := range byGame {
		if p := in.Players[id]; p != nil {
			players = append(players, p.Info())
		}
	}
	h.broadcast(gameID, protocol.PresenceSyncMsg{
		Type:    protocol.TypePresenceSync,
		GameID:  gameID,
		Players: players,
	})
}

// sendError replies to the originating player only; rule rejections
// are never broadcast.
func (h *Hub) sendError(gameID, playerID, code, message, correlationID string) {
	byGame := h.clients[gameID]
	if byGame == nil {
		return
	}
	c := byGame[playerID]
	if c == nil {
		return
	}
	sendLatest(c.Out, mustMarshal(protocol.ErrorMsg{
		Type:          protocol.TypeError,
		GameID:        gameID,
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
	}))
}

func (h *Hub) logEvent(gameID, playerID, eventType string, data any) {
	if h.sink == nil {
		return
	}
	h.sink.LogEvent(gameID, playerID, eventType, data)
}

func (h *Hub) totalClients() int {
	n := 0
	for _, byGame := range h.clients {
		n += len(byGame)
	}
	return n
}

func (h *Hub) refreshGauges() {
	h.gamesGauge.Store(int64(h.reg.Len()))
	players := 0
	h.reg.ForEach(func(in *Instance) { players += len(in.Players) })
	h.playersGauge.Store(int64(players))
	h.clientsGauge.Store(int64(h.totalClients()))
}

type HubMetrics struct {
	Games      int64 `json:"games"`
	Players    int64 `json:"players"`
	Clients    int64 `json:"clients"`
	InboxDepth int   `json:"inbox_depth"`
}

func (h *Hub) Metrics() HubMetrics {
	return HubMetrics{
		Games:      h.gamesGauge.Load(),
		Players:    h.playersGauge.Load(),
		Clients:    h.clientsGauge.Load(),
		InboxDepth: len(h.inbox),
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err) // all wire types marshal cleanly
	}
	return b
}

// sendLatest never blocks the hub loop: under backpressure it drops
// the oldest queued frame to make room.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
