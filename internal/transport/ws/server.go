package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"landgrab.io/internal/game"
	"landgrab.io/internal/game/tuning"
	"landgrab.io/internal/protocol"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 25 * time.Second
)

type Server struct {
	hub  *game.Hub
	tune tuning.Tuning
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(h *game.Hub, tune tuning.Tuning, logger *log.Logger) *Server {
	return &Server{
		hub:  h,
		tune: tune,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		gameID, playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}
		s.log.Printf("client joined game=%s player=%s remote=%s", gameID, playerID, r.RemoteAddr)

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine: drains the hub's outbound frames and keeps
		// the connection alive with pings.
		go func() {
			ping := time.NewTicker(pingInterval)
			defer ping.Stop()
			for {
				select {
				case <-done:
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				case <-ping.C:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})

		limiter := rate.NewLimiter(rate.Limit(s.tune.RateLimits.MsgsPerSec), s.tune.RateLimits.Burst)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !limiter.Allow() {
				// through the writer goroutine; only one writer may
				// touch the conn
				if b, err := json.Marshal(protocol.ErrorMsg{
					Type:    protocol.TypeError,
					GameID:  gameID,
					Code:    protocol.ErrRateLimited,
					Message: "too many messages",
				}); err == nil {
					select {
					case out <- b:
					default:
					}
				}
				continue
			}
			s.hub.Inbox() <- game.ActionEnvelope{GameID: gameID, PlayerID: playerID, Raw: msg}
		}

		// Cleanup: the hub reverts ownership and broadcasts the leave.
		s.hub.Leave() <- game.LeaveRequest{GameID: gameID, PlayerID: playerID}
	}
}

// handshake expects JOIN_GAME as the first frame and answers with the
// GAME_STATE snapshot before any broadcast reaches the new client.
func (s *Server) handshake(conn *websocket.Conn) (gameID, playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", "", nil
	}

	env, err := protocol.DecodeEnvelope(msg)
	if err != nil || env.Type != protocol.TypeJoinGame {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected JOIN_GAME"),
			time.Now().Add(time.Second))
		return "", "", nil
	}

	var join protocol.JoinGameMsg
	if err := json.Unmarshal(msg, &join); err != nil {
		return "", "", nil
	}
	join.GameID = strings.TrimSpace(join.GameID)
	join.PlayerName = strings.TrimSpace(join.PlayerName)
	if join.GameID == "" {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing gameId"),
			time.Now().Add(time.Second))
		return "", "", nil
	}
	if join.PlayerName == "" {
		join.PlayerName = "player"
	}
	if join.ProtocolVersion != "" && join.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation,
				"unsupported protocolVersion "+join.ProtocolVersion),
			time.Now().Add(time.Second))
		return "", "", nil
	}

	out = make(chan []byte, 64)
	respCh := make(chan game.JoinResponse, 1)
	s.hub.Join() <- game.JoinRequest{
		GameID:        join.GameID,
		PlayerName:    join.PlayerName,
		CorrelationID: join.CorrelationID,
		Out:           out,
		Resp:          respCh,
	}
	resp := <-respCh

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, resp.Snapshot); err != nil {
		s.hub.Leave() <- game.LeaveRequest{GameID: join.GameID, PlayerID: resp.PlayerID}
		return "", "", nil
	}

	return join.GameID, resp.PlayerID, out
}
