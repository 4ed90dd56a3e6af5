package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"landgrab.io/internal/protocol"
)

var (
	ErrConnClosed = errors.New("client: connection closed")
	errBadWelcome = errors.New("client: server did not send a snapshot")
)

const (
	defaultDialTimeout = 5 * time.Second
	sendTimeout        = 5 * time.Second
	inboundChanSize    = 128
)

// Dialer opens one logical channel per game instance. The join
// handshake happens inside Dial so a returned Conn is always a
// fully established session with its opening snapshot.
type Dialer struct {
	Endpoint string // e.g. ws://127.0.0.1:8080/v1/ws
	Timeout  time.Duration
	Logger   *log.Logger
}

// Conn is an established channel. Inbound frames are decoded into
// typed protocol structs and delivered on a channel; there is no
// callback registration.
type Conn struct {
	ws      *websocket.Conn
	logger  *log.Logger
	inbound chan any

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.Mutex
	err       error
}

// Dial connects, sends JOIN_GAME and waits for the GAME_STATE
// snapshot before returning.
func (d *Dialer) Dial(ctx context.Context, gameID, playerName string) (*Conn, protocol.GameStateMsg, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	wsDialer := websocket.Dialer{HandshakeTimeout: timeout}
	ws, _, err := wsDialer.DialContext(ctx, d.Endpoint, nil)
	if err != nil {
		return nil, protocol.GameStateMsg{}, fmt.Errorf("dial %s: %w", d.Endpoint, err)
	}

	join := protocol.JoinGameMsg{
		Type:            protocol.TypeJoinGame,
		GameID:          gameID,
		PlayerName:      playerName,
		ProtocolVersion: protocol.Version,
	}
	_ = ws.SetWriteDeadline(time.Now().Add(timeout))
	if err := ws.WriteJSON(join); err != nil {
		_ = ws.Close()
		return nil, protocol.GameStateMsg{}, fmt.Errorf("join handshake: %w", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(timeout))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, protocol.GameStateMsg{}, fmt.Errorf("join handshake read: %w", err)
	}
	msg, err := protocol.DecodeServer(raw)
	if err != nil {
		_ = ws.Close()
		return nil, protocol.GameStateMsg{}, fmt.Errorf("join handshake decode: %w", err)
	}
	switch m := msg.(type) {
	case protocol.GameStateMsg:
		_ = ws.SetReadDeadline(time.Time{})
		c := &Conn{
			ws:      ws,
			logger:  d.Logger,
			inbound: make(chan any, inboundChanSize),
			done:    make(chan struct{}),
		}
		go c.readLoop()
		return c, m, nil
	case protocol.ErrorMsg:
		_ = ws.Close()
		return nil, protocol.GameStateMsg{}, fmt.Errorf("join rejected: %s: %s", m.Code, m.Message)
	default:
		_ = ws.Close()
		return nil, protocol.GameStateMsg{}, errBadWelcome
	}
}

func (c *Conn) readLoop() {
	defer func() {
		close(c.inbound)
		c.closeOnce.Do(func() { close(c.done) })
		_ = c.ws.Close()
	}()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.setErr(err)
			return
		}
		msg, err := protocol.DecodeServer(raw)
		if err != nil {
			if c.logger != nil {
				c.logger.Printf("drop inbound frame: %v", err)
			}
			continue
		}
		select {
		case c.inbound <- msg:
		case <-c.done:
			return
		}
	}
}

// Inbound delivers decoded server messages. The channel is closed
// when the connection drops.
func (c *Conn) Inbound() <-chan any { return c.inbound }

// Send writes one client message. Safe for concurrent use.
func (c *Conn) Send(msg any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(sendTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close tears the connection down. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	_ = c.ws.Close()
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended, nil for a local Close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}
