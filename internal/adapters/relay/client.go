// Package relay is the client side of the signaling relay: one websocket,
// typed subscriptions per message kind.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var (
	ErrNotConnected   = errors.New("relay: not connected")
	ErrClientClosed   = errors.New("relay: client closed")
	ErrNotRegistered  = errors.New("relay: register first")
	ErrAlreadyStarted = errors.New("relay: already connected")
)

type Options struct {
	URL        string
	PingPeriod time.Duration
	Dialer     *websocket.Dialer
}

// Client implements core.RelayClient over gorilla/websocket.
type Client struct {
	url        string
	pingPeriod time.Duration
	dialer     *websocket.Dialer

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	pumps     *conc.WaitGroup
	started   atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once

	self atomic.Pointer[domain.PeerID]

	mu       sync.Mutex
	nextID   uint64
	handlers map[protocol.Kind]map[uint64]core.MessageHandler
	onClosed map[uint64]func(error)
	dropped  bool
}

func NewClient(opts Options) *Client {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		url:        opts.URL,
		pingPeriod: opts.PingPeriod,
		dialer:     opts.Dialer,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		pumps:      conc.NewWaitGroup(),
		handlers:   make(map[protocol.Kind]map[uint64]core.MessageHandler),
		onClosed:   make(map[uint64]func(error)),
	}
}

// Connect dials the relay and starts the read/write pumps.
func (c *Client) Connect(ctx context.Context) error {
	if c.closing.Load() {
		return ErrClientClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.started.Store(false)
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	pongWait := c.pingPeriod * 10 / 9
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.conn = conn

	log.Info().Str("module", "relay.client").Str("url", c.url).Msg("connected")
	c.pumps.Go(c.writePump)
	c.pumps.Go(c.readPump)
	return nil
}

func (c *Client) Register(id domain.PeerID, displayName string, room domain.RoomID) error {
	c.self.Store(&id)
	return c.write(protocol.NewRegister(id, displayName, room))
}

func (c *Client) SendSignal(to domain.PeerID, payload protocol.SignalPayload) error {
	self := c.self.Load()
	if self == nil {
		return ErrNotRegistered
	}
	return c.write(protocol.NewSignal(to, *self, payload))
}

func (c *Client) SendVideoToggled(enabled bool) error {
	self := c.self.Load()
	if self == nil {
		return ErrNotRegistered
	}
	return c.write(protocol.NewVideoToggled(*self, enabled))
}

func (c *Client) write(m *protocol.Message) error {
	if !c.started.Load() {
		return ErrNotConnected
	}
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "relay.client").Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "relay.client").Msg("ping failed")
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leave"))
			return
		}
	}
}

// readPump dispatches inbound messages in arrival order on one goroutine.
func (c *Client) readPump() {
	var cause error
	defer func() {
		_ = c.conn.Close()
		c.shutdown()
		if c.closing.Load() {
			cause = nil
		}
		c.fireClosed(cause)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			cause = err
			return
		}
		m, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "relay.client").Msg("dropping malformed frame")
			continue
		}
		c.dispatch(m)
	}
}

func (c *Client) dispatch(m *protocol.Message) {
	c.mu.Lock()
	fns := make([]core.MessageHandler, 0, len(c.handlers[m.Type]))
	for _, fn := range c.handlers[m.Type] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if len(fns) == 0 {
		log.Debug().Str("module", "relay.client").Str("type", string(m.Type)).Msg("no subscriber")
		return
	}
	for _, fn := range fns {
		fn(m)
	}
}

func (c *Client) Subscribe(kind protocol.Kind, fn core.MessageHandler) core.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.handlers[kind] == nil {
		c.handlers[kind] = make(map[uint64]core.MessageHandler)
	}
	c.handlers[kind][id] = fn
	return &subscription{cancel: func() {
		c.mu.Lock()
		delete(c.handlers[kind], id)
		c.mu.Unlock()
	}}
}

// OnClosed registers fn for transport loss. It fires at most once, with a nil
// error when the client was closed locally.
func (c *Client) OnClosed(fn func(error)) core.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.onClosed[id] = fn
	return &subscription{cancel: func() {
		c.mu.Lock()
		delete(c.onClosed, id)
		c.mu.Unlock()
	}}
}

func (c *Client) fireClosed(cause error) {
	c.mu.Lock()
	if c.dropped {
		c.mu.Unlock()
		return
	}
	c.dropped = true
	fns := make([]func(error), 0, len(c.onClosed))
	for _, fn := range c.onClosed {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if cause != nil {
		log.Warn().Err(cause).Str("module", "relay.client").Msg("relay connection lost")
	}
	for _, fn := range fns {
		fn(cause)
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Close disconnects from the relay and waits for the pumps to exit.
func (c *Client) Close() error {
	c.closing.Store(true)
	c.shutdown()
	if c.started.Load() {
		c.pumps.Wait()
	}
	log.Info().Str("module", "relay.client").Msg("closed")
	return nil
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}
