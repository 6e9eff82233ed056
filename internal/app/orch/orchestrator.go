// Package orch drives the full-mesh session: it reacts to relay events,
// decides who initiates each pairwise connection and publishes peer media
// events to the renderer.
package orch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/app"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
	"github.com/dkeye/MeshCall/internal/metrics"
	"github.com/dkeye/MeshCall/internal/protocol"
)

const eventBuffer = 128

var ErrAlreadyJoined = errors.New("session already joined")

type Options struct {
	Identity domain.Identity
	Room     domain.RoomID
	Media    media.Constraints
	// AllowNoMedia lets the session join receive-only when media
	// acquisition fails.
	AllowNoMedia bool
}

// Orchestrator owns one local session: its registry, its media guard and its
// relay subscriptions. All state changes run on a single event loop.
type Orchestrator struct {
	self     domain.Identity
	room     domain.RoomID
	opts     Options
	logger   zerolog.Logger
	Registry *app.Registry

	relay    core.RelayClient
	factory  core.ConnectionFactory
	guard    *media.Guard
	renderer core.Renderer

	local        *media.LocalStream
	audioEnabled atomic.Bool
	videoEnabled atomic.Bool

	alive     atomic.Bool
	joined    atomic.Bool
	events    chan func()
	stop      chan struct{}
	loopDone  chan struct{}
	loopOn    atomic.Bool
	subs      subscriptions
	leaveOnce sync.Once
	done      chan struct{}

	errMu  sync.Mutex
	endErr error
}

func New(opts Options, relay core.RelayClient, factory core.ConnectionFactory, guard *media.Guard, renderer core.Renderer) *Orchestrator {
	return &Orchestrator{
		self:     opts.Identity,
		room:     opts.Room,
		opts:     opts,
		logger:   log.With().Str("module", "orch").Str("self", string(opts.Identity.ID)).Str("room", string(opts.Room)).Logger(),
		Registry: app.NewRegistry(),
		relay:    relay,
		factory:  factory,
		guard:    guard,
		renderer: renderer,
		events:   make(chan func(), eventBuffer),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (o *Orchestrator) Self() domain.Identity { return o.self }
func (o *Orchestrator) Room() domain.RoomID   { return o.room }
func (o *Orchestrator) Alive() bool           { return o.alive.Load() }
func (o *Orchestrator) AudioEnabled() bool    { return o.audioEnabled.Load() }
func (o *Orchestrator) VideoEnabled() bool    { return o.videoEnabled.Load() }

// Local returns the session's local stream, nil when running without media.
func (o *Orchestrator) Local() *media.LocalStream { return o.local }

// Done is closed once the session has been torn down.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Err reports why the session ended, nil for a local leave.
func (o *Orchestrator) Err() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.endErr
}

// Join acquires media, connects to the relay and registers in the room.
// Media failure is fatal only when AllowNoMedia is off; relay failure is
// always fatal and reported as domain.ErrSignalingUnreachable.
func (o *Orchestrator) Join(ctx context.Context) error {
	select {
	case <-o.done:
		return domain.ErrSessionClosed
	default:
	}
	if !o.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}

	if o.opts.Media.Audio || o.opts.Media.Video {
		local, err := o.guard.Acquire(ctx, o.opts.Media)
		switch {
		case err == nil:
			o.local = local
		case errors.Is(err, domain.ErrMediaUnavailable) && o.opts.AllowNoMedia:
			o.logger.Warn().Err(err).Msg("joining without local media")
		default:
			o.teardown(err)
			return err
		}
	}
	if o.local != nil {
		o.renderer.OnLocalStreamReady(o.local)
	}

	if err := o.relay.Connect(ctx); err != nil {
		err = domain.Wrap("connect relay", domain.ErrSignalingUnreachable, err)
		o.teardown(err)
		return err
	}

	o.alive.Store(true)
	o.loopOn.Store(true)
	go o.run()

	o.subs.add(o.relay.Subscribe(protocol.KindIntroduction, o.deliver(o.onIntroduction)))
	o.subs.add(o.relay.Subscribe(protocol.KindPeerJoined, o.deliver(o.onPeerJoined)))
	o.subs.add(o.relay.Subscribe(protocol.KindPeerLeft, o.deliver(o.onPeerLeft)))
	o.subs.add(o.relay.Subscribe(protocol.KindSignal, o.deliver(o.onSignal)))
	o.subs.add(o.relay.Subscribe(protocol.KindVideoToggled, o.deliver(o.onPeerVideoToggled)))
	o.subs.add(o.relay.Subscribe(protocol.KindError, o.deliver(o.onRelayError)))
	o.subs.add(o.relay.OnClosed(o.onRelayClosed))

	if err := o.relay.Register(o.self.ID, o.self.DisplayName, o.room); err != nil {
		err = domain.Wrap("register", domain.ErrSignalingUnreachable, err)
		o.teardown(err)
		return err
	}
	o.logger.Info().Str("name", o.self.DisplayName).Bool("media", o.local != nil).Msg("joined room")
	return nil
}

// Leave tears the session down: local tracks, then peer connections, then
// relay listeners, then the relay transport. It is safe to call repeatedly
// and from any goroutine except the event loop.
func (o *Orchestrator) Leave() {
	o.teardown(nil)
}

func (o *Orchestrator) teardown(cause error) {
	o.leaveOnce.Do(func() {
		o.alive.Store(false)
		if o.loopOn.Load() {
			close(o.stop)
			<-o.loopDone
		}

		stopped := o.guard.Release()
		peers := o.Registry.Clear()
		for _, id := range peers {
			o.renderer.OnPeerRemoved(id)
		}
		metrics.MeshPeers.Set(0)
		o.subs.release()
		if o.joined.Load() {
			if err := o.relay.Close(); err != nil {
				o.logger.Warn().Err(err).Msg("relay close")
			}
		}

		o.errMu.Lock()
		o.endErr = cause
		o.errMu.Unlock()
		close(o.done)
		o.logger.Info().Int("tracks_stopped", stopped).Int("peers_closed", len(peers)).Err(cause).Msg("left room")
	})
}

func (o *Orchestrator) onRelayClosed(err error) {
	if err == nil || !o.alive.Load() {
		return
	}
	// the relay read pump is waiting on us; tear down elsewhere
	go o.teardown(domain.Wrap("relay", domain.ErrSignalingUnreachable, err))
}

// run serializes every state change of the session.
func (o *Orchestrator) run() {
	defer close(o.loopDone)
	for {
		select {
		case fn := <-o.events:
			if !o.alive.Load() {
				continue
			}
			fn()
		case <-o.stop:
			return
		}
	}
}

// post queues fn on the event loop. It reports false once the session is gone.
func (o *Orchestrator) post(fn func()) bool {
	if !o.alive.Load() {
		return false
	}
	select {
	case o.events <- fn:
		return true
	case <-o.stop:
		return false
	}
}

// call runs fn on the event loop and waits for it.
func (o *Orchestrator) call(fn func()) error {
	done := make(chan struct{})
	if !o.post(func() { fn(); close(done) }) {
		return domain.ErrSessionClosed
	}
	select {
	case <-done:
		return nil
	case <-o.loopDone:
		return domain.ErrSessionClosed
	}
}

// deliver adapts a relay handler: events that arrive after teardown are
// dropped here rather than by unsubscribing mid-dispatch.
func (o *Orchestrator) deliver(h func(*protocol.Message)) core.MessageHandler {
	return func(m *protocol.Message) {
		if !o.post(func() { h(m) }) {
			o.stale("session closed", m)
		}
	}
}

func (o *Orchestrator) stale(reason string, m *protocol.Message) {
	metrics.StaleSignalsTotal.Inc()
	o.logger.Debug().
		Err(domain.ErrStaleSignal).
		Str("reason", reason).
		Str("type", string(m.Type)).
		Str("from", string(m.From)).
		Str("id", string(m.ID)).
		Msg("dropped")
}

// Peers returns a snapshot of the registry taken on the event loop.
func (o *Orchestrator) Peers() []app.PeerView {
	var out []app.PeerView
	if err := o.call(func() { out = o.Registry.Views() }); err != nil {
		return o.Registry.Views()
	}
	return out
}

// subscriptions collects relay handles so teardown can release them together.
type subscriptions struct {
	mu   sync.Mutex
	subs []core.Subscription
}

func (s *subscriptions) add(sub core.Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

func (s *subscriptions) release() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
