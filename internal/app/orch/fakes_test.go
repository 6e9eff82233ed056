package orch

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// journal records teardown-relevant calls across fakes in order.
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(step string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.steps = append(j.steps, step)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.steps...)
}

type fakeSub struct {
	relay  *fakeRelay
	kind   protocol.Kind
	fn     core.MessageHandler
	closed func(error)
	once   sync.Once
	active bool
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() {
		s.relay.mu.Lock()
		s.active = false
		s.relay.mu.Unlock()
		s.relay.journal.add("unsubscribe")
	})
}

// fakeRelay is an in-memory core.RelayClient. With a hub it behaves like the
// real relay; without one it just records what was sent.
type fakeRelay struct {
	hub     *fakeHub
	journal *journal

	connectErr  error
	registerErr error

	mu        sync.Mutex
	self      domain.PeerID
	room      domain.RoomID
	name      string
	subs      []*fakeSub
	sent      []*protocol.Message
	connected bool
	closed    bool
}

func (r *fakeRelay) Connect(context.Context) error {
	if r.connectErr != nil {
		return r.connectErr
	}
	r.mu.Lock()
	r.connected = true
	r.mu.Unlock()
	return nil
}

func (r *fakeRelay) Register(id domain.PeerID, name string, room domain.RoomID) error {
	if r.registerErr != nil {
		return r.registerErr
	}
	r.mu.Lock()
	r.self, r.name, r.room = id, name, room
	r.mu.Unlock()
	r.record(protocol.NewRegister(id, name, room))
	if r.hub != nil {
		r.hub.register(r)
	}
	return nil
}

func (r *fakeRelay) SendSignal(to domain.PeerID, p protocol.SignalPayload) error {
	r.mu.Lock()
	self := r.self
	r.mu.Unlock()
	m := protocol.NewSignal(to, self, p)
	r.record(m)
	if r.hub != nil {
		r.hub.forward(m)
	}
	return nil
}

func (r *fakeRelay) SendVideoToggled(enabled bool) error {
	r.mu.Lock()
	self := r.self
	r.mu.Unlock()
	m := protocol.NewVideoToggled(self, enabled)
	r.record(m)
	if r.hub != nil {
		r.hub.broadcast(self, m)
	}
	return nil
}

func (r *fakeRelay) record(m *protocol.Message) {
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
}

func (r *fakeRelay) Subscribe(kind protocol.Kind, fn core.MessageHandler) core.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSub{relay: r, kind: kind, fn: fn, active: true}
	r.subs = append(r.subs, s)
	return s
}

func (r *fakeRelay) OnClosed(fn func(error)) core.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &fakeSub{relay: r, closed: fn, active: true}
	r.subs = append(r.subs, s)
	return s
}

func (r *fakeRelay) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.journal.add("relay-close")
	if r.hub != nil {
		r.hub.leave(r)
	}
	return nil
}

// deliver dispatches m to active subscribers, like the read pump does.
func (r *fakeRelay) deliver(m *protocol.Message) {
	for _, fn := range r.handlers(m.Type, true) {
		fn(m)
	}
}

// handlers returns subscribers for kind; activeOnly=false includes released ones.
func (r *fakeRelay) handlers(kind protocol.Kind, activeOnly bool) []core.MessageHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.MessageHandler
	for _, s := range r.subs {
		if s.fn != nil && s.kind == kind && (s.active || !activeOnly) {
			out = append(out, s.fn)
		}
	}
	return out
}

func (r *fakeRelay) drop(err error) {
	r.mu.Lock()
	var fns []func(error)
	for _, s := range r.subs {
		if s.closed != nil && s.active {
			fns = append(fns, s.closed)
		}
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (r *fakeRelay) activeSubs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subs {
		if s.active {
			n++
		}
	}
	return n
}

func (r *fakeRelay) sentOf(kind protocol.Kind) []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*protocol.Message
	for _, m := range r.sent {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeRelay) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// fakeHub is a single-room relay.
type fakeHub struct {
	mu      sync.Mutex
	members map[domain.PeerID]*fakeRelay
	video   map[domain.PeerID]bool
}

func newFakeHub() *fakeHub {
	return &fakeHub{members: make(map[domain.PeerID]*fakeRelay), video: make(map[domain.PeerID]bool)}
}

// register admits r the way the relay does: the roster, the introduction
// and every peer-joined happen under one lock.
func (h *fakeHub) register(r *fakeRelay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	roster := make(map[domain.PeerID]domain.RosterEntry, len(h.members))
	others := make([]*fakeRelay, 0, len(h.members))
	for id, m := range h.members {
		roster[id] = domain.RosterEntry{DisplayName: m.name, VideoEnabled: h.video[id]}
		others = append(others, m)
	}
	h.members[r.self] = r

	r.deliver(protocol.NewIntroduction(roster))
	for _, o := range others {
		o.deliver(protocol.NewPeerJoined(r.self, r.name))
	}
}

func (h *fakeHub) forward(m *protocol.Message) {
	h.mu.Lock()
	to, ok := h.members[m.To]
	h.mu.Unlock()
	if ok {
		to.deliver(m)
	}
}

func (h *fakeHub) broadcast(from domain.PeerID, m *protocol.Message) {
	h.mu.Lock()
	if m.Type == protocol.KindVideoToggled {
		h.video[from] = *m.Enabled
	}
	var others []*fakeRelay
	for id, r := range h.members {
		if id != from {
			others = append(others, r)
		}
	}
	h.mu.Unlock()
	for _, r := range others {
		r.deliver(m)
	}
}

func (h *fakeHub) leave(r *fakeRelay) {
	h.mu.Lock()
	if h.members[r.self] != r {
		h.mu.Unlock()
		return
	}
	delete(h.members, r.self)
	h.mu.Unlock()
	h.broadcast(r.self, protocol.NewPeerLeft(r.self))
}

// fakeConn negotiates instantly: an offer is answered and both sides report
// connected once the answer is applied.
type fakeConn struct {
	peer    domain.PeerID
	local   *media.LocalStream
	journal *journal
	failOn  string

	mu       sync.Mutex
	offers   int
	handled  []protocol.SignalPayload
	closed   bool
	onSignal func(protocol.SignalPayload)
	onStream func(*stream.Remote)
	onState  func(core.LinkState)

	localStoppedAtClose bool
}

func (c *fakeConn) Offer() error {
	c.mu.Lock()
	c.offers++
	fn := c.onSignal
	c.mu.Unlock()
	if fn != nil {
		fn(protocol.SignalPayload{SDP: &protocol.SessionDescription{Type: "offer", SDP: "v=0 offer"}})
	}
	return nil
}

func (c *fakeConn) HandleSignal(p protocol.SignalPayload) error {
	c.mu.Lock()
	c.handled = append(c.handled, p)
	onSignal, onState := c.onSignal, c.onState
	c.mu.Unlock()
	if c.failOn != "" && p.Kind() == c.failOn {
		return errors.New("bad " + c.failOn)
	}
	switch {
	case p.IsOffer():
		if onSignal != nil {
			onSignal(protocol.SignalPayload{SDP: &protocol.SessionDescription{Type: "answer", SDP: "v=0 answer"}})
		}
		if onState != nil {
			onState(core.LinkConnected)
		}
	case p.IsAnswer():
		if onState != nil {
			onState(core.LinkConnected)
		}
	}
	return nil
}

func (c *fakeConn) OnSignal(fn func(protocol.SignalPayload)) {
	c.mu.Lock()
	c.onSignal = fn
	c.mu.Unlock()
}

func (c *fakeConn) OnStream(fn func(*stream.Remote)) {
	c.mu.Lock()
	c.onStream = fn
	c.mu.Unlock()
}

func (c *fakeConn) OnStateChange(fn func(core.LinkState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.localStoppedAtClose = c.local == nil || c.local.Stopped()
	c.journal.add("close-conn")
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) emitStream(r *stream.Remote) {
	c.mu.Lock()
	fn := c.onStream
	c.mu.Unlock()
	fn(r)
}

func (c *fakeConn) emitState(s core.LinkState) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	fn(s)
}

func (c *fakeConn) offerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offers
}

func (c *fakeConn) handledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handled)
}

type fakeFactory struct {
	journal *journal
	err     error
	failOn  map[domain.PeerID]string

	mu    sync.Mutex
	conns map[domain.PeerID][]*fakeConn
	local []*media.LocalStream
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[domain.PeerID][]*fakeConn), failOn: make(map[domain.PeerID]string)}
}

func (f *fakeFactory) NewConnection(peer domain.PeerID, local *media.LocalStream) (core.Connection, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConn{peer: peer, local: local, journal: f.journal, failOn: f.failOn[peer]}
	f.conns[peer] = append(f.conns[peer], c)
	f.local = append(f.local, local)
	return c, nil
}

func (f *fakeFactory) conn(peer domain.PeerID) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs := f.conns[peer]
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

func (f *fakeFactory) created(peer domain.PeerID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns[peer])
}

func (f *fakeFactory) all() []*fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeConn
	for _, cs := range f.conns {
		out = append(out, cs...)
	}
	return out
}

// recordingRenderer is a plain core.Renderer for multi-session scenarios.
type recordingRenderer struct {
	mu      sync.Mutex
	removed []domain.PeerID
}

func (r *recordingRenderer) OnLocalStreamReady(*media.LocalStream)                 {}
func (r *recordingRenderer) OnPeerStreamReady(domain.PeerID, string, *stream.Remote) {}
func (r *recordingRenderer) OnPeerVideoToggled(domain.PeerID, bool)                {}
func (r *recordingRenderer) OnPeerRemoved(id domain.PeerID) {
	r.mu.Lock()
	r.removed = append(r.removed, id)
	r.mu.Unlock()
}

func sortedIDs(ids []domain.PeerID) []domain.PeerID {
	out := append([]domain.PeerID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
