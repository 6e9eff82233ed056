package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	id   string
	kind webrtc.RTPCodecType
	pkts chan *rtp.Packet
}

func newChanSource(id string, kind webrtc.RTPCodecType) *chanSource {
	return &chanSource{id: id, kind: kind, pkts: make(chan *rtp.Packet, 16)}
}

func (s *chanSource) ID() string                { return s.id }
func (s *chanSource) Kind() webrtc.RTPCodecType { return s.kind }
func (s *chanSource) Codec() webrtc.RTPCodecParameters {
	return webrtc.RTPCodecParameters{RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}}
}

func (s *chanSource) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	p, ok := <-s.pkts
	if !ok {
		return nil, nil, io.EOF
	}
	return p, nil, nil
}

type recordWriter struct {
	mu   sync.Mutex
	seqs []uint16
	err  error
}

func (w *recordWriter) WriteRTP(p *rtp.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.seqs = append(w.seqs, p.SequenceNumber)
	return nil
}

func (w *recordWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seqs)
}

func pkt(seq uint16) *rtp.Packet {
	return &rtp.Packet{Header: rtp.Header{SequenceNumber: seq}}
}

func TestRemote_FanOut(t *testing.T) {
	r := NewRemote("b")
	src := newChanSource("v", webrtc.RTPCodecTypeVideo)
	fw := r.AddTrack(context.Background(), src)

	w1, w2 := &recordWriter{}, &recordWriter{}
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeVideo, "one", w1))
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeVideo, "two", w2))
	assert.False(t, r.AttachSink(webrtc.RTPCodecTypeAudio, "one", w1))

	src.pkts <- pkt(1)
	src.pkts <- pkt(2)
	assert.Eventually(t, func() bool { return w1.count() == 2 && w2.count() == 2 }, time.Second, 5*time.Millisecond)

	close(src.pkts)
	select {
	case <-fw.Done():
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop on EOF")
	}
}

func TestRemote_FailingSinkIsDropped(t *testing.T) {
	r := NewRemote("b")
	src := newChanSource("a", webrtc.RTPCodecTypeAudio)
	fw := r.AddTrack(context.Background(), src)

	bad := &recordWriter{err: errors.New("closed pipe")}
	good := &recordWriter{}
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeAudio, "bad", bad))
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeAudio, "good", good))

	src.pkts <- pkt(1)
	assert.Eventually(t, func() bool { return fw.SinkCount() == 1 }, time.Second, 5*time.Millisecond)

	src.pkts <- pkt(2)
	assert.Eventually(t, func() bool { return good.count() == 2 }, time.Second, 5*time.Millisecond)
	close(src.pkts)
}

func TestRemote_MuteSurvivesReplacement(t *testing.T) {
	r := NewRemote("b")
	first := newChanSource("v1", webrtc.RTPCodecTypeVideo)
	fw1 := r.AddTrack(context.Background(), first)

	r.SetKindMuted(webrtc.RTPCodecTypeVideo, true)
	assert.True(t, fw1.Muted())

	w := &recordWriter{}
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeVideo, "w", w))
	first.pkts <- pkt(1)
	assert.Eventually(t, func() bool { return fw1.Packets() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, w.count())

	second := newChanSource("v2", webrtc.RTPCodecTypeVideo)
	fw2 := r.AddTrack(context.Background(), second)
	assert.True(t, fw2.Muted())
	got, ok := r.Forwarder(webrtc.RTPCodecTypeVideo)
	require.True(t, ok)
	assert.Same(t, fw2, got)

	r.SetKindMuted(webrtc.RTPCodecTypeVideo, false)
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeVideo, "w", w))
	second.pkts <- pkt(7)
	assert.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)

	close(first.pkts)
	close(second.pkts)
}

func TestRemote_CloseIsIdempotent(t *testing.T) {
	r := NewRemote("b")
	a := newChanSource("a", webrtc.RTPCodecTypeAudio)
	v := newChanSource("v", webrtc.RTPCodecTypeVideo)
	r.AddTrack(context.Background(), a)
	r.AddTrack(context.Background(), v)
	assert.Equal(t, []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo}, r.Kinds())

	r.Close()
	r.Close()
	assert.Empty(t, r.Kinds())

	late := r.AddTrack(context.Background(), newChanSource("x", webrtc.RTPCodecTypeVideo))
	<-late.Done()
	assert.Empty(t, r.Kinds())

	close(a.pkts)
	close(v.pkts)
}

func TestRemote_SinkMuteAndDetach(t *testing.T) {
	r := NewRemote("b")
	src := newChanSource("v", webrtc.RTPCodecTypeVideo)
	fw := r.AddTrack(context.Background(), src)
	defer close(src.pkts)

	rec, view := &recordWriter{}, &recordWriter{}
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeVideo, "rec", rec))
	require.True(t, r.AttachSink(webrtc.RTPCodecTypeVideo, "view", view))

	require.True(t, r.SetSinkMuted(webrtc.RTPCodecTypeVideo, "rec", true))
	assert.False(t, r.SetSinkMuted(webrtc.RTPCodecTypeVideo, "missing", true))
	assert.False(t, r.SetSinkMuted(webrtc.RTPCodecTypeAudio, "rec", true))
	s, ok := fw.Sink("rec")
	require.True(t, ok)
	assert.Equal(t, SinkMuted, s.State())

	src.pkts <- pkt(1)
	require.Eventually(t, func() bool { return view.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Equal(t, 2, fw.SinkCount())

	require.True(t, r.SetSinkMuted(webrtc.RTPCodecTypeVideo, "rec", false))
	assert.Equal(t, SinkOk, s.State())
	src.pkts <- pkt(2)
	require.Eventually(t, func() bool { return view.count() == 2 && rec.count() == 1 }, time.Second, 5*time.Millisecond)

	fw.Detach("rec")
	assert.False(t, r.SetSinkMuted(webrtc.RTPCodecTypeVideo, "rec", false))
	src.pkts <- pkt(3)
	require.Eventually(t, func() bool { return fw.SinkCount() == 1 && view.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.count())
	_, ok = fw.Sink("rec")
	assert.False(t, ok)
}
