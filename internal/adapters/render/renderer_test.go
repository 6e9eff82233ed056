package render

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/media"
)

type testSource struct {
	kind webrtc.RTPCodecType
	pkts chan *rtp.Packet
}

func newOpusSource(buf int) *testSource {
	return &testSource{kind: webrtc.RTPCodecTypeAudio, pkts: make(chan *rtp.Packet, buf)}
}

func newVP8Source() *testSource {
	return &testSource{kind: webrtc.RTPCodecTypeVideo, pkts: make(chan *rtp.Packet)}
}

func (s *testSource) ID() string                { return s.kind.String() }
func (s *testSource) Kind() webrtc.RTPCodecType { return s.kind }
func (s *testSource) Codec() webrtc.RTPCodecParameters {
	if s.kind == webrtc.RTPCodecTypeVideo {
		return webrtc.RTPCodecParameters{RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType: webrtc.MimeTypeVP8, ClockRate: 90000,
		}}
	}
	return webrtc.RTPCodecParameters{RTPCodecCapability: webrtc.RTPCodecCapability{
		MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2,
	}}
}

func (s *testSource) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	p, ok := <-s.pkts
	if !ok {
		return nil, nil, io.EOF
	}
	return p, nil, nil
}

func TestLogRenderer_RecordsUntilPeerRemoved(t *testing.T) {
	dir := t.TempDir()
	r := NewLogRenderer(dir)

	src := newOpusSource(4)
	defer close(src.pkts)
	remote := stream.NewRemote("bob")
	defer remote.Close()
	fwd := remote.AddTrack(context.Background(), src)

	r.OnPeerStreamReady("bob", "Bob", remote)
	r.OnPeerStreamReady("bob", "Bob", remote) // second track event for the same stream
	assert.Equal(t, 1, r.Peers())
	assert.Equal(t, 1, fwd.SinkCount())

	src.pkts <- &rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 960}, Payload: []byte{0xfc, 0x00}}
	require.Eventually(t, func() bool { return fwd.Packets() == 1 }, time.Second, 5*time.Millisecond)

	r.OnPeerRemoved("bob")
	assert.Equal(t, 0, r.Peers())

	files, err := filepath.Glob(filepath.Join(dir, "bob_*_audio.ogg"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "OggS", string(data[:4]))
}

func TestLogRenderer_NoRecordDir(t *testing.T) {
	r := NewLogRenderer("")
	remote := stream.NewRemote("bob")
	defer remote.Close()
	src := newOpusSource(0)
	defer close(src.pkts)
	fwd := remote.AddTrack(context.Background(), src)

	r.OnLocalStreamReady(nil)
	r.OnPeerStreamReady("bob", "Bob", remote)
	r.OnPeerVideoToggled("bob", true)
	assert.Equal(t, 0, fwd.SinkCount())
	assert.Equal(t, 1, r.Peers())

	r.OnPeerRemoved("bob")
	r.OnPeerRemoved("bob")
	assert.Equal(t, 0, r.Peers())
}

func TestLogRenderer_LocalStream(t *testing.T) {
	local, err := media.SyntheticDevice{}.Open(context.Background(), media.Constraints{Audio: true, Video: true})
	require.NoError(t, err)
	defer local.Stop()
	NewLogRenderer("").OnLocalStreamReady(local)
}

func TestNewRecorder_UnsupportedCodec(t *testing.T) {
	_, err := NewRecorder(t.TempDir(), "bob", webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
	})
	assert.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestRecorder_WriteAfterClose(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), "a/b", webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
	})
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(rec.Path()), "a_b_")
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.WriteRTP(&rtp.Packet{}), ErrRecorderClosed)
}

func TestLogRenderer_ReplacedTrackGetsNewRecorder(t *testing.T) {
	dir := t.TempDir()
	r := NewLogRenderer(dir)
	defer r.Close()

	remote := stream.NewRemote("bob")
	defer remote.Close()
	first := newOpusSource(0)
	defer close(first.pkts)
	fwd1 := remote.AddTrack(context.Background(), first)
	r.OnPeerStreamReady("bob", "Bob", remote)
	_, ok := fwd1.Sink(recorderSink)
	require.True(t, ok)

	second := newOpusSource(0)
	defer close(second.pkts)
	fwd2 := remote.AddTrack(context.Background(), second)
	r.OnPeerStreamReady("bob", "Bob", remote)

	s, ok := fwd2.Sink(recorderSink)
	require.True(t, ok)
	assert.Equal(t, stream.SinkOk, s.State())

	files, err := filepath.Glob(filepath.Join(dir, "bob_*_audio.ogg"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestLogRenderer_VideoToggleMutesRecorder(t *testing.T) {
	r := NewLogRenderer(t.TempDir())
	defer r.Close()

	remote := stream.NewRemote("bob")
	defer remote.Close()
	src := newVP8Source()
	defer close(src.pkts)
	fwd := remote.AddTrack(context.Background(), src)
	r.OnPeerStreamReady("bob", "Bob", remote)

	s, ok := fwd.Sink(recorderSink)
	require.True(t, ok)
	assert.Equal(t, stream.SinkOk, s.State())

	r.OnPeerVideoToggled("bob", false)
	assert.Equal(t, stream.SinkMuted, s.State())
	r.OnPeerVideoToggled("bob", true)
	assert.Equal(t, stream.SinkOk, s.State())

	r.OnPeerRemoved("bob")
	assert.Equal(t, stream.SinkDelete, s.State())
}
