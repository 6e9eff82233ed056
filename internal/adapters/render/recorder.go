package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"

	"github.com/dkeye/MeshCall/internal/domain"
)

var (
	ErrUnsupportedCodec = errors.New("render: no container for codec")
	ErrRecorderClosed   = errors.New("render: recorder closed")
)

type rtpFileWriter interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// Recorder writes one remote track to disk: Opus into ogg, VP8 into ivf.
type Recorder struct {
	path string

	mu     sync.Mutex
	w      rtpFileWriter
	closed bool
}

func NewRecorder(dir string, peer domain.PeerID, codec webrtc.RTPCodecParameters) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("render: record dir: %w", err)
	}
	base := fmt.Sprintf("%s_%d", fileSafe(string(peer)), time.Now().UnixNano())

	var (
		w    rtpFileWriter
		path string
		err  error
	)
	switch {
	case strings.EqualFold(codec.MimeType, webrtc.MimeTypeOpus):
		path = filepath.Join(dir, base+"_audio.ogg")
		channels := codec.Channels
		if channels == 0 {
			channels = 2
		}
		w, err = oggwriter.New(path, codec.ClockRate, channels)
	case strings.EqualFold(codec.MimeType, webrtc.MimeTypeVP8):
		path = filepath.Join(dir, base+"_video.ivf")
		w, err = ivfwriter.New(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec.MimeType)
	}
	if err != nil {
		return nil, fmt.Errorf("render: open %s: %w", path, err)
	}
	return &Recorder{path: path, w: w}, nil
}

func (r *Recorder) Path() string { return r.path }

// WriteRTP is called from the forwarder goroutine. After Close it fails so
// the forwarder drops the sink.
func (r *Recorder) WriteRTP(pkt *rtp.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	return r.w.WriteRTP(pkt)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.w.Close()
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
