// Package render turns mesh events into log lines and, optionally, files on
// disk. It stands in for a view layer.
package render

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
)

const recorderSink = "recorder"

// recording ties a Recorder to the forwarder it was attached to; a replaced
// forwarder needs a fresh file.
type recording struct {
	fwd *stream.Forwarder
	rec *Recorder
}

type tile struct {
	name      string
	remote    *stream.Remote
	videoOff  bool
	recorders map[webrtc.RTPCodecType]*recording
}

// LogRenderer logs every rendering event. With a record dir it also attaches
// a Recorder to each remote track.
type LogRenderer struct {
	recordDir string

	mu    sync.Mutex
	tiles map[domain.PeerID]*tile
}

func NewLogRenderer(recordDir string) *LogRenderer {
	return &LogRenderer{
		recordDir: recordDir,
		tiles:     make(map[domain.PeerID]*tile),
	}
}

func (r *LogRenderer) OnLocalStreamReady(local *media.LocalStream) {
	if local == nil {
		log.Info().Str("module", "render").Msg("joined without local media")
		return
	}
	ev := log.Info().Str("module", "render").Str("stream", local.ID())
	for _, t := range local.Tracks() {
		ev = ev.Str(t.Kind().String(), t.ID())
	}
	ev.Msg("local stream ready")
}

func (r *LogRenderer) OnPeerStreamReady(peer domain.PeerID, displayName string, remote *stream.Remote) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tiles[peer]
	if !ok {
		t = &tile{recorders: make(map[webrtc.RTPCodecType]*recording)}
		r.tiles[peer] = t
	}
	t.name = displayName
	if t.remote != remote {
		t.closeRecorders()
		t.remote = remote
	}

	kinds := remote.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	log.Info().Str("module", "render").Str("peer", string(peer)).Str("name", displayName).Strs("kinds", names).Msg("peer stream ready")

	if r.recordDir == "" {
		return
	}
	for _, k := range kinds {
		fwd, ok := remote.Forwarder(k)
		if !ok {
			continue
		}
		if cur, ok := t.recorders[k]; ok {
			if cur.fwd == fwd {
				continue
			}
			t.closeRecording(k, cur)
		}
		rec, err := NewRecorder(r.recordDir, peer, fwd.Src.Codec())
		if err != nil {
			log.Warn().Err(err).Str("module", "render").Str("peer", string(peer)).Str("kind", k.String()).Msg("recorder not started")
			continue
		}
		sink := stream.NewSink(rec)
		if k == webrtc.RTPCodecTypeVideo && t.videoOff {
			sink.MarkMuted()
		}
		fwd.Attach(recorderSink, sink)
		t.recorders[k] = &recording{fwd: fwd, rec: rec}
		log.Info().Str("module", "render").Str("peer", string(peer)).Str("file", rec.Path()).Msg("recording")
	}
}

func (r *LogRenderer) OnPeerRemoved(peer domain.PeerID) {
	r.mu.Lock()
	t, ok := r.tiles[peer]
	delete(r.tiles, peer)
	r.mu.Unlock()
	if ok {
		t.closeRecorders()
	}
	log.Info().Str("module", "render").Str("peer", string(peer)).Msg("peer removed")
}

func (r *LogRenderer) OnPeerVideoToggled(peer domain.PeerID, enabled bool) {
	r.mu.Lock()
	if t, ok := r.tiles[peer]; ok {
		t.videoOff = !enabled
		if _, ok := t.recorders[webrtc.RTPCodecTypeVideo]; ok {
			// keep the file but skip frames while the camera is off
			t.remote.SetSinkMuted(webrtc.RTPCodecTypeVideo, recorderSink, !enabled)
		}
	}
	r.mu.Unlock()
	log.Info().Str("module", "render").Str("peer", string(peer)).Bool("enabled", enabled).Msg("peer video toggled")
}

// Peers returns how many peers currently have a tile.
func (r *LogRenderer) Peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tiles)
}

// Close stops every recorder.
func (r *LogRenderer) Close() {
	r.mu.Lock()
	tiles := r.tiles
	r.tiles = make(map[domain.PeerID]*tile)
	r.mu.Unlock()
	for _, t := range tiles {
		t.closeRecorders()
	}
}

func (t *tile) closeRecorders() {
	for k, cur := range t.recorders {
		t.closeRecording(k, cur)
	}
}

func (t *tile) closeRecording(kind webrtc.RTPCodecType, cur *recording) {
	cur.fwd.Detach(recorderSink)
	if err := cur.rec.Close(); err != nil {
		log.Warn().Err(err).Str("module", "render").Str("file", cur.rec.Path()).Msg("recorder close")
	}
	delete(t.recorders, kind)
}
