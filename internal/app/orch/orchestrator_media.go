package orch

import (
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/MeshCall/internal/app/stream"
	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/protocol"
)

// onStream publishes remote media. A later stream for the same peer replaces
// the earlier one.
func (o *Orchestrator) onStream(id domain.PeerID, conn core.Connection, remote *stream.Remote) {
	rec, ok := o.current(id, conn)
	if !ok {
		return
	}
	o.Registry.SetRemote(id, remote)
	remote.SetKindMuted(webrtc.RTPCodecTypeVideo, !rec.VideoEnabled)
	o.logger.Info().Str("peer", string(id)).Int("tracks", len(remote.Kinds())).Msg("peer stream ready")
	o.renderer.OnPeerStreamReady(id, rec.DisplayName, remote)
}

func (o *Orchestrator) onPeerVideoToggled(m *protocol.Message) {
	if m.ID == o.self.ID {
		return
	}
	rec, ok := o.Registry.SetVideoEnabled(m.ID, *m.Enabled)
	if !ok {
		o.stale("unknown peer", m)
		return
	}
	if rec.Remote != nil {
		rec.Remote.SetKindMuted(webrtc.RTPCodecTypeVideo, !*m.Enabled)
	}
	o.renderer.OnPeerVideoToggled(m.ID, *m.Enabled)
}

// SetAudioEnabled flips the local audio tracks. Audio is not announced to peers.
func (o *Orchestrator) SetAudioEnabled(enabled bool) error {
	_, err := o.setAudio(func(bool) bool { return enabled })
	return err
}

func (o *Orchestrator) ToggleAudio() (bool, error) {
	return o.setAudio(func(cur bool) bool { return !cur })
}

// SetVideoEnabled flips the local video tracks and, on change, tells the
// room so peers can swap video for a placeholder without renegotiating.
func (o *Orchestrator) SetVideoEnabled(enabled bool) error {
	_, err := o.setVideo(func(bool) bool { return enabled })
	return err
}

func (o *Orchestrator) ToggleVideo() (bool, error) {
	return o.setVideo(func(cur bool) bool { return !cur })
}

func (o *Orchestrator) setAudio(next func(cur bool) bool) (bool, error) {
	var enabled bool
	err := o.call(func() {
		enabled = next(o.audioEnabled.Load())
		o.audioEnabled.Store(enabled)
		o.guard.SetAudioEnabled(enabled)
		o.logger.Info().Bool("audio", enabled).Msg("local audio")
	})
	return enabled, err
}

func (o *Orchestrator) setVideo(next func(cur bool) bool) (bool, error) {
	var (
		enabled bool
		sendErr error
	)
	err := o.call(func() {
		cur := o.videoEnabled.Load()
		enabled = next(cur)
		if enabled == cur {
			return
		}
		o.videoEnabled.Store(enabled)
		o.guard.SetVideoEnabled(enabled)
		o.logger.Info().Bool("video", enabled).Msg("local video")
		sendErr = o.relay.SendVideoToggled(enabled)
	})
	if err != nil {
		return enabled, err
	}
	return enabled, sendErr
}
