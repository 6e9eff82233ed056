package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoDevice         = errors.New("no capture device")
	ErrNothingRequested = errors.New("neither audio nor video requested")
)

// Constraints selects which kinds of capture to open.
type Constraints struct {
	Audio bool
	Video bool
}

// Device opens local capture tracks.
type Device interface {
	Open(ctx context.Context, c Constraints) (*LocalStream, error)
}

var (
	opusCodec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	vp8Codec  = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
)

func newTracks(streamID string, c Constraints) (audio, video *LocalTrack, err error) {
	if c.Audio {
		if audio, err = NewLocalTrack(opusCodec, "audio", streamID); err != nil {
			return nil, nil, fmt.Errorf("audio track: %w", err)
		}
	}
	if c.Video {
		if video, err = NewLocalTrack(vp8Codec, "video", streamID); err != nil {
			return nil, nil, fmt.Errorf("video track: %w", err)
		}
	}
	return audio, video, nil
}

func collect(tracks ...*LocalTrack) []*LocalTrack {
	out := make([]*LocalTrack, 0, len(tracks))
	for _, t := range tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// SyntheticDevice produces silent tracks with nothing feeding them.
// Useful for receive-mostly clients and tests.
type SyntheticDevice struct{}

func (SyntheticDevice) Open(_ context.Context, c Constraints) (*LocalStream, error) {
	if !c.Audio && !c.Video {
		return nil, ErrNothingRequested
	}
	streamID := uuid.NewString()
	audio, video, err := newTracks(streamID, c)
	if err != nil {
		return nil, err
	}
	return NewLocalStream(streamID, collect(audio, video)...), nil
}

// FileDevice loops an Ogg/Opus file and an IVF/VP8 file as capture.
type FileDevice struct {
	AudioFile string
	VideoFile string
}

func (d FileDevice) Open(_ context.Context, c Constraints) (*LocalStream, error) {
	if !c.Audio && !c.Video {
		return nil, ErrNothingRequested
	}
	var audioFile, videoFile *os.File
	closeAll := func() {
		if audioFile != nil {
			_ = audioFile.Close()
		}
		if videoFile != nil {
			_ = videoFile.Close()
		}
	}

	var err error
	if c.Audio {
		if d.AudioFile == "" {
			return nil, fmt.Errorf("%w: audio file not configured", ErrNoDevice)
		}
		if audioFile, err = os.Open(d.AudioFile); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
	}
	if c.Video {
		if d.VideoFile == "" {
			closeAll()
			return nil, fmt.Errorf("%w: video file not configured", ErrNoDevice)
		}
		if videoFile, err = os.Open(d.VideoFile); err != nil {
			closeAll()
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
	}

	streamID := uuid.NewString()
	audio, video, err := newTracks(streamID, c)
	if err != nil {
		closeAll()
		return nil, err
	}

	stream := NewLocalStream(streamID, collect(audio, video)...)
	var feeders []func(context.Context)
	if audio != nil {
		feeders = append(feeders, func(ctx context.Context) {
			defer audioFile.Close()
			feedOgg(ctx, audioFile, audio)
		})
	}
	if video != nil {
		feeders = append(feeders, func(ctx context.Context) {
			defer videoFile.Close()
			feedIVF(ctx, videoFile, video)
		})
	}
	stream.startFeeders(feeders...)
	return stream, nil
}

const oggPageDuration = 20 * time.Millisecond

func feedOgg(ctx context.Context, f *os.File, track *LocalTrack) {
	logger := log.With().Str("module", "media.ogg").Str("file", f.Name()).Logger()

	ogg, _, err := oggreader.NewWith(f)
	if err != nil {
		logger.Error().Err(err).Msg("open ogg")
		return
	}
	var lastGranule uint64

	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		page, header, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if _, err = f.Seek(0, io.SeekStart); err != nil {
				logger.Error().Err(err).Msg("rewind ogg")
				return
			}
			if ogg, _, err = oggreader.NewWith(f); err != nil {
				logger.Error().Err(err).Msg("reopen ogg")
				return
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("parse ogg page")
			return
		}

		sampleCount := float64(header.GranulePosition - lastGranule)
		lastGranule = header.GranulePosition
		duration := time.Duration((sampleCount / 48000) * float64(time.Second))
		if err := track.WriteSample(pmedia.Sample{Data: page, Duration: duration}); err != nil {
			logger.Debug().Err(err).Msg("write audio sample")
		}
	}
}

func feedIVF(ctx context.Context, f *os.File, track *LocalTrack) {
	logger := log.With().Str("module", "media.ivf").Str("file", f.Name()).Logger()

	ivf, header, err := ivfreader.NewWith(f)
	if err != nil {
		logger.Error().Err(err).Msg("open ivf")
		return
	}
	frameDuration := time.Second / 30
	if header.TimebaseDenominator != 0 {
		frameDuration = time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, _, err := ivf.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			if _, err = f.Seek(0, io.SeekStart); err != nil {
				logger.Error().Err(err).Msg("rewind ivf")
				return
			}
			if ivf, _, err = ivfreader.NewWith(f); err != nil {
				logger.Error().Err(err).Msg("reopen ivf")
				return
			}
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("parse ivf frame")
			return
		}
		if err := track.WriteSample(pmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
			logger.Debug().Err(err).Msg("write video sample")
		}
	}
}
