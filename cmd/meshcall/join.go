package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/MeshCall/internal/adapters/relay"
	"github.com/dkeye/MeshCall/internal/adapters/render"
	"github.com/dkeye/MeshCall/internal/adapters/rtc"
	"github.com/dkeye/MeshCall/internal/app/orch"
	"github.com/dkeye/MeshCall/internal/config"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
)

var joinCmd = &cobra.Command{
	Use:   "join [room]",
	Short: "Join a room and stay until interrupted",
	Long: `Join a room on the relay. While running, type on stdin:
  a  toggle microphone
  v  toggle camera
  p  list peers
  q  leave

Examples:
  meshcall join standup --name alice
  meshcall join standup --audio-file voice.ogg --video-file cam.ivf --record-dir ./rec`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	f := joinCmd.Flags()
	f.String("relay", "", "relay websocket URL")
	f.String("room", "", "room to join")
	f.String("name", "", "display name")
	f.String("id", "", "peer id, random when empty")
	f.String("log-level", "", "trace, debug, info, warn, error")
	f.String("record-dir", "", "write remote tracks to this directory")
	f.String("ice-servers", "", "comma-separated STUN/TURN servers")
	f.String("ice-username", "", "TURN username")
	f.String("ice-credential", "", "TURN credential")
	f.Bool("audio", true, "send audio")
	f.Bool("video", true, "send video")
	f.String("audio-file", "", "Ogg/Opus file to loop as microphone")
	f.String("video-file", "", "IVF/VP8 file to loop as camera")
	f.Bool("allow-no-media", true, "join receive-only when media is unavailable")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Room = args[0]
	}
	zerolog.SetGlobalLevel(cfg.Level())

	self, err := domain.NewIdentity(domain.PeerID(cfg.PeerID), cfg.Name)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	room := domain.RoomID(cfg.Room)
	if err := room.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory, err := rtc.NewFactory(ctx, rtc.FactoryConfig{ICEServers: cfg.ICEServers()})
	if err != nil {
		return err
	}

	var device media.Device = media.SyntheticDevice{}
	if cfg.Media.AudioFile != "" || cfg.Media.VideoFile != "" {
		device = media.FileDevice{AudioFile: cfg.Media.AudioFile, VideoFile: cfg.Media.VideoFile}
	}
	renderer := render.NewLogRenderer(cfg.RecordDir)
	defer renderer.Close()

	session := orch.New(orch.Options{
		Identity:     *self,
		Room:         room,
		Media:        media.Constraints{Audio: cfg.Media.Audio, Video: cfg.Media.Video},
		AllowNoMedia: cfg.Media.AllowNoMedia,
	}, relay.NewClient(relay.Options{URL: cfg.RelayURL, PingPeriod: cfg.PingPeriod}), factory, media.NewGuard(device), renderer)

	if err := session.Join(ctx); err != nil {
		return err
	}
	log.Info().Str("room", string(room)).Str("id", string(self.ID)).Str("name", self.DisplayName).Msg("joined")

	go readCommands(session)

	select {
	case <-ctx.Done():
		session.Leave()
	case <-session.Done():
	}
	if err := session.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("left room")
	return nil
}

func readCommands(session *orch.Orchestrator) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "a":
			if on, err := session.ToggleAudio(); err != nil {
				log.Warn().Err(err).Msg("toggle audio")
			} else {
				log.Info().Bool("enabled", on).Msg("audio")
			}
		case "v":
			if on, err := session.ToggleVideo(); err != nil {
				log.Warn().Err(err).Msg("toggle video")
			} else {
				log.Info().Bool("enabled", on).Msg("video")
			}
		case "p":
			for _, p := range session.Peers() {
				log.Info().Str("peer", string(p.ID)).Str("name", p.DisplayName).Str("state", p.State.String()).Bool("stream", p.HasStream).Bool("video", p.VideoEnabled).Msg("peer")
			}
		case "q":
			session.Leave()
			return
		case "":
		default:
			fmt.Fprintln(os.Stderr, "commands: a (audio), v (video), p (peers), q (quit)")
		}
	}
}
