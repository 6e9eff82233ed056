package rtc

import (
	"context"
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/core"
	"github.com/dkeye/MeshCall/internal/domain"
	"github.com/dkeye/MeshCall/internal/media"
)

type FactoryConfig struct {
	ICEServers []webrtc.ICEServer
	// IncludeLoopback lets two connections in one process reach each other.
	IncludeLoopback bool
}

// Factory builds peer connections that share one pion API: codecs,
// interceptors and logging are configured once.
type Factory struct {
	ctx    context.Context
	api    *webrtc.API
	config webrtc.Configuration
}

func NewFactory(ctx context.Context, cfg FactoryConfig) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{LoggerFactory: NewLoggerFactory()}
	if cfg.IncludeLoopback {
		se.SetIncludeLoopbackCandidate(true)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(se),
	)

	servers := make([]string, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		servers = append(servers, s.URLs...)
	}
	log.Info().Str("module", "webrtc").Strs("ice_servers", servers).Msg("peer connection factory ready")

	return &Factory{
		ctx:    ctx,
		api:    api,
		config: webrtc.Configuration{ICEServers: cfg.ICEServers},
	}, nil
}

// NewConnection implements core.ConnectionFactory.
func (f *Factory) NewConnection(peer domain.PeerID, local *media.LocalStream) (core.Connection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c := newConnection(f.ctx, pc, peer)
	if err := c.attachLocal(local); err != nil {
		_ = pc.Close()
		return nil, err
	}
	c.start()
	return c, nil
}
