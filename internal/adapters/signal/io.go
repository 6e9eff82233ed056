package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/MeshCall/internal/metrics"
	"github.com/dkeye/MeshCall/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, st *memberState) {
	c := st.conn
	defer func() {
		log.Info().Str("module", "signal").Str("sid", st.sid).Msg("readPump closing")
		ctl.handleDisconnect(st)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(st.key)
		}
		c.Close()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", st.sid).Msg("readPump ctx done")
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", st.sid).Msg("readPump read error")
			}
			return
		}
		// any inbound frame proves liveness
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleFrame(st, data)
	}
}

func (ctl *SignalWSController) handleFrame(st *memberState, data []byte) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(st.key) {
		metrics.RelayRejectedTotal.WithLabelValues("rate_limited").Inc()
		ctl.sendError(st.conn, "rate limited")
		return
	}

	m, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", st.sid).Msg("bad frame")
		metrics.RelayRejectedTotal.WithLabelValues("malformed").Inc()
		ctl.sendError(st.conn, err.Error())
		return
	}
	metrics.RelayMessagesTotal.WithLabelValues(string(m.Type)).Inc()

	switch m.Type {
	case protocol.KindRegister:
		ctl.handleRegister(st, m)
	case protocol.KindSignal:
		ctl.handleForward(st, m)
	case protocol.KindVideoToggled:
		ctl.handleVideoToggled(st, m)
	default:
		log.Warn().Str("module", "signal").Str("type", string(m.Type)).Msg("unexpected kind from client")
		metrics.RelayRejectedTotal.WithLabelValues("unexpected").Inc()
		ctl.sendError(st.conn, "unexpected message kind "+string(m.Type))
	}
}

func (ctl *SignalWSController) encode(m *protocol.Message) ([]byte, bool) {
	data, err := protocol.Encode(m)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", string(m.Type)).Msg("encode")
		return nil, false
	}
	return data, true
}

func (ctl *SignalWSController) sendMessage(c *WsSignalConn, m *protocol.Message) {
	data, ok := ctl.encode(m)
	if !ok {
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("type", string(m.Type)).Msg("send dropped")
	}
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, msg string) {
	ctl.sendMessage(c, protocol.NewError(msg))
}
