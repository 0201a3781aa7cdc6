package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/core"
	"github.com/hireloop/liveroom/internal/domain"
	"github.com/hireloop/liveroom/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *LiveWSController) writePump(ctx context.Context, c *WsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *LiveWSController) readPump(ctx context.Context, sid domain.ConnID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump closing")
		ctl.Coord.OnDisconnect(sid)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	pongWait := ctl.Cfg.PingPeriod + writeWait*2
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handle(sid, c, data)
		}
	}
}

// handle decodes one inbound message and hands it to the coordinator.
// Malformed and unknown events are dropped without disturbing the
// connection; the join rate limit is the only transport-level admission.
func (ctl *LiveWSController) handle(sid domain.ConnID, c *WsConn, data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownEvent) {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("unknown event")
		} else {
			log.Error().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("bad payload")
		}
		ctl.sendError(c, "bad_payload")
		return
	}

	if join, ok := ev.(*protocol.Join); ok {
		if !ctl.Limiter.Allow(domain.ParticipantID(join.ParticipantID)) {
			log.Warn().Str("module", "signal").Str("participant", join.ParticipantID).Msg("join rate limited")
			ctl.sendError(c, "too_many_joins")
			return
		}
	}

	ctl.Coord.Dispatch(sid, ev)
}

func (ctl *LiveWSController) sendError(c *WsConn, msg string) {
	frame, err := protocol.Encode(&protocol.Error{Type: "error", Error: msg})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode error frame")
		return
	}
	_ = c.TrySend(core.Frame(frame))
}
