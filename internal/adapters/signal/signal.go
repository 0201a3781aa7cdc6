package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/app"
	"github.com/hireloop/liveroom/internal/config"
	"github.com/hireloop/liveroom/internal/core"
	"github.com/hireloop/liveroom/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// LiveWSController owns the websocket side of the live interview protocol:
// upgrades, pump lifecycles and inbound dispatch. All room semantics live
// behind the coordinator.
type LiveWSController struct {
	Coord   *app.Coordinator
	Cfg     *config.Config
	Limiter *JoinRateLimiter
}

func NewLiveWSController(coord *app.Coordinator, cfg *config.Config) *LiveWSController {
	return &LiveWSController{
		Coord:   coord,
		Cfg:     cfg,
		Limiter: NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval),
	}
}

// WsConn wraps one websocket connection with a buffered outbound queue.
// TrySend never blocks; a full queue is reported as backpressure and left
// to the room's policy.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleLive upgrades the request and starts the connection's pumps. Every
// upgrade gets a fresh conn id; reconnect continuity comes from the stable
// participantId presented at join, not from the transport.
func (ctl *LiveWSController) HandleLive(ctx context.Context, c *gin.Context) {
	sid := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(sid)).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Register(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
