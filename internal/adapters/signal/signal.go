package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/remote-relay/internal/app/orch"
	"github.com/dkeye/remote-relay/internal/config"
	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Options tunes the per-connection pumps.
type Options struct {
	ReadLimit      int64
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	AllowedOrigins []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReadLimit:      cfg.ReadLimit,
		SendBuffer:     cfg.SendBuffer,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *ConnRateLimiter

	opts     Options
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, limiter *ConnRateLimiter, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Orch:    o,
		Limiter: limiter,
		opts:    opts,
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	return ctl
}

// checkOrigin allows any origin unless an allow-list is configured. Requests
// without an Origin header are not from browsers and always pass.
func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if len(ctl.opts.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	return lo.Contains(ctl.opts.AllowedOrigins, origin)
}

// wsSignalConn is the core.SignalConnection of one websocket. Frames queue in
// send and are written by writePump only.
type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// HandleSignal upgrades the request and runs the connection until the socket
// fails or ctx ends.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ip := c.ClientIP()
	if ctl.Limiter != nil && !ctl.Limiter.Allow(ip) {
		log.Warn().Str("module", "signal").Str("ip", ip).Msg("connection rate exceeded")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many connections"})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("ip", ip).Msg("ws upgrade")
		return
	}

	id := domain.ConnectionID(uuid.NewString())
	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	ctx, cancel := context.WithCancel(ctx)
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("ip", ip).Msg("new WS connection")

	ctl.Orch.Connect(id, conn, func() {
		cancel()
		conn.Close()
	})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
