package http

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/dkeye/remote-relay/internal/adapters/signal"
	"github.com/dkeye/remote-relay/internal/app/orch"
	"github.com/dkeye/remote-relay/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SetupRouter wires the control page, the signaling socket and the small
// read-only API onto one engine.
//   - /ws upgrades to the signaling socket
//   - /api/* is read-only JSON
//   - everything else is served from cfg.StaticPath
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ctrl := signal.NewSignalWSController(
		o,
		signal.NewConnRateLimiter(cfg.ConnRateLimit, cfg.ConnRateWindow),
		signal.OptionsFromConfig(cfg),
	)
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": o.Registry.Len()})
	})

	api := r.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.ListRooms()})
	})
	api.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": cfg.WebRTCICEServers()})
	})

	r.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(cfg.StaticPath, "index.html"))
	})
	r.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticPath))))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
