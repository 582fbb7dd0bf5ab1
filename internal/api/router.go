package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/gatewatch/internal/api/handlers"
	"github.com/your-org/gatewatch/internal/api/ws"
	"github.com/your-org/gatewatch/internal/auth"
	"github.com/your-org/gatewatch/internal/monitor"
	"github.com/your-org/gatewatch/internal/notify"
	"github.com/your-org/gatewatch/internal/storage"
)

type RouterConfig struct {
	APIKey    string
	DB        *storage.PostgresStore
	MinIO     *storage.MinIOStore
	Outbox    *notify.Outbox
	Hub       *ws.Hub
	Scheduler *monitor.Scheduler
	Location  *time.Location
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Outbox)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Monitor
	monitorH := handlers.NewMonitorHandler(cfg.Scheduler, cfg.DB, cfg.Location)
	v1.GET("/monitor/status", monitorH.Status)
	v1.GET("/monitor/cameras", monitorH.Cameras)
	v1.GET("/attendance", monitorH.Attendance)

	return r
}
