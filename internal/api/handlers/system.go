package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/gatewatch/internal/notify"
	"github.com/your-org/gatewatch/internal/storage"
)

// SystemHandler serves liveness and readiness. MinIO and NATS are optional
// backends; when absent they are reported as disabled, not as failures.
type SystemHandler struct {
	db     *storage.PostgresStore
	minio  *storage.MinIOStore
	outbox *notify.Outbox
}

func NewSystemHandler(db *storage.PostgresStore, minio *storage.MinIOStore, outbox *notify.Outbox) *SystemHandler {
	return &SystemHandler{db: db, minio: minio, outbox: outbox}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if h.minio == nil {
		checks["minio"] = "disabled"
	} else if err := h.minio.Ping(ctx); err != nil {
		checks["minio"] = err.Error()
		healthy = false
	} else {
		checks["minio"] = "ok"
	}

	if h.outbox == nil {
		checks["nats"] = "disabled"
	} else if err := h.outbox.Ping(); err != nil {
		checks["nats"] = err.Error()
		healthy = false
	} else {
		checks["nats"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
