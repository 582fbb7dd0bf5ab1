package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/gatewatch/internal/monitor"
	"github.com/your-org/gatewatch/internal/storage"
)

// MonitorHandler exposes the polling loop's camera view and the attendance
// records it produced.
type MonitorHandler struct {
	scheduler *monitor.Scheduler
	db        *storage.PostgresStore
	loc       *time.Location
}

func NewMonitorHandler(scheduler *monitor.Scheduler, db *storage.PostgresStore, loc *time.Location) *MonitorHandler {
	if loc == nil {
		loc = time.Local
	}
	return &MonitorHandler{scheduler: scheduler, db: db, loc: loc}
}

// Status returns the current per-camera state of the monitor.
func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"degraded": h.scheduler.Degraded(),
		"cameras":  h.scheduler.Statuses(),
	})
}

// Attendance lists one tenant's attendance records for a day. The day
// defaults to today in the monitor's timezone.
func (h *MonitorHandler) Attendance(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	now := time.Now().In(h.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	if v := c.Query("day"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	records, err := h.db.AttendanceForDay(c.Request.Context(), tenantID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"day":     day.Format("2006-01-02"),
		"records": records,
	})
}

// Cameras lists the cameras currently eligible for monitoring.
func (h *MonitorHandler) Cameras(c *gin.Context) {
	cameras, err := h.db.ListEntranceCameras(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cameras})
}
