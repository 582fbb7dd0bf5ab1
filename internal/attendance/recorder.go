// Package attendance turns face sightings into at-most-one attendance
// record per student per calendar day, and fans out arrival notifications
// for first sightings only.
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gatewatch/internal/models"
	"github.com/your-org/gatewatch/internal/observability"
)

// Outcome reports what a sighting produced.
type Outcome int

const (
	// NewlyRecorded means this sighting created the student's attendance
	// record for the day.
	NewlyRecorded Outcome = iota
	// AlreadyRecorded means the student was seen earlier today.
	AlreadyRecorded
	// Dropped means the sighting could not be persisted. The student will
	// be recorded on a later sighting.
	Dropped
)

// Store persists attendance records and notification rows.
type Store interface {
	RecordArrival(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Publisher pushes arrival events to the message stream.
type Publisher interface {
	PublishArrival(ctx context.Context, event models.ArrivalEvent) error
}

// Broadcaster pushes arrival events to connected live clients.
type Broadcaster interface {
	BroadcastArrival(event models.ArrivalEvent)
}

type Recorder struct {
	store       Store
	publisher   Publisher
	broadcaster Broadcaster
	loc         *time.Location
}

// NewRecorder builds a recorder. publisher and broadcaster may be nil when
// the corresponding backend is unavailable; attendance still gets recorded.
func NewRecorder(store Store, publisher Publisher, broadcaster Broadcaster, loc *time.Location) *Recorder {
	if loc == nil {
		loc = time.Local
	}
	return &Recorder{store: store, publisher: publisher, broadcaster: broadcaster, loc: loc}
}

// RecordSighting persists a recognized student's arrival. The calendar day
// is derived from ts in the recorder's timezone. Notification side effects
// run only when this sighting is the first of the day, and their failures
// never undo the attendance record.
func (r *Recorder) RecordSighting(ctx context.Context, tenantID, studentID uuid.UUID, studentName string, cameraID uuid.UUID, ts time.Time) Outcome {
	local := ts.In(r.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)

	rec := &models.AttendanceRecord{
		TenantID:   tenantID,
		StudentID:  studentID,
		Day:        day,
		Status:     models.AttendanceStatusPresent,
		RecordedAt: ts,
		CameraID:   cameraID,
	}

	inserted, err := r.store.RecordArrival(ctx, rec)
	if err != nil {
		slog.Warn("attendance record failed, dropping sighting",
			"tenant_id", tenantID, "student_id", studentID, "error", err)
		return Dropped
	}
	if !inserted {
		return AlreadyRecorded
	}

	observability.AttendanceRecorded.WithLabelValues(tenantID.String()).Inc()
	slog.Info("student arrival recorded",
		"tenant_id", tenantID, "student_id", studentID, "student", studentName,
		"camera_id", cameraID, "day", day.Format("2006-01-02"))

	r.notifyArrival(ctx, rec, studentName)
	return NewlyRecorded
}

func (r *Recorder) notifyArrival(ctx context.Context, rec *models.AttendanceRecord, studentName string) {
	n := &models.Notification{
		TenantID:  rec.TenantID,
		StudentID: rec.StudentID,
		Type:      models.NotificationTypeArrival,
		Message:   fmt.Sprintf("%s arrived at %s", studentName, rec.RecordedAt.In(r.loc).Format("15:04")),
	}
	if err := r.store.CreateNotification(ctx, n); err != nil {
		slog.Warn("create notification failed", "student_id", rec.StudentID, "error", err)
	}

	event := models.ArrivalEvent{
		TenantID:    rec.TenantID,
		StudentID:   rec.StudentID,
		StudentName: studentName,
		CameraID:    rec.CameraID,
		Day:         rec.Day.Format("2006-01-02"),
		RecordedAt:  rec.RecordedAt,
	}

	if r.publisher != nil {
		if err := r.publisher.PublishArrival(ctx, event); err != nil {
			slog.Warn("publish arrival event failed", "student_id", rec.StudentID, "error", err)
		}
	}
	if r.broadcaster != nil {
		r.broadcaster.BroadcastArrival(event)
	}
}
