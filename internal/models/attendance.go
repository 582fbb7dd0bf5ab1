package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
)

// AttendanceRecord is one student's arrival for one calendar day.
// (tenant_id, student_id, day) is unique at the storage level.
type AttendanceRecord struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	TenantID   uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	StudentID  uuid.UUID        `json:"student_id" db:"student_id"`
	Day        time.Time        `json:"day" db:"day"`
	Status     AttendanceStatus `json:"status" db:"status"`
	RecordedAt time.Time        `json:"recorded_at" db:"recorded_at"`
	CameraID   uuid.UUID        `json:"camera_id" db:"camera_id"`
}

type NotificationType string

const (
	NotificationTypeArrival NotificationType = "arrival"
)

// Notification is an outbox row consumed by the external delivery
// mechanism. Exactly one is created per new attendance record.
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	TenantID  uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	StudentID uuid.UUID        `json:"student_id" db:"student_id"`
	Type      NotificationType `json:"type" db:"type"`
	Message   string           `json:"message" db:"message"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// ArrivalEvent is the wire form published to NATS and broadcast to
// WebSocket clients when a new attendance record is inserted.
type ArrivalEvent struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	CameraID    uuid.UUID `json:"camera_id"`
	Day         string    `json:"day"`
	RecordedAt  time.Time `json:"recorded_at"`
}
