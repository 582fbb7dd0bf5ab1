package models

import (
	"time"

	"github.com/google/uuid"
)

type CameraPurpose string

const (
	CameraPurposeEntrance CameraPurpose = "entrance"
	CameraPurposePresence CameraPurpose = "presence"
)

type CameraStatus string

const (
	CameraStatusActive   CameraStatus = "active"
	CameraStatusInactive CameraStatus = "inactive"
)

// Camera is a registered video source. Cameras are managed by the
// administrative subsystem; the monitor only reads them.
type Camera struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	TenantID  uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	Name      string        `json:"name" db:"name"`
	URL       string        `json:"url" db:"url"`
	Purpose   CameraPurpose `json:"purpose" db:"purpose"`
	Status    CameraStatus  `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
