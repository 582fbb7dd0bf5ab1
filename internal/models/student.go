package models

import (
	"github.com/google/uuid"
)

// EnrolledFace is one student's biometric enrollment within a tenant.
// Embedding holds the native vector column when present; RawDescriptor
// carries the legacy JSON text encoding some tenants still store.
type EnrolledFace struct {
	StudentID     uuid.UUID `json:"student_id" db:"student_id"`
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name          string    `json:"name" db:"name"`
	Embedding     []float32 `json:"-" db:"embedding"`
	RawDescriptor string    `json:"-" db:"descriptor_json"`
}
