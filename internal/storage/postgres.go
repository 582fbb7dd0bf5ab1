package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/gatewatch/internal/config"
	"github.com/your-org/gatewatch/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Cameras ---

// ListEntranceCameras returns the cameras eligible for monitoring:
// active, entrance/presence purpose, non-empty stream URL. Spans all tenants.
func (s *PostgresStore) ListEntranceCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, url, purpose, status, created_at, updated_at
		 FROM cameras
		 WHERE status = 'active'
		   AND purpose IN ('entrance', 'presence')
		   AND url <> ''
		 ORDER BY tenant_id, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list entrance cameras: %w", err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		var c models.Camera
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.URL, &c.Purpose, &c.Status,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

// UpdateCameraHealth records the last reachability signal for a camera.
func (s *PostgresStore) UpdateCameraHealth(ctx context.Context, cameraID uuid.UUID, reachable bool, detail string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE cameras SET last_seen_at = CASE WHEN $2 THEN now() ELSE last_seen_at END,
		        health = $3, updated_at = now()
		 WHERE id = $1`,
		cameraID, reachable, detail)
	if err != nil {
		return fmt.Errorf("update camera health: %w", err)
	}
	return nil
}

// --- Enrollment gallery ---

// ListEnrolledFaces returns one tenant's enrolled identities that carry some
// embedding, either the native vector column or the legacy JSON text descriptor.
// Parsing and validation happen in the gallery builder; rows are returned as stored.
func (s *PostgresStore) ListEnrolledFaces(ctx context.Context, tenantID uuid.UUID) ([]models.EnrolledFace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT student_id, tenant_id, name, embedding, descriptor_json
		 FROM enrolled_faces
		 WHERE tenant_id = $1
		   AND (embedding IS NOT NULL OR descriptor_json IS NOT NULL)`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled faces: %w", err)
	}
	defer rows.Close()

	var faces []models.EnrolledFace
	for rows.Next() {
		var f models.EnrolledFace
		var vec *pgvector.Vector
		var raw *string
		if err := rows.Scan(&f.StudentID, &f.TenantID, &f.Name, &vec, &raw); err != nil {
			return nil, fmt.Errorf("scan enrolled face: %w", err)
		}
		if vec != nil {
			f.Embedding = vec.Slice()
		}
		if raw != nil {
			f.RawDescriptor = *raw
		}
		faces = append(faces, f)
	}
	return faces, nil
}

// --- Attendance ---

// RecordArrival inserts an attendance record for (tenant, student, day).
// The (tenant_id, student_id, day) uniqueness constraint makes concurrent
// sightings race-safe: a conflicting insert affects zero rows and is
// reported as already recorded, not as an error.
func (s *PostgresStore) RecordArrival(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	rec.ID = uuid.New()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO attendance (id, tenant_id, student_id, day, status, recorded_at, camera_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tenant_id, student_id, day) DO NOTHING`,
		rec.ID, rec.TenantID, rec.StudentID, rec.Day, rec.Status, rec.RecordedAt, rec.CameraID)
	if err != nil {
		return false, fmt.Errorf("record arrival: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AttendanceForDay returns a tenant's attendance records for one calendar day.
func (s *PostgresStore) AttendanceForDay(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]models.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, student_id, day, status, recorded_at, camera_id
		 FROM attendance
		 WHERE tenant_id = $1 AND day = $2
		 ORDER BY recorded_at`,
		tenantID, day)
	if err != nil {
		return nil, fmt.Errorf("attendance for day: %w", err)
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		if err := rows.Scan(&r.ID, &r.TenantID, &r.StudentID, &r.Day, &r.Status,
			&r.RecordedAt, &r.CameraID); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// --- Notifications ---

// CreateNotification appends an outbox row. Called only when a new
// attendance record was inserted.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, tenant_id, student_id, type, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.TenantID, n.StudentID, n.Type, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
