package monitor

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CameraStatus is a point-in-time view of one monitored camera.
type CameraStatus struct {
	CameraID      uuid.UUID `json:"camera_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Name          string    `json:"name"`
	Purpose       string    `json:"purpose"`
	Busy          bool      `json:"busy"`
	Reachable     bool      `json:"reachable"`
	LastDetail    string    `json:"last_detail"`
	LastPolledAt  time.Time `json:"last_polled_at"`
	FacesSeen     int       `json:"faces_seen"`
	LastMatchAt   time.Time `json:"last_match_at,omitempty"`
	LastMatchName string    `json:"last_match_name,omitempty"`
}

// Statuses returns a snapshot of every camera the scheduler has polled,
// ordered by tenant then name for stable output.
func (s *Scheduler) Statuses() []CameraStatus {
	s.mu.Lock()
	out := make([]CameraStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, *st)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TenantID != out[j].TenantID {
			return out[i].TenantID.String() < out[j].TenantID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out
}
