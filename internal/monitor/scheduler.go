// Package monitor drives the camera polling loop. On every tick it asks the
// store for eligible cameras, fans each one out to a worker goroutine and
// pipes captured frames through detection, matching and attendance recording.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gatewatch/internal/attendance"
	"github.com/your-org/gatewatch/internal/capture"
	"github.com/your-org/gatewatch/internal/gallery"
	"github.com/your-org/gatewatch/internal/models"
	"github.com/your-org/gatewatch/internal/observability"
	"github.com/your-org/gatewatch/internal/vision"
)

// Store provides the camera roster and enrollment data.
type Store interface {
	ListEntranceCameras(ctx context.Context) ([]models.Camera, error)
	UpdateCameraHealth(ctx context.Context, cameraID uuid.UUID, reachable bool, detail string) error
	ListEnrolledFaces(ctx context.Context, tenantID uuid.UUID) ([]models.EnrolledFace, error)
}

// FrameGrabber captures one frame from a stream URL.
type FrameGrabber interface {
	Grab(ctx context.Context, streamURL string) ([]byte, bool)
}

// Engine detects faces and extracts embeddings from a frame.
type Engine interface {
	Faces(frame []byte) ([]vision.Face, error)
	EmbeddingDim() int
}

// Sink records recognized sightings.
type Sink interface {
	RecordSighting(ctx context.Context, tenantID, studentID uuid.UUID, studentName string, cameraID uuid.UUID, ts time.Time) attendance.Outcome
}

// Archive stores the frames that produced a match.
type Archive interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

type Scheduler struct {
	store   Store
	grabber FrameGrabber
	engine  Engine // nil means degraded mode, reachability probes only
	sink    Sink
	archive Archive // nil disables snapshot uploads

	pollInterval   time.Duration
	probeTimeout   time.Duration
	matchThreshold float32

	probe func(ctx context.Context, streamURL string, timeout time.Duration) error

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
	statuses map[uuid.UUID]*CameraStatus
}

// NewScheduler wires the polling loop. engine may be nil, in which case
// cameras only get reachability probes until the process restarts with a
// working vision stack. archive may be nil to skip snapshot uploads.
func NewScheduler(store Store, grabber FrameGrabber, engine Engine, sink Sink, archive Archive,
	pollInterval, probeTimeout time.Duration, matchThreshold float32) *Scheduler {
	return &Scheduler{
		store:          store,
		grabber:        grabber,
		engine:         engine,
		sink:           sink,
		archive:        archive,
		pollInterval:   pollInterval,
		probeTimeout:   probeTimeout,
		matchThreshold: matchThreshold,
		probe:          capture.Probe,
		inFlight:       make(map[uuid.UUID]struct{}),
		statuses:       make(map[uuid.UUID]*CameraStatus),
	}
}

// Degraded reports whether the scheduler is running without a vision engine.
func (s *Scheduler) Degraded() bool {
	return s.engine == nil
}

// Run polls until ctx is cancelled. The first tick fires immediately.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("monitor started", "poll_interval", s.pollInterval, "degraded", s.Degraded())

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick dispatches one poll round. A camera still being processed from a
// previous round is skipped, never queued twice.
func (s *Scheduler) tick(ctx context.Context) {
	cameras, err := s.store.ListEntranceCameras(ctx)
	if err != nil {
		slog.Warn("list cameras failed, skipping tick", "error", err)
		return
	}

	galleries := make(map[uuid.UUID]*gallery.Gallery)

	for _, cam := range cameras {
		if !s.tryAcquire(cam) {
			observability.CamerasPolled.WithLabelValues("skipped").Inc()
			continue
		}

		var gal *gallery.Gallery
		if s.engine != nil {
			var ok bool
			if gal, ok = galleries[cam.TenantID]; !ok {
				gal = s.buildGallery(ctx, cam.TenantID)
				galleries[cam.TenantID] = gal
			}
		}

		observability.CamerasPolled.WithLabelValues("dispatched").Inc()
		go s.process(ctx, cam, gal)
	}

	observability.MonitorTicks.Inc()
}

// buildGallery loads a tenant's enrolled faces and indexes them. Returns nil
// when the tenant has nothing usable, which downgrades its cameras to
// detection-only for this round.
func (s *Scheduler) buildGallery(ctx context.Context, tenantID uuid.UUID) *gallery.Gallery {
	faces, err := s.store.ListEnrolledFaces(ctx, tenantID)
	if err != nil {
		slog.Warn("list enrolled faces failed", "tenant_id", tenantID, "error", err)
		return nil
	}
	return gallery.Build(faces, s.engine.EmbeddingDim(), s.matchThreshold)
}

func (s *Scheduler) tryAcquire(cam models.Camera) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[cam.ID]; busy {
		return false
	}
	s.inFlight[cam.ID] = struct{}{}

	st, ok := s.statuses[cam.ID]
	if !ok {
		st = &CameraStatus{}
		s.statuses[cam.ID] = st
	}
	st.CameraID = cam.ID
	st.TenantID = cam.TenantID
	st.Name = cam.Name
	st.Purpose = string(cam.Purpose)
	st.Busy = true
	return true
}

func (s *Scheduler) release(cameraID uuid.UUID, update func(*CameraStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, cameraID)
	if st, ok := s.statuses[cameraID]; ok {
		st.Busy = false
		st.LastPolledAt = time.Now()
		if update != nil {
			update(st)
		}
	}
}

func (s *Scheduler) process(ctx context.Context, cam models.Camera, gal *gallery.Gallery) {
	observability.InFlightCameras.Inc()
	defer observability.InFlightCameras.Dec()

	if s.engine == nil {
		s.probeOnly(ctx, cam)
		return
	}

	frame, ok := s.grabber.Grab(ctx, cam.URL)
	if !ok {
		s.updateHealth(ctx, cam.ID, false, "capture failed")
		s.release(cam.ID, func(st *CameraStatus) {
			st.Reachable = false
			st.LastDetail = "capture failed"
		})
		return
	}
	s.updateHealth(ctx, cam.ID, true, "ok")

	faces, err := s.engine.Faces(frame)
	if err != nil {
		slog.Warn("face detection failed", "camera_id", cam.ID, "error", err)
		s.release(cam.ID, func(st *CameraStatus) {
			st.Reachable = true
			st.LastDetail = "detection failed"
		})
		return
	}
	observability.FacesDetected.WithLabelValues(cam.TenantID.String()).Add(float64(len(faces)))

	var matched int
	var lastMatch string
	now := time.Now()

	for _, face := range faces {
		m, ok := gal.Match(face.Embedding)
		if !ok {
			continue
		}
		matched++
		lastMatch = m.Name
		observability.FacesMatched.WithLabelValues(cam.TenantID.String()).Inc()

		outcome := s.sink.RecordSighting(ctx, cam.TenantID, m.StudentID, m.Name, cam.ID, now)
		if outcome == attendance.NewlyRecorded {
			s.archiveSnapshot(ctx, cam, m.StudentID, now, frame)
		}
	}

	s.release(cam.ID, func(st *CameraStatus) {
		st.Reachable = true
		st.LastDetail = "ok"
		st.FacesSeen = len(faces)
		if matched > 0 {
			st.LastMatchAt = now
			st.LastMatchName = lastMatch
		}
	})
}

// probeOnly is the degraded path: a TCP reachability check in place of
// capture and recognition.
func (s *Scheduler) probeOnly(ctx context.Context, cam models.Camera) {
	err := s.probe(ctx, cam.URL, s.probeTimeout)
	reachable := err == nil
	detail := "reachable"
	if err != nil {
		detail = err.Error()
	}

	s.updateHealth(ctx, cam.ID, reachable, detail)
	s.release(cam.ID, func(st *CameraStatus) {
		st.Reachable = reachable
		st.LastDetail = detail
	})
}

func (s *Scheduler) updateHealth(ctx context.Context, cameraID uuid.UUID, reachable bool, detail string) {
	if err := s.store.UpdateCameraHealth(ctx, cameraID, reachable, detail); err != nil {
		slog.Warn("update camera health failed", "camera_id", cameraID, "error", err)
	}
}

// archiveSnapshot uploads the frame behind a first-of-day match.
// Best-effort, a failed upload costs only the snapshot.
func (s *Scheduler) archiveSnapshot(ctx context.Context, cam models.Camera, studentID uuid.UUID, ts time.Time, frame []byte) {
	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("matches/%s/%s/%s_%d.jpg",
		cam.TenantID, ts.Format("2006-01-02"), studentID, ts.Unix())
	if err := s.archive.PutObject(ctx, key, frame, "image/jpeg"); err != nil {
		slog.Warn("archive match snapshot failed", "key", key, "error", err)
	}
}
