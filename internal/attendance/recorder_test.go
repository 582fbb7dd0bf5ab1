package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gatewatch/internal/models"
)

// fakeStore mimics the storage-level uniqueness of (tenant, student, day).
type fakeStore struct {
	mu            sync.Mutex
	recorded      map[string]bool
	notifications []models.Notification
	failInsert    bool
	failNotify    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{recorded: map[string]bool{}}
}

func (s *fakeStore) RecordArrival(_ context.Context, rec *models.AttendanceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return false, errors.New("connection refused")
	}
	key := rec.TenantID.String() + "/" + rec.StudentID.String() + "/" + rec.Day.Format("2006-01-02")
	if s.recorded[key] {
		return false, nil
	}
	s.recorded[key] = true
	return true, nil
}

func (s *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNotify {
		return errors.New("connection refused")
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.ArrivalEvent
	fail   bool
}

func (p *fakePublisher) PublishArrival(_ context.Context, event models.ArrivalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("nats not connected")
	}
	p.events = append(p.events, event)
	return nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.ArrivalEvent
}

func (b *fakeBroadcaster) BroadcastArrival(event models.ArrivalEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func TestRecordSightingFirstOfDay(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	bc := &fakeBroadcaster{}
	rec := NewRecorder(store, pub, bc, time.UTC)

	tenant, student, camera := uuid.New(), uuid.New(), uuid.New()
	ts := time.Date(2026, 8, 30, 7, 45, 0, 0, time.UTC)

	outcome := rec.RecordSighting(context.Background(), tenant, student, "Dana", camera, ts)

	if outcome != NewlyRecorded {
		t.Fatalf("outcome = %v, want NewlyRecorded", outcome)
	}
	if len(store.notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(store.notifications))
	}
	if store.notifications[0].Type != models.NotificationTypeArrival {
		t.Errorf("notification type = %q", store.notifications[0].Type)
	}
	if len(pub.events) != 1 || len(bc.events) != 1 {
		t.Fatalf("published %d, broadcast %d, want 1 each", len(pub.events), len(bc.events))
	}
	if pub.events[0].Day != "2026-08-30" {
		t.Errorf("event day = %q, want 2026-08-30", pub.events[0].Day)
	}
}

func TestRecordSightingIdempotentPerDay(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	rec := NewRecorder(store, pub, nil, time.UTC)

	tenant, student, camera := uuid.New(), uuid.New(), uuid.New()
	morning := time.Date(2026, 8, 30, 7, 45, 0, 0, time.UTC)
	noon := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if got := rec.RecordSighting(context.Background(), tenant, student, "Dana", camera, morning); got != NewlyRecorded {
		t.Fatalf("first sighting outcome = %v", got)
	}
	if got := rec.RecordSighting(context.Background(), tenant, student, "Dana", camera, noon); got != AlreadyRecorded {
		t.Fatalf("second sighting outcome = %v, want AlreadyRecorded", got)
	}

	if len(store.notifications) != 1 {
		t.Errorf("got %d notifications, want 1", len(store.notifications))
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1", len(pub.events))
	}
}

func TestRecordSightingNewDayNewRecord(t *testing.T) {
	store := newFakeStore()
	rec := NewRecorder(store, nil, nil, time.UTC)

	tenant, student, camera := uuid.New(), uuid.New(), uuid.New()
	today := time.Date(2026, 8, 30, 7, 45, 0, 0, time.UTC)
	tomorrow := today.Add(24 * time.Hour)

	if got := rec.RecordSighting(context.Background(), tenant, student, "Dana", camera, today); got != NewlyRecorded {
		t.Fatalf("day one outcome = %v", got)
	}
	if got := rec.RecordSighting(context.Background(), tenant, student, "Dana", camera, tomorrow); got != NewlyRecorded {
		t.Fatalf("day two outcome = %v, want NewlyRecorded", got)
	}
}

func TestRecordSightingConcurrent(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	rec := NewRecorder(store, pub, nil, time.UTC)

	tenant, student, camera := uuid.New(), uuid.New(), uuid.New()
	ts := time.Date(2026, 8, 30, 7, 45, 0, 0, time.UTC)

	const workers = 8
	outcomes := make([]Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = rec.RecordSighting(context.Background(), tenant, student, "Dana", camera, ts)
		}(i)
	}
	wg.Wait()

	var newCount int
	for _, o := range outcomes {
		if o == NewlyRecorded {
			newCount++
		}
	}
	if newCount != 1 {
		t.Errorf("%d sightings reported NewlyRecorded, want exactly 1", newCount)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events, want 1", len(pub.events))
	}
}

func TestRecordSightingStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	store.failInsert = true
	pub := &fakePublisher{}
	rec := NewRecorder(store, pub, nil, time.UTC)

	outcome := rec.RecordSighting(context.Background(), uuid.New(), uuid.New(), "Dana", uuid.New(), time.Now())

	if outcome != Dropped {
		t.Fatalf("outcome = %v, want Dropped", outcome)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for a dropped sighting", len(pub.events))
	}
}

func TestRecordSightingNotificationFailureKeepsRecord(t *testing.T) {
	store := newFakeStore()
	store.failNotify = true
	pub := &fakePublisher{fail: true}
	rec := NewRecorder(store, pub, nil, time.UTC)

	tenant, student := uuid.New(), uuid.New()
	ts := time.Date(2026, 8, 30, 7, 45, 0, 0, time.UTC)

	if got := rec.RecordSighting(context.Background(), tenant, student, "Dana", uuid.New(), ts); got != NewlyRecorded {
		t.Fatalf("outcome = %v, want NewlyRecorded despite notification failures", got)
	}

	// The record stands, so a retry the same day reports already recorded.
	if got := rec.RecordSighting(context.Background(), tenant, student, "Dana", uuid.New(), ts); got != AlreadyRecorded {
		t.Errorf("retry outcome = %v, want AlreadyRecorded", got)
	}
}

func TestRecordSightingDayUsesTimezone(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	loc := time.FixedZone("UTC+7", 7*3600)
	rec := NewRecorder(store, pub, nil, loc)

	// 23:30 UTC is already the next day at UTC+7.
	ts := time.Date(2026, 8, 30, 23, 30, 0, 0, time.UTC)
	rec.RecordSighting(context.Background(), uuid.New(), uuid.New(), "Dana", uuid.New(), ts)

	if len(pub.events) != 1 {
		t.Fatal("no event published")
	}
	if pub.events[0].Day != "2026-08-31" {
		t.Errorf("event day = %q, want 2026-08-31", pub.events[0].Day)
	}
}
