// Package notify publishes arrival events to NATS JetStream. Downstream
// delivery services (parent messaging, dashboards) consume the stream, so
// the monitor never blocks on a slow messaging provider.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/gatewatch/internal/models"
	"github.com/your-org/gatewatch/internal/observability"
)

const (
	AttendanceStreamName  = "ATTENDANCE"
	AttendanceSubjectBase = "attendance"
)

type Outbox struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewOutbox(natsURL string) (*Outbox, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Outbox{nc: nc, js: js}, nil
}

// EnsureStream creates the ATTENDANCE stream if it doesn't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (o *Outbox) EnsureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        AttendanceStreamName,
		Subjects:    []string{AttendanceSubjectBase + ".>"},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxMsgs:     1000000,
		Storage:     jetstream.FileStorage,
		Duplicates:  30 * time.Second,
		Description: "Student arrival events for downstream notification services",
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := o.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishArrival publishes an arrival event on attendance.<tenant>.<student>.
func (o *Outbox) PublishArrival(ctx context.Context, event models.ArrivalEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal arrival event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", AttendanceSubjectBase, event.TenantID, event.StudentID)
	if _, err := o.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish arrival: %w", err)
	}

	observability.NotificationsPublished.WithLabelValues(event.TenantID.String()).Inc()
	return nil
}

func (o *Outbox) Ping() error {
	if !o.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (o *Outbox) Close() {
	o.nc.Close()
}
