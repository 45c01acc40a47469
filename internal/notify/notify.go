// Package notify emits fire-and-forget status-change events for the
// external messaging subsystem. Delivery is not this service's concern;
// publish failures are logged and never fail the triggering operation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event names follow the <subject>_<change> convention consumed by the
// messaging subsystem.
const (
	EventJobPosted           = "job_posted"
	EventJobAccepted         = "job_accepted"
	EventJobStarted          = "job_started"
	EventJobSubmitted        = "job_submitted"
	EventJobCancelled        = "job_cancelled"
	EventJobExpired          = "job_expired"
	EventSubmissionApproved  = "submission_approved"
	EventSubmissionRejected  = "submission_rejected"
	EventResubmitRequested   = "resubmit_requested"
	EventPayoutCreated       = "payout_created"
	EventJobPaid             = "job_paid"
	EventVoucherRedeemed     = "voucher_redeemed"
)

// Event is one status-change notification.
type Event struct {
	Name         string     `json:"event"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	JobID        uuid.UUID  `json:"job_id,omitempty"`
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
	ScoutID      *uuid.UUID `json:"scout_id,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Notifier publishes events. Implementations must not block the caller on
// delivery and must never return an error to it.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

// RedisNotifier publishes events on a per-tenant redis channel.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a RedisNotifier from a redis URL.
func NewRedisNotifier(redisURL string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisNotifier{client: redis.NewClient(opts)}, nil
}

// Channel returns the pub/sub channel for a tenant.
func Channel(tenantID uuid.UUID) string {
	return fmt.Sprintf("scoutops:events:%s", tenantID)
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal event", "event", ev.Name, "error", err)
		return
	}
	if err := n.client.Publish(ctx, Channel(ev.TenantID), payload).Err(); err != nil {
		slog.Error("publish event", "event", ev.Name, "tenant_id", ev.TenantID, "error", err)
	}
}

// Close releases the underlying client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// Nop is a Notifier that drops every event. Used in tests.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
