package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// AuditPublisher appends workflow events to the audit sink over NATS.
//
// Subject convention: audit.procurement.<action>
// Actions: created, activated, completed, signing_started, signed, approved,
//          rejected, cancelled, order_generated, payment_group_opened
//
// The sink is write-only and best-effort: publish failures are logged and
// never propagated, so audit outages never block workflow operations.
type AuditPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// AuditEvent is the JSON schema appended to the sink.
type AuditEvent struct {
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	ActorID   string         `json:"actor_id"`
	OldValue  string         `json:"old_value,omitempty"`
	NewValue  string         `json:"new_value,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewAuditPublisher connects to NATS. A nil return with error means the
// caller decides whether audit is mandatory for its environment.
func NewAuditPublisher(url string, log zerolog.Logger) (*AuditPublisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &AuditPublisher{conn: conn, log: log}, nil
}

// Close drains the connection.
func (p *AuditPublisher) Close() {
	if p != nil && p.conn != nil {
		_ = p.conn.Drain()
	}
}

// Publish appends one audit event. Safe to call on a nil publisher.
func (p *AuditPublisher) Publish(ctx context.Context, ev AuditEvent) {
	if p == nil || p.conn == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn().Err(err).Str("action", ev.Action).Msg("audit: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("audit.procurement.%s", ev.Action)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("entity_id", ev.EntityID).
			Msg("audit: failed to publish event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("entity_id", ev.EntityID).
		Msg("audit: event published")
}
