package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

// Subjects relayed to WebSocket clients. Saved overlays go through
// JetStream so late joiners can catch up; alignment previews are fire and
// forget, there is no point replaying a drag that already ended.
const (
	SubjectOverlaySaved      = "overlay.saved"
	SubjectOverlayVisibility = "overlay.visibility"
	SubjectAlignmentPreview  = "alignment.preview"
	SubjectBroadcast         = "overlay.broadcast"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "OVERLAY_EVENTS",
		Subjects:  []string{"overlay.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishOverlaySaved(ctx context.Context, o *domain.Overlay) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectOverlaySaved+"."+o.ID, data)
	return err
}

func (p *Publisher) PublishOverlayVisibility(ctx context.Context, id string, visible bool) error {
	data, err := json.Marshal(map[string]any{"id": id, "visible": visible})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectOverlayVisibility+"."+id, data)
	return err
}

func (p *Publisher) PublishAlignmentPreview(ctx context.Context, data []byte) error {
	return p.conn.Publish(SubjectAlignmentPreview, data)
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(SubjectBroadcast, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
