package service

import (
	"encoding/json"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/shkola-api/internal/observability"
)

// Submission lifecycle event types.
const (
	EventSubmitted = "submission.submitted"
	EventAccepted  = "submission.accepted"
	EventRejected  = "submission.rejected"
)

const eventSubject = "shkola.tasks.events"

// SubmissionEvent describes one lifecycle transition for downstream
// consumers (dashboards, notification bots).
type SubmissionEvent struct {
	Type         string    `json:"type"`
	SubmissionID uint      `json:"submission_id"`
	TaskID       uint      `json:"task_id"`
	StudentID    uint      `json:"student_id"`
	TeacherID    uint      `json:"teacher_id"`
	Grade        *int      `json:"grade,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	At           time.Time `json:"at"`
}

// EventPublisher fans submission lifecycle events out to interested
// consumers. Publishing is best effort: failures are logged, never surfaced.
type EventPublisher interface {
	PublishSubmissionEvent(event SubmissionEvent)
}

type natsEventPublisher struct {
	conn      *nats.Conn
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewEventPublisher builds a NATS-backed publisher. A nil connection yields
// a publisher that only logs, so eventing stays optional.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsEventPublisher{
		conn:      conn,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishSubmissionEvent(event SubmissionEvent) {
	// Comments are user-entered text headed for external consumers.
	event.Comment = p.sanitizer.Sanitize(event.Comment)

	// Counted even without a broker so dashboards see local-only deployments.
	observability.SubmissionEvents().WithLabelValues(event.Type).Inc()

	if p.conn == nil {
		p.logger.Debug().Str("type", event.Type).Uint("submission_id", event.SubmissionID).Msg("event publishing disabled")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode submission event")
		return
	}

	if err := p.conn.Publish(eventSubject, payload); err != nil {
		p.logger.Error().Err(err).Str("type", event.Type).Msg("failed to publish submission event")
		return
	}

	p.logger.Debug().Str("type", event.Type).Uint("submission_id", event.SubmissionID).Msg("submission event published")
}
