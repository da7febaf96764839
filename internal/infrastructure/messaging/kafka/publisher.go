package kafka

import (
	"context"
	"time"

	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/pkg/errors"
)

const sourceService = "caselens"

// CaseUpdated announces that a case was ingested or changed.
type CaseUpdated struct {
	CaseID    string    `json:"case_id"`
	Domain    string    `json:"domain"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditDerived is one derived audit event for a case.
type AuditDerived struct {
	CaseID string            `json:"case_id"`
	Event  review.AuditEvent `json:"event"`
}

// AuditPublisher writes derived audit events keyed by case id. The envelope
// id is the audit event id, so replays carry the same id.
type AuditPublisher struct {
	producer Publisher
	topic    string
}

func NewAuditPublisher(p Publisher, topic string) *AuditPublisher {
	if topic == "" {
		topic = TopicAuditDerived
	}
	return &AuditPublisher{producer: p, topic: topic}
}

func (a *AuditPublisher) PublishAuditEvents(ctx context.Context, caseID string, events []review.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*ProducerMessage, 0, len(events))
	for _, ev := range events {
		env, err := NewEventEnvelope(ev.ID, EventTypeAuditDerived, sourceService, AuditDerived{CaseID: caseID, Event: ev})
		if err != nil {
			return err
		}
		msg, err := env.ToMessage(a.topic, caseID)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return a.producer.Publish(ctx, msgs...)
}

// CaseNotifier publishes CaseUpdated messages.
type CaseNotifier struct {
	producer Publisher
	topic    string
	now      func() time.Time
}

func NewCaseNotifier(p Publisher, topic string) *CaseNotifier {
	if topic == "" {
		topic = TopicCaseUpdated
	}
	return &CaseNotifier{producer: p, topic: topic, now: time.Now}
}

func (n *CaseNotifier) NotifyCaseUpdated(ctx context.Context, caseID, domain string) error {
	env, err := NewEventEnvelope("", EventTypeCaseUpdated, sourceService, CaseUpdated{
		CaseID:    caseID,
		Domain:    domain,
		UpdatedAt: n.now().UTC(),
	})
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(n.topic, caseID)
	if err != nil {
		return err
	}
	return n.producer.Publish(ctx, msg)
}

// DecodeCaseUpdated extracts the CaseUpdated payload of a consumed message.
func DecodeCaseUpdated(msg *Message) (CaseUpdated, error) {
	var out CaseUpdated
	env, err := DecodeEnvelope(msg)
	if err != nil {
		return out, err
	}
	if env.EventType != EventTypeCaseUpdated {
		return out, errors.New(errors.ErrCodeValidation, "unexpected event type "+env.EventType)
	}
	if err := env.DecodePayload(&out); err != nil {
		return out, err
	}
	if out.CaseID == "" {
		return out, errors.New(errors.ErrCodeCaseIDRequired, "case.updated without case_id")
	}
	return out, nil
}
