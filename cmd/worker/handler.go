package main

import (
	"context"
	"time"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
)

// Locker serializes work on one case across worker replicas.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Deriver rebuilds a case's audit trail.
type Deriver interface {
	Derive(ctx context.Context, caseID string) ([]review.AuditEvent, error)
	Publish(ctx context.Context, caseID string) (int, error)
}

// RederiveHandler reacts to case.updated by dropping cached responses and
// re-deriving the audit trail of the case.
type RederiveHandler struct {
	deriver     Deriver
	locker      Locker
	invalidator casereview.CaseInvalidator
	publish     bool
	timeout     time.Duration
	logger      logging.Logger
}

type HandlerOption func(*RederiveHandler)

// WithLocker guards each case with a lock named "derive:<case id>".
func WithLocker(l Locker) HandlerOption {
	return func(h *RederiveHandler) { h.locker = l }
}

func WithInvalidator(i casereview.CaseInvalidator) HandlerOption {
	return func(h *RederiveHandler) { h.invalidator = i }
}

// WithPublish sends the derived events to the audit topic instead of only
// warming the pipeline.
func WithPublish(publish bool) HandlerOption {
	return func(h *RederiveHandler) { h.publish = publish }
}

func WithHandlerTimeout(d time.Duration) HandlerOption {
	return func(h *RederiveHandler) { h.timeout = d }
}

func NewRederiveHandler(deriver Deriver, logger logging.Logger, opts ...HandlerOption) *RederiveHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &RederiveHandler{
		deriver: deriver,
		timeout: 2 * time.Minute,
		logger:  logger.Named("rederive"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle satisfies kafka.MessageHandler. Errors are retried by the consumer
// and end up on the dead-letter topic once retries are exhausted.
func (h *RederiveHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	evt, err := kafka.DecodeCaseUpdated(msg)
	if err != nil {
		h.logger.Warn("undecodable case.updated message",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err),
		)
		return err
	}
	log := h.logger.With(logging.CaseID(evt.CaseID), logging.String("domain", evt.Domain))

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	if h.locker != nil {
		release, err := h.locker.Acquire(ctx, "derive:"+evt.CaseID)
		if err != nil {
			log.Warn("case is locked by another worker", logging.Err(err))
			return err
		}
		defer release()
	}

	if h.invalidator != nil {
		if err := h.invalidator.InvalidateCase(ctx, evt.CaseID); err != nil {
			log.Warn("failed to invalidate cached case", logging.Err(err))
		}
	}

	start := time.Now()
	if h.publish {
		n, err := h.deriver.Publish(ctx, evt.CaseID)
		if err != nil {
			log.Error("audit publish failed", logging.Err(err))
			return err
		}
		log.Info("audit events published", logging.Int("events", n), logging.Duration("took", time.Since(start)))
		return nil
	}

	events, err := h.deriver.Derive(ctx, evt.CaseID)
	if err != nil {
		log.Error("audit derivation failed", logging.Err(err))
		return err
	}
	log.Info("audit trail derived", logging.Int("events", len(events)), logging.Duration("took", time.Since(start)))
	return nil
}
