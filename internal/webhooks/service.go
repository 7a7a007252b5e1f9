package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/kachabazaar/kachabazaar-backend/pkg/config"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/logger"
	"github.com/kachabazaar/kachabazaar-backend/pkg/metrics"
	"github.com/kachabazaar/kachabazaar-backend/pkg/redis"
)

const providerName = "razorpay"

// Outcome classifies what a webhook delivery did.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Verifier checks the delivery signature against the raw body bytes.
type Verifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Reconciler applies gateway payment events to order state.
type Reconciler interface {
	ApplyCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error)
	ApplyFailure(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) (bool, error)
	ApplyRefund(ctx context.Context, gatewayPaymentID string, amountPaise int64) (bool, error)
}

// Service turns raw webhook deliveries into order transitions. Each event id
// is reserved in Redis before processing; a failed handler releases the
// reservation so the gateway's redelivery gets another attempt, while a
// succeeded one keeps it for the dedupe window.
type Service interface {
	Process(ctx context.Context, body []byte, signature, eventID string) (Outcome, error)
}

type service struct {
	reconciler Reconciler
	verifier   Verifier
	store      redis.IdempotencyStore
	metrics    *metrics.WebhookMetrics
	log        *logger.Logger
	dedupeTTL  time.Duration
}

// NewService wires the webhook processor.
func NewService(reconciler Reconciler, verifier Verifier, store redis.IdempotencyStore, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger, cfg config.OrdersConfig) (Service, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("payment reconciler required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		reconciler: reconciler,
		verifier:   verifier,
		store:      store,
		metrics:    webhookMetrics,
		log:        logg,
		dedupeTTL:  cfg.WebhookDedupeTTL,
	}, nil
}

func (s *service) Process(ctx context.Context, body []byte, signature, eventID string) (Outcome, error) {
	start := time.Now()

	if !s.verifier.VerifyWebhookSignature(body, signature) {
		s.metrics.IncRejected("unknown")
		return "", pkgerrors.New(pkgerrors.CodeSignature, "webhook signature verification failed")
	}

	envelope, err := parseEnvelope(body)
	if err != nil {
		s.metrics.IncRejected("unknown")
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook body")
	}

	ctx = s.log.WithGatewayEvent(ctx, envelope.Event)
	defer func() {
		s.metrics.ObserveDuration(envelope.Event, time.Since(start))
	}()

	reserved, dedupeKey, err := s.reserve(ctx, eventID)
	if err != nil {
		s.metrics.IncFailed(envelope.Event)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve webhook event")
	}
	if !reserved {
		s.log.Info(ctx, "duplicate webhook delivery skipped")
		s.metrics.IncDuplicate(envelope.Event)
		return OutcomeDuplicate, nil
	}

	outcome, err := s.dispatch(ctx, envelope)
	if err != nil {
		s.release(ctx, dedupeKey)
		s.metrics.IncFailed(envelope.Event)
		return "", err
	}

	switch outcome {
	case OutcomeProcessed:
		s.metrics.IncProcessed(envelope.Event)
	case OutcomeDuplicate:
		s.metrics.IncDuplicate(envelope.Event)
	}
	return outcome, nil
}

func (s *service) dispatch(ctx context.Context, envelope *eventEnvelope) (Outcome, error) {
	var applied bool
	var err error

	switch envelope.Event {
	case EventPaymentCaptured:
		payment := envelope.Payload.Payment.Entity
		applied, err = s.reconciler.ApplyCapture(ctx, payment.OrderID, payment.ID)

	case EventPaymentFailed:
		payment := envelope.Payload.Payment.Entity
		applied, err = s.reconciler.ApplyFailure(ctx, payment.OrderID, payment.ID, payment.ErrorDescription)

	case EventRefundProcessed:
		refund := envelope.Payload.Refund.Entity
		applied, err = s.reconciler.ApplyRefund(ctx, refund.PaymentID, refund.Amount)

	default:
		s.log.Info(ctx, "ignoring unhandled webhook event")
		return OutcomeIgnored, nil
	}

	if err != nil {
		// Deliveries can race order creation or reference orders this
		// system never issued. Acknowledge so the gateway stops
		// retrying a delivery that can never succeed.
		if domainErr := pkgerrors.As(err); domainErr != nil && domainErr.Code() == pkgerrors.CodeNotFound {
			s.log.Warn(ctx, "webhook references unknown order")
			return OutcomeIgnored, nil
		}
		return "", err
	}
	if !applied {
		return OutcomeDuplicate, nil
	}
	return OutcomeProcessed, nil
}

func (s *service) reserve(ctx context.Context, eventID string) (bool, string, error) {
	// Deliveries without an event id cannot be deduped; the conditional
	// status updates downstream still make replays harmless.
	if eventID == "" {
		return true, "", nil
	}
	key := s.store.WebhookEventKey(providerName, eventID)
	reserved, err := s.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.dedupeTTL)
	if err != nil {
		return false, "", err
	}
	return reserved, key, nil
}

func (s *service) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Del(ctx, key); err != nil {
		s.log.Error(ctx, "failed to release webhook event key", err)
	}
}
