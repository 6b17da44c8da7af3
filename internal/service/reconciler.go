package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AmountTolerance is the largest absolute difference between the verified
// paid amount and the order total that still counts as a match.
var AmountTolerance = decimal.RequireFromString("0.01")

// reconciler implements Reconciler.
type reconciler struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	gateway     payment.Gateway
	publisher   events.Publisher
	secret      []byte
	now         func() time.Time
	logger      zerolog.Logger
}

// NewReconciler creates a new webhook reconciler. webhookSecret is the key the
// gateway signs notifications with.
func NewReconciler(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	gateway payment.Gateway,
	publisher events.Publisher,
	webhookSecret string,
	logger zerolog.Logger,
) Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &reconciler{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		gateway:     gateway,
		publisher:   publisher,
		secret:      []byte(webhookSecret),
		now:         time.Now,
		logger:      logger.With().Str("service", "reconciler").Logger(),
	}
}

// HandleWebhook authenticates a raw notification and settles the payment it names.
// Nothing in body is read until the signature has been checked.
func (r *reconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (*model.ReconcileResult, error) {
	if !payment.VerifySignature(body, signature, r.secret) {
		r.logger.Warn().
			Bool("signature_present", signature != "").
			Int("body_size", len(body)).
			Msg("webhook signature rejected")
		return nil, model.ErrSignatureInvalid
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		r.logger.Warn().Err(err).Msg("webhook body is not valid JSON")
		return nil, model.InvalidRequest("malformed webhook body")
	}

	if !strings.EqualFold(payload.Status, model.PaymentStatusSuccessful) {
		r.logger.Info().
			Str("tx_ref", payload.TxRef).
			Str("status", payload.Status).
			Msg("ignoring non-successful payment notification")
		return &model.ReconcileResult{Outcome: model.OutcomeIgnored, TxRef: payload.TxRef}, nil
	}

	if payload.TxRef == "" {
		r.logger.Warn().Msg("successful notification without tx_ref")
		return nil, model.InvalidRequest("missing tx_ref")
	}

	return r.Settle(ctx, payload.TxRef)
}

// Settle confirms txRef with the gateway and marks the matching order paid,
// decrementing stock for each item in the same transaction.
func (r *reconciler) Settle(ctx context.Context, txRef string) (*model.ReconcileResult, error) {
	log := r.logger.With().Str("tx_ref", txRef).Logger()

	verification, err := r.gateway.Verify(ctx, txRef)
	if err != nil {
		log.Error().Err(err).Msg("payment verification failed")
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}

	if !verification.Successful() {
		log.Info().
			Str("status", verification.Status).
			Str("payment_status", verification.Data.Status).
			Msg("gateway does not confirm payment")
		return &model.ReconcileResult{Outcome: model.OutcomeUnconfirmed, TxRef: txRef}, nil
	}

	order, err := r.orderRepo.GetByTransactionRef(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}
	if order == nil {
		log.Warn().Msg("confirmed payment matches no order")
		return &model.ReconcileResult{Outcome: model.OutcomeOrderNotFound, TxRef: txRef}, nil
	}

	result := &model.ReconcileResult{TxRef: txRef, OrderID: order.ID}
	log = log.With().Str("order_id", order.ID.String()).Logger()

	switch order.Status {
	case model.OrderStatusPaid:
		log.Info().Msg("order already paid")
		result.Outcome = model.OutcomeAlreadyPaid
		return result, nil
	case model.OrderStatusPending:
	default:
		log.Error().
			Str("status", string(order.Status)).
			Str("paid", verification.Data.Amount.String()).
			Msg("payment confirmed for order that cannot be paid; manual review required")
		result.Outcome = model.OutcomeNotPayable
		return result, nil
	}

	paid := verification.Data.Amount
	if paid.Sub(order.TotalAmount).Abs().GreaterThan(AmountTolerance) {
		log.Error().
			Str("expected", order.TotalAmount.String()).
			Str("paid", paid.String()).
			Str("currency", order.Currency).
			Msg("payment amount mismatch; order left pending for manual review")
		// The flag keeps the sweeper from re-verifying this reference.
		if err := r.orderRepo.FlagForReview(ctx, order.ID); err != nil {
			log.Error().Err(err).Msg("failed to flag order for review")
		}
		r.publish(ctx, events.NewPaymentDiscrepancy(events.PaymentDiscrepancy{
			OrderID:    order.ID,
			TxRef:      txRef,
			Expected:   order.TotalAmount,
			Paid:       paid,
			Currency:   order.Currency,
			DetectedAt: r.now().UTC(),
		}))
		return nil, model.ErrAmountMismatch
	}

	items, err := r.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	transitioned, err := r.markPaid(ctx, order.ID, items)
	if err != nil {
		log.Error().Err(err).Msg("failed to settle order")
		return nil, err
	}
	if !transitioned {
		log.Info().Msg("order settled by a concurrent delivery")
		result.Outcome = model.OutcomeAlreadyPaid
		return result, nil
	}

	log.Info().
		Str("amount", paid.String()).
		Int("item_count", len(items)).
		Msg("order paid")

	r.publish(ctx, events.NewOrderPaid(events.OrderPaid{
		OrderID:  order.ID,
		UserID:   order.UserID,
		TxRef:    txRef,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		PaidAt:   r.now().UTC(),
	}))

	result.Outcome = model.OutcomePaid
	return result, nil
}

// markPaid transitions the order and decrements stock atomically. It reports
// false, and writes nothing, when the order was no longer pending.
func (r *reconciler) markPaid(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) (transitioned bool, err error) {
	tx, err := r.orderRepo.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to settle order: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	transitioned, err = r.orderRepo.MarkPaid(ctx, tx, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to settle order: %w", err)
	}
	if !transitioned {
		return false, nil
	}

	for _, item := range items {
		if err = r.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return false, fmt.Errorf("failed to settle order: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to settle order: %w", err)
	}
	committed = true

	return true, nil
}

// publish emits an event without affecting the caller's outcome.
func (r *reconciler) publish(ctx context.Context, event events.Event) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Error().Err(err).Str("topic", event.Topic).Str("key", event.Key).Msg("failed to publish event")
	}
}
