package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutSettings holds the fixed parameters of every payment session.
type CheckoutSettings struct {
	Currency    string
	CallbackURL string
	// ReturnURLBase is joined with the order ID to form the return URL.
	ReturnURLBase string
	Title         string
	Description   string
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	gateway     payment.Gateway
	settings    CheckoutSettings
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	gateway payment.Gateway,
	settings CheckoutSettings,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		gateway:     gateway,
		settings:    settings,
		now:         time.Now,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// NewTxRef mints a payment reference namespaced by order ID.
func NewTxRef(orderID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("tx-%s-%d", orderID, at.UnixMilli())
}

// Checkout validates a cart, records a pending order and opens a payment session.
func (s *checkoutService) Checkout(ctx context.Context, customer model.Customer, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := s.validateCheckoutRequest(customer, req); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = customer.Email
	}

	seen := make(map[uuid.UUID]bool, len(req.Items))
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ID] {
			seen[item.ID] = true
			ids = append(ids, item.ID)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(ids)).Msg("failed to load cart products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	catalogue := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		if p.IsActive {
			catalogue[p.ID] = p
		}
	}

	for _, id := range ids {
		if _, ok := catalogue[id]; !ok {
			s.logger.Warn().Str("product_id", id.String()).Msg("cart references unknown product")
			return nil, model.ErrProductNotFound
		}
	}

	// Each line is compared against what is left before it is added, so the
	// running total never exceeds stock and cannot overflow.
	requested := make(map[uuid.UUID]int, len(ids))
	for _, line := range req.Items {
		p := catalogue[line.ID]
		if line.Quantity > p.StockQuantity-requested[line.ID] {
			wanted := saturatingAdd(requested[line.ID], line.Quantity)
			s.logger.Info().
				Str("product_id", p.ID.String()).
				Int("available", p.StockQuantity).
				Int("requested", wanted).
				Msg("insufficient stock")
			return nil, &model.InsufficientStockError{
				ProductID:   p.ID.String(),
				ProductName: p.Name,
				Available:   p.StockQuantity,
				Requested:   wanted,
			}
		}
		requested[line.ID] += line.Quantity
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:        uuid.New(),
		UserID:    customer.ID,
		Status:    model.OrderStatusPending,
		Currency:  s.settings.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Prices are snapshotted from the read above, not re-read.
	items := make([]model.OrderItem, len(req.Items))
	total := decimal.Zero
	for i, line := range req.Items {
		items[i] = model.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       line.ID,
			Quantity:        line.Quantity,
			PriceAtPurchase: catalogue[line.ID].Price,
		}
		total = total.Add(items[i].Subtotal())
	}
	order.TotalAmount = total

	if err := s.createOrder(ctx, order, items); err != nil {
		return nil, err
	}

	txRef := NewTxRef(order.ID, s.now())
	checkoutURL, err := s.initiate(ctx, order, customer, email, txRef)
	if err != nil {
		return nil, err
	}

	stored, err := s.orderRepo.SetTransactionRef(ctx, order.ID, txRef)
	if err != nil || !stored {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("tx_ref", txRef).
			Msg("payment session opened but transaction reference not recorded")
		if err == nil {
			err = model.ErrOrderStateConflict
		}
		return nil, fmt.Errorf("failed to record transaction reference: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("tx_ref", txRef).
		Str("total", total.StringFixed(2)).
		Int("item_count", len(items)).
		Msg("checkout initiated")

	return &model.CheckoutResponse{OrderID: order.ID, CheckoutURL: checkoutURL}, nil
}

// Recheckout opens a fresh payment session for a pending order owned by the customer.
func (s *checkoutService) Recheckout(ctx context.Context, customer model.Customer, orderID uuid.UUID) (*model.CheckoutResponse, error) {
	order, err := s.orderRepo.GetForUser(ctx, orderID, customer.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to load order for re-checkout")
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.OrderStatusPending {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("status", string(order.Status)).
			Msg("re-checkout rejected for non-pending order")
		return nil, model.ErrOrderStateConflict
	}

	// Persist before calling out so a webhook for the new reference always
	// resolves to this order.
	txRef := NewTxRef(order.ID, s.now())
	stored, err := s.orderRepo.SetTransactionRef(ctx, order.ID, txRef)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Str("tx_ref", txRef).Msg("failed to record transaction reference")
		return nil, fmt.Errorf("failed to record transaction reference: %w", err)
	}
	if !stored {
		return nil, model.ErrOrderStateConflict
	}

	checkoutURL, err := s.initiate(ctx, order, customer, customer.Email, txRef)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("tx_ref", txRef).
		Msg("re-checkout initiated")

	return &model.CheckoutResponse{OrderID: order.ID, CheckoutURL: checkoutURL}, nil
}

// createOrder writes the order and its items in one transaction.
func (s *checkoutService) createOrder(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// initiate asks the gateway for a hosted payment page. Any failure leaves the
// order pending.
func (s *checkoutService) initiate(ctx context.Context, order *model.Order, customer model.Customer, email, txRef string) (string, error) {
	firstName, lastName := customer.NameParts()

	resp, err := s.gateway.Initiate(ctx, payment.InitiateRequest{
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		CallbackURL: s.settings.CallbackURL,
		ReturnURL:   s.settings.ReturnURLBase + order.ID.String(),
		TxRef:       txRef,
		Customization: payment.Customization{
			Title:       s.settings.Title,
			Description: s.settings.Description,
		},
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("tx_ref", txRef).
			Msg("payment initiation failed")
		return "", fmt.Errorf("%w: %w", model.ErrPaymentInitiationFailed, err)
	}

	if !resp.Accepted() {
		s.logger.Error().
			Str("order_id", order.ID.String()).
			Str("tx_ref", txRef).
			Str("gateway_status", resp.Status).
			Str("gateway_message", resp.Message).
			Msg("payment initiation rejected")
		return "", fmt.Errorf("%w: gateway status %q", model.ErrPaymentInitiationFailed, resp.Status)
	}

	return resp.Data.CheckoutURL, nil
}

// validateCheckoutRequest validates the checkout request.
func (s *checkoutService) validateCheckoutRequest(customer model.Customer, req *model.CheckoutRequest) error {
	if customer.ID == uuid.Nil {
		return model.ErrUnauthenticated
	}

	if req == nil {
		return model.InvalidRequest("checkout request is nil")
	}

	if len(req.Items) == 0 {
		return model.InvalidRequest("cart is empty")
	}

	for i, item := range req.Items {
		if item.ID == uuid.Nil {
			return model.InvalidRequest("item %d: product id is required", i)
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ID.String()).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.InvalidRequest("item %d: quantity must be positive", i)
		}
	}

	if strings.TrimSpace(req.Email) == "" && customer.Email == "" {
		return model.InvalidRequest("email is required")
	}

	return nil
}

func saturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}
