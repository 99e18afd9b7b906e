package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

const currency = "USD"

// PlaceOrderInput is the checkout form: shipping contact plus card details.
// Card details are validated but never stored.
type PlaceOrderInput struct {
	FirstName  string `json:"firstName" validate:"required,max=64"`
	LastName   string `json:"lastName" validate:"required,max=64"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Address    string `json:"address" validate:"required,max=256"`
	City       string `json:"city" validate:"required,max=64"`
	ZipCode    string `json:"zipCode" validate:"required,min=4,max=10"`
	CardNumber string `json:"cardNumber" validate:"required,len=16,numeric"`
	Expiry     string `json:"expiry" validate:"required,len=5"`
	CVV        string `json:"cvv" validate:"required,len=3,numeric"`
}

// Service turns a session's cart into a persisted order.
type Service struct {
	orders    repository.OrderRepository
	payments  PaymentProvider
	publisher event.Publisher
	logger    *slog.Logger
}

// NewService creates the checkout service.
func NewService(orders repository.OrderRepository, payments PaymentProvider, publisher event.Publisher, log *slog.Logger) *Service {
	return &Service{orders: orders, payments: payments, publisher: publisher, logger: log}
}

// PlaceOrder validates the form, charges payment, persists the order, and
// empties the shopper's cart. The cart is cleared only after the order is
// safely stored; any earlier failure leaves it untouched.
func (s *Service) PlaceOrder(ctx context.Context, sess *domain.Session, store *cart.Store, input PlaceOrderInput) (*domain.Order, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	snapshot := store.Snapshot()
	if len(snapshot.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	subtotal := snapshot.Subtotal()
	result, err := s.payments.Charge(ctx, PaymentRequest{
		Amount:     subtotal,
		Currency:   currency,
		CardNumber: input.CardNumber,
		Expiry:     input.Expiry,
		CVV:        input.CVV,
	})
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:             uuid.New().String(),
		UserID:         sess.ID,
		Status:         domain.OrderStatusPlaced,
		SubtotalAmount: subtotal,
		TotalAmount:    subtotal,
		Currency:       currency,
		Shipping: domain.Contact{
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Email:     input.Email,
			Phone:     input.Phone,
			Address:   input.Address,
			City:      input.City,
			ZipCode:   input.ZipCode,
		},
		CreatedAt: time.Now().UTC(),
	}
	for _, line := range snapshot.Lines {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("transaction_id", result.TransactionID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("items", len(order.Items)),
	)

	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	store.Clear(ctx)
	if err := s.publisher.PublishCartCleared(ctx, sess.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart cleared event",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}

	return order, nil
}

// ListOrders returns the session's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
