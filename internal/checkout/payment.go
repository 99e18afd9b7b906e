package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// PaymentRequest carries the card details and amount for a charge.
type PaymentRequest struct {
	Amount     int64
	Currency   string
	CardNumber string
	Expiry     string
	CVV        string
}

// PaymentResult is returned by a successful charge.
type PaymentResult struct {
	TransactionID string
}

// PaymentProvider charges a payment method.
type PaymentProvider interface {
	Charge(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
}

// MockProvider simulates a payment gateway. Charges succeed unless the card
// number ends in "0000", which forces a decline for testing the failure path.
type MockProvider struct{}

// NewMockProvider creates the simulated gateway.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Charge(_ context.Context, req PaymentRequest) (*PaymentResult, error) {
	if req.Amount <= 0 {
		return nil, apperrors.InvalidInput("charge amount must be positive")
	}
	if strings.HasSuffix(req.CardNumber, "0000") {
		return nil, apperrors.PaymentFailed("card declined")
	}
	return &PaymentResult{TransactionID: uuid.New().String()}, nil
}
