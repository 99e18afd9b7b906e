package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CheckoutHandler places orders and lists order history. Both endpoints sit
// behind RequireAuth.
type CheckoutHandler struct {
	service *checkout.Service
	stores  *cart.Stores
	logger  *slog.Logger
}

// NewCheckoutHandler creates the checkout handler.
func NewCheckoutHandler(service *checkout.Service, stores *cart.Stores, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, stores: stores, logger: log}
}

// PlaceOrder handles POST /api/v1/checkout.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("login required"), h.logger)
		return
	}

	var input checkout.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	store := h.stores.ForSession(r.Context(), sess.ID)
	order, err := h.service.PlaceOrder(r.Context(), sess, store, input)
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders.
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("login required"), h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), sess.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}
