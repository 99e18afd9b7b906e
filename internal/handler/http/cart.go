package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// CartHandler exposes the shopper's cart over HTTP.
type CartHandler struct {
	stores    *cart.Stores
	catalog   *catalog.Client
	publisher event.Publisher
	logger    *slog.Logger
}

// NewCartHandler creates the cart handler.
func NewCartHandler(stores *cart.Stores, c *catalog.Client, publisher event.Publisher, log *slog.Logger) *CartHandler {
	return &CartHandler{stores: stores, catalog: c, publisher: publisher, logger: log}
}

// cartView is the wire shape of a cart: lines plus the derived totals.
type cartView struct {
	Items    []domain.CartLine `json:"items"`
	Count    int               `json:"count"`
	Subtotal int64             `json:"subtotal"`
}

func viewOf(c domain.Cart) cartView {
	items := c.Lines
	if items == nil {
		items = []domain.CartLine{}
	}
	return cartView{Items: items, Count: c.Count(), Subtotal: c.Subtotal()}
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
}

// Get handles GET /api/v1/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	store := h.stores.ForSession(r.Context(), shopperID(w, r))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(store.Snapshot())})
}

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}
	if req.ProductID < 1 {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId must be a positive integer"), h.logger)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sid := shopperID(w, r)
	store := h.stores.ForSession(r.Context(), sid)
	snapshot := store.Add(r.Context(), *product)
	h.notifyUpdated(r, sid, snapshot)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(snapshot)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.Store).Remove)
}

// IncreaseItem handles POST /api/v1/cart/items/{productID}/increase.
func (h *CartHandler) IncreaseItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.Store).Increase)
}

// DecreaseItem handles POST /api/v1/cart/items/{productID}/decrease.
func (h *CartHandler) DecreaseItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.Store).Decrease)
}

// Clear handles DELETE /api/v1/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sid := shopperID(w, r)
	store := h.stores.ForSession(r.Context(), sid)
	snapshot := store.Clear(r.Context())

	if err := h.publisher.PublishCartCleared(r.Context(), sid); err != nil {
		h.logger.WarnContext(r.Context(), "failed to publish cart cleared event",
			slog.String("error", err.Error()),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(snapshot)})
}

func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, op func(*cart.Store, context.Context, int64) domain.Cart) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID < 1 {
		httputil.WriteError(w, r, apperrors.InvalidInput("product id must be a positive integer"), h.logger)
		return
	}

	sid := shopperID(w, r)
	store := h.stores.ForSession(r.Context(), sid)
	snapshot := op(store, r.Context(), productID)
	h.notifyUpdated(r, sid, snapshot)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(snapshot)})
}

func (h *CartHandler) notifyUpdated(r *http.Request, sessionID string, snapshot domain.Cart) {
	if err := h.publisher.PublishCartUpdated(r.Context(), sessionID, snapshot); err != nil {
		h.logger.WarnContext(r.Context(), "failed to publish cart updated event",
			slog.String("error", err.Error()),
		)
	}
}
