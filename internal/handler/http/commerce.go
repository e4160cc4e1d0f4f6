package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/service"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
)

// CartHandler serves the cart and checkout endpoints.
type CartHandler struct {
	cart     Carts
	checkout Checkout
	logger   *slog.Logger
}

func NewCartHandler(cart Carts, checkout Checkout, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkout, logger: logger}
}

// --- Request DTOs ---

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartItemRequest allows zero, which removes the line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type PaymentRequest struct {
	TransactionID string `json:"transaction_id" validate:"max=100"`
	PaymentID     string `json:"payment_id" validate:"max=100"`
	Method        string `json:"payment_method" validate:"max=50"`
	Status        string `json:"payment_status" validate:"max=50"`
}

type PlaceOrderRequest struct {
	Address string         `json:"address" validate:"required,max=500"`
	Payment PaymentRequest `json:"payment"`
}

// --- Cart ---

// AddItem handles POST /api/v1/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.cart.AddItem(r.Context(), caller(r).AccountID, req.ProductID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeCart(w, r, http.StatusCreated)
}

// GetCart handles GET /api/v1/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

// UpdateItem handles PUT /api/v1/cart/items/{productID}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	var req UpdateCartItemRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.cart.UpdateQuantity(r.Context(), caller(r).AccountID, productID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("product id is required"), h.logger)
		return
	}
	if err := h.cart.RemoveItem(r.Context(), caller(r).AccountID, productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *CartHandler) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	view, err := h.cart.Cart(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, view)
}

// --- Checkout ---

// Summary handles GET /api/v1/checkout/summary.
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	view, err := h.checkout.Summary(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// PlaceOrder handles POST /api/v1/checkout/orders.
func (h *CartHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	order, err := h.checkout.PlaceOrder(r.Context(), caller(r).AccountID, service.PlaceOrderInput{
		Address: req.Address,
		Payment: domain.Payment{
			TransactionID: req.Payment.TransactionID,
			PaymentID:     req.Payment.PaymentID,
			Method:        req.Payment.Method,
			Status:        req.Payment.Status,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}
