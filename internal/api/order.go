package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var userID string
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "userId":
			userID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), userID)
	if err != nil {
		var (
			notFoundErr *order.ProductNotFoundError
			stockErr    *order.InsufficientStockError
		)
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.As(err, &notFoundErr):
			writeError(w, http.StatusNotFound, notFoundErr.Error())
		case errors.As(err, &stockErr):
			writeError(w, http.StatusConflict, stockErr.Error())
		// The commit re-checks stock inside its transaction; losing that race
		// (or the product vanishing mid-checkout) surfaces as the bare
		// sentinels rather than the per-line typed errors.
		case errors.Is(err, product.ErrNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, product.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "insufficient stock")
		default:
			internalError(w, r, err)
		}
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder handles GET /api/orders/{orderID}. The response embeds the
// associated payment when one exists; its absence is not an error.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	o, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, err)
		return
	}

	p, err := h.payments.GetByOrderID(r.Context(), orderID)
	if err != nil && !errors.Is(err, payment.ErrNotFound) {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrderDetail(&e, o, p)
	writeJSON(w, http.StatusOK, &e)
}

// GetUserOrders handles GET /api/orders/user/{userID}.
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	orders, err := h.orders.GetUserOrders(r.Context(), userID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	encodeOrderFields(e, o)
	e.ObjEnd()
}

func encodeOrderDetail(e *jx.Encoder, o *order.Order, p *payment.Payment) {
	e.ObjStart()
	encodeOrderFields(e, o)
	if p != nil {
		e.FieldStart("payment")
		encodePayment(e, p)
	}
	e.ObjEnd()
}

func encodeOrderFields(e *jx.Encoder, o *order.Order) {
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)
	e.FieldStart("totalAmount")
	encodeDecimal(e, o.TotalAmount)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	e.FieldStart("items")
	e.ArrStart()
	for _, line := range o.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(line.ProductID)
		e.FieldStart("productName")
		e.Str(line.ProductName)
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		e.FieldStart("price")
		encodeDecimal(e, line.Price)
		e.ObjEnd()
	}
	e.ArrEnd()
}
