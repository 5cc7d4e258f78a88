package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

type addToCartRequest struct {
	UserID    string
	ProductID string
	Quantity  int
}

func decodeAddToCart(d *jx.Decoder) (req addToCartRequest, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "userId":
			req.UserID, err = d.Str()
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// AddToCart handles POST /api/cart/add.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeAddToCart(d)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "userId and productId are required")
		return
	}

	item, err := h.carts.AddItem(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		var stockErr *cart.InsufficientStockError
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, product.ErrNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.As(err, &stockErr):
			writeError(w, http.StatusConflict, stockErr.Error())
		default:
			internalError(w, r, err)
		}
		return
	}

	var e jx.Encoder
	encodeCartItem(&e, item)
	writeJSON(w, http.StatusCreated, &e)
}

// GetCart handles GET /api/cart/{userID}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	lines, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range lines {
		encodeCartLine(&e, &lines[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// ClearCart handles DELETE /api/cart/{userID}/clear.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		internalError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Cart cleared successfully")
}

func encodeCartItem(e *jx.Encoder, it *cart.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("userId")
	e.Str(it.UserID)
	e.FieldStart("productId")
	e.Str(it.ProductID)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.ObjEnd()
}

func encodeCartLine(e *jx.Encoder, line *cart.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(line.Item.ID)
	e.FieldStart("productId")
	e.Str(line.Item.ProductID)
	e.FieldStart("quantity")
	e.Int(line.Item.Quantity)
	e.FieldStart("product")
	if line.Product != nil {
		encodeProduct(e, line.Product)
	} else {
		e.Null()
	}
	e.ObjEnd()
}
