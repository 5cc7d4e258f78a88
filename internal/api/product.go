package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/product"
)

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := product.Product{CreatedAt: time.Now().UTC()}
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(num.String())
			}
		case "stock":
			p.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if p.Price.IsNegative() || p.Stock < 0 {
		writeError(w, http.StatusBadRequest, "price and stock must not be negative")
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, &p)
	writeJSON(w, http.StatusCreated, &e)
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct handles GET /api/products/{productID}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.ObjEnd()
}
