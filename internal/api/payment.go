package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// CreatePayment handles POST /api/payments.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		orderID string
		amount  decimal.Decimal
	)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderId":
			orderID, err = d.Str()
		case "amount":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				amount, err = decimal.NewFromString(num.String())
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	p, err := h.payments.CreatePayment(r.Context(), orderID, amount)
	if err != nil {
		var stateErr *payment.InvalidOrderStateError
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.As(err, &stateErr):
			writeError(w, http.StatusConflict, stateErr.Error())
		default:
			internalError(w, r, err)
		}
		return
	}

	var e jx.Encoder
	encodePayment(&e, p)
	writeJSON(w, http.StatusCreated, &e)
}

// PaymentWebhook handles POST /api/webhooks/payment, the asynchronous
// callback from the payment provider.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var orderID, status, externalPaymentID string
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderId":
			orderID, err = d.Str()
		case "status":
			status, err = d.Str()
		case "paymentId":
			externalPaymentID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if orderID == "" || status == "" {
		writeError(w, http.StatusBadRequest, "orderId and status are required")
		return
	}

	if err := h.payments.ApplyWebhook(r.Context(), orderID, status, externalPaymentID); err != nil {
		switch {
		case errors.Is(err, payment.ErrNotFound):
			writeError(w, http.StatusNotFound, "payment not found for order")
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			internalError(w, r, err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Webhook processed successfully")
}

func encodePayment(e *jx.Encoder, p *payment.Payment) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("orderId")
	e.Str(p.OrderID)
	e.FieldStart("amount")
	encodeDecimal(e, p.Amount)
	e.FieldStart("paymentId")
	e.Str(p.PaymentID)
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.ObjEnd()
}
