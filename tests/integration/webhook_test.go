//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestPaymentFlow_Success(t *testing.T) {
	userID := "webhook-user-1"
	addToCart(t, userID, "p1", 1)
	order := placeOrder(t, userID)

	payment := initiatePayment(t, order.ID, order.TotalAmount)
	if payment.Status != "PENDING" {
		t.Errorf("payment status: got %q, want PENDING", payment.Status)
	}
	if !strings.HasPrefix(payment.PaymentID, "pay_") {
		t.Errorf("payment reference %q missing pay_ prefix", payment.PaymentID)
	}

	if code := sendWebhook(t, order.ID, "SUCCESS", "ext_hook_1"); code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", code)
	}

	settled := getOrder(t, order.ID)
	if settled.Status != "PAID" {
		t.Errorf("order status: got %q, want PAID", settled.Status)
	}
	if settled.Payment == nil {
		t.Fatal("order detail missing payment")
	}
	if settled.Payment.Status != "SUCCESS" {
		t.Errorf("payment status: got %q, want SUCCESS", settled.Payment.Status)
	}
	if settled.Payment.PaymentID != "ext_hook_1" {
		t.Errorf("payment reference: got %q, want ext_hook_1", settled.Payment.PaymentID)
	}
}

func TestPaymentFlow_Failed(t *testing.T) {
	userID := "webhook-user-2"
	addToCart(t, userID, "p2", 1)
	order := placeOrder(t, userID)
	initiatePayment(t, order.ID, order.TotalAmount)

	if code := sendWebhook(t, order.ID, "FAILED", ""); code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", code)
	}

	failed := getOrder(t, order.ID)
	if failed.Status != "FAILED" {
		t.Errorf("order status: got %q, want FAILED", failed.Status)
	}
}

func TestWebhook_DuplicateDelivery(t *testing.T) {
	userID := "webhook-user-3"
	addToCart(t, userID, "p1", 1)
	order := placeOrder(t, userID)
	initiatePayment(t, order.ID, order.TotalAmount)

	for i := range 3 {
		if code := sendWebhook(t, order.ID, "SUCCESS", "ext_dup"); code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i+1, code)
		}
	}

	settled := getOrder(t, order.ID)
	if settled.Status != "PAID" {
		t.Errorf("order status after duplicates: got %q, want PAID", settled.Status)
	}
}

func TestWebhook_LateFailureDoesNotFlipSettledOrder(t *testing.T) {
	userID := "webhook-user-4"
	addToCart(t, userID, "p1", 1)
	order := placeOrder(t, userID)
	initiatePayment(t, order.ID, order.TotalAmount)

	if code := sendWebhook(t, order.ID, "SUCCESS", ""); code != http.StatusOK {
		t.Fatalf("success webhook: expected 200, got %d", code)
	}
	if code := sendWebhook(t, order.ID, "FAILED", ""); code != http.StatusOK {
		t.Fatalf("late failure webhook: expected 200, got %d", code)
	}

	settled := getOrder(t, order.ID)
	if settled.Status != "PAID" {
		t.Errorf("order status: got %q, want PAID", settled.Status)
	}
}

func TestWebhook_UnknownStatusLeavesOrderUntouched(t *testing.T) {
	userID := "webhook-user-5"
	addToCart(t, userID, "p2", 1)
	order := placeOrder(t, userID)
	initiatePayment(t, order.ID, order.TotalAmount)

	if code := sendWebhook(t, order.ID, "PROCESSING", ""); code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", code)
	}

	current := getOrder(t, order.ID)
	if current.Status != "CREATED" {
		t.Errorf("order status: got %q, want CREATED", current.Status)
	}
	if current.Payment == nil || current.Payment.Status != "PROCESSING" {
		t.Error("payment status not recorded verbatim")
	}
}

func TestWebhook_NoPaymentForOrder(t *testing.T) {
	userID := "webhook-user-6"
	addToCart(t, userID, "p5", 1)
	order := placeOrder(t, userID)

	if code := sendWebhook(t, order.ID, "SUCCESS", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestWebhook_MissingFields(t *testing.T) {
	resp := doPost(t, "/api/webhooks/payment", map[string]any{"orderId": "x"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreatePayment_SettledOrderRejected(t *testing.T) {
	userID := "webhook-user-7"
	addToCart(t, userID, "p1", 1)
	order := placeOrder(t, userID)
	initiatePayment(t, order.ID, order.TotalAmount)
	sendWebhook(t, order.ID, "SUCCESS", "")

	resp := doPost(t, "/api/payments", map[string]any{
		"orderId": order.ID,
		"amount":  order.TotalAmount,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
