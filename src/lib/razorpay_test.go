package lib

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSignature(t *testing.T) {
	os.Setenv("RAZORPAY_KEY_SECRET", "test-key-secret")

	t.Run("Should accept its own signature", func(t *testing.T) {
		sig := SignPayment("order_123", "pay_456")
		assert.True(t, VerifyPaymentSignature("order_123", "pay_456", sig))
	})

	t.Run("Should reject a tampered payment id", func(t *testing.T) {
		sig := SignPayment("order_123", "pay_456")
		assert.False(t, VerifyPaymentSignature("order_123", "pay_457", sig))
	})

	t.Run("Should reject a forged signature", func(t *testing.T) {
		assert.False(t, VerifyPaymentSignature("order_123", "pay_456", "deadbeef"))
	})

	t.Run("Should reject an empty signature", func(t *testing.T) {
		assert.False(t, VerifyPaymentSignature("order_123", "pay_456", ""))
	})
}

func TestWebhookSignature(t *testing.T) {
	os.Setenv("RAZORPAY_WEBHOOK_SECRET", "webhook-secret")

	body := []byte(`{"event":"payment.captured"}`)
	mac := hmac.New(sha256.New, []byte("webhook-secret"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	t.Run("Should accept a correctly signed body", func(t *testing.T) {
		assert.True(t, VerifyWebhookSignature(body, sig))
	})

	t.Run("Should reject a modified body", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig))
	})

	t.Run("Should reject a forged signature", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(body, "bogus"))
	})
}

func TestRazorpayCreateOrder(t *testing.T) {
	t.Run("Should decode a created order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/orders", r.URL.Path)
			user, _, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "key-id", user)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"order_abc","amount":500,"currency":"USD","receipt":"receipt_order_x","status":"created"}`))
		}))
		defer server.Close()

		client := &RazorpayClient{
			BaseURL:   server.URL,
			KeyID:     "key-id",
			KeySecret: "key-secret",
			Inner:     &http.Client{Timeout: 5 * time.Second},
		}
		order, err := client.CreateOrder(context.Background(), 500, "USD", "receipt_order_x")
		assert.Nil(t, err)
		assert.Equal(t, "order_abc", order.ID)
		assert.Equal(t, uint(500), order.Amount)
	})

	t.Run("Should surface gateway errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"description":"Authentication failed"}}`))
		}))
		defer server.Close()

		client := &RazorpayClient{
			BaseURL:   server.URL,
			KeyID:     "key-id",
			KeySecret: "wrong",
			Inner:     &http.Client{Timeout: 5 * time.Second},
		}
		_, err := client.CreateOrder(context.Background(), 500, "USD", "receipt_order_x")
		assert.NotNil(t, err)
	})
}
