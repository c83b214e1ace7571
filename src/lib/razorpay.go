package lib

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   uint   `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentProvider is the external payment gateway boundary. Orders are
// created remotely; confirmation arrives later as a signed callback.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, amount uint, currency string, receipt string) (*PaymentOrder, error)
}

type RazorpayClient struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Inner     *http.Client
}

var paymentProvider PaymentProvider

func GetPaymentProvider() PaymentProvider {
	if paymentProvider != nil {
		return paymentProvider
	}
	client := &RazorpayClient{
		BaseURL:   razorpayBaseURL,
		KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		Inner:     &http.Client{Timeout: 15 * time.Second},
	}
	paymentProvider = client
	return client
}

// NewPaymentProvider Replace provider instance with custom implementation
func NewPaymentProvider(p PaymentProvider) PaymentProvider {
	paymentProvider = p
	return paymentProvider
}

func (r *RazorpayClient) CreateOrder(ctx context.Context, amount uint, currency string, receipt string) (*PaymentOrder, error) {
	payload := map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.KeyID, r.KeySecret)

	res, err := r.Inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		log.Printf("[razorpay] Order creation failed: %s\n", string(resBody))
		return nil, fmt.Errorf("order creation failed with status %d", res.StatusCode)
	}
	var order PaymentOrder
	if err := json.Unmarshal(resBody, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SignPayment computes the HMAC-SHA256 of "orderId|paymentId" with the
// gateway key secret, the same construction the gateway uses for checkout
// signatures.
func SignPayment(orderID, paymentID string) string {
	secret := os.Getenv("RAZORPAY_KEY_SECRET")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the signature delivered with a payment
// confirmation against a freshly computed one.
func VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := SignPayment(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the HMAC-SHA256 of the raw webhook body.
func VerifyWebhookSignature(body []byte, signature string) bool {
	secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
