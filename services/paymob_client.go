// services/paymob_client.go
package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// PaymobClient wraps the Paymob Accept API behind a Stripe-shaped surface:
// checkout session, webhook event, refund.
type PaymobClient struct {
	APIKey        string
	IntegrationID int64
	IframeID      string
	HMACSecret    string
	BaseURL       string
	HTTPClient    *http.Client
}

func NewPaymobClient() *PaymobClient {
	integrationID, _ := strconv.ParseInt(os.Getenv("PAYMOB_INTEGRATION_ID"), 10, 64)
	baseURL := os.Getenv("PAYMOB_BASE_URL")
	if baseURL == "" {
		baseURL = "https://accept.paymob.com/api"
	}
	return &PaymobClient{
		APIKey:        os.Getenv("PAYMOB_API_KEY"),
		IntegrationID: integrationID,
		IframeID:      os.Getenv("PAYMOB_IFRAME_ID"),
		HMACSecret:    os.Getenv("PAYMOB_HMAC_SECRET"),
		BaseURL:       baseURL,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *PaymobClient) postJSON(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := p.HTTPClient.Post(p.BaseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("paymob request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("paymob returned status %d: %s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// authToken exchanges the API key for a short-lived auth token.
func (p *PaymobClient) authToken() (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := p.postJSON("/auth/tokens", map[string]string{"api_key": p.APIKey}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// CreateCheckout registers an order and requests a payment key, returning the
// gateway order id and the hosted checkout URL.
func (p *PaymobClient) CreateCheckout(amountCents int64, currency, merchantOrderID string) (int64, string, error) {
	token, err := p.authToken()
	if err != nil {
		return 0, "", fmt.Errorf("paymob auth: %w", err)
	}

	var orderResp struct {
		ID int64 `json:"id"`
	}
	err = p.postJSON("/ecommerce/orders", map[string]interface{}{
		"auth_token":        token,
		"amount_cents":      amountCents,
		"currency":          currency,
		"merchant_order_id": merchantOrderID,
		"items":             []interface{}{},
	}, &orderResp)
	if err != nil {
		return 0, "", fmt.Errorf("paymob order registration: %w", err)
	}

	var keyResp struct {
		Token string `json:"token"`
	}
	err = p.postJSON("/acceptance/payment_keys", map[string]interface{}{
		"auth_token":     token,
		"amount_cents":   amountCents,
		"currency":       currency,
		"order_id":       orderResp.ID,
		"expiration":     3600,
		"integration_id": p.IntegrationID,
		"billing_data": map[string]string{
			"first_name": "NA", "last_name": "NA", "email": "NA",
			"phone_number": "NA", "apartment": "NA", "floor": "NA",
			"street": "NA", "building": "NA", "city": "NA",
			"country": "NA", "state": "NA", "postal_code": "NA",
		},
	}, &keyResp)
	if err != nil {
		return 0, "", fmt.Errorf("paymob payment key: %w", err)
	}

	checkoutURL := fmt.Sprintf("https://accept.paymob.com/api/acceptance/iframes/%s?payment_token=%s",
		p.IframeID, keyResp.Token)
	return orderResp.ID, checkoutURL, nil
}

// Refund issues a gateway refund for a captured transaction.
func (p *PaymobClient) Refund(transactionID string, amountCents int64) error {
	token, err := p.authToken()
	if err != nil {
		return fmt.Errorf("paymob auth: %w", err)
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	err = p.postJSON("/acceptance/void_refund/refund", map[string]interface{}{
		"auth_token":     token,
		"transaction_id": transactionID,
		"amount_cents":   amountCents,
	}, &resp)
	if err != nil {
		return fmt.Errorf("paymob refund: %w", err)
	}
	return nil
}

// TransactionCallback is the webhook payload subset involved in HMAC
// verification and dispatch.
type TransactionCallback struct {
	ID                   int64  `json:"id"`
	AmountCents          int64  `json:"amount_cents"`
	CreatedAt            string `json:"created_at"`
	Currency             string `json:"currency"`
	ErrorOccured         bool   `json:"error_occured"`
	HasParentTransaction bool   `json:"has_parent_transaction"`
	IntegrationID        int64  `json:"integration_id"`
	Is3DSecure           bool   `json:"is_3d_secure"`
	IsAuth               bool   `json:"is_auth"`
	IsCapture            bool   `json:"is_capture"`
	IsRefunded           bool   `json:"is_refunded"`
	IsStandalonePayment  bool   `json:"is_standalone_payment"`
	IsVoided             bool   `json:"is_voided"`
	Order                struct {
		ID int64 `json:"id"`
	} `json:"order"`
	Owner      int64 `json:"owner"`
	Pending    bool  `json:"pending"`
	SourceData struct {
		Pan     string `json:"pan"`
		SubType string `json:"sub_type"`
		Type    string `json:"type"`
	} `json:"source_data"`
	Success bool `json:"success"`
}

// hmacFields returns the payload fields in the gateway's fixed positional
// order. The signature is HMAC-SHA512 over their bare concatenation.
func (t *TransactionCallback) hmacFields() []string {
	return []string{
		strconv.FormatInt(t.AmountCents, 10),
		t.CreatedAt,
		t.Currency,
		strconv.FormatBool(t.ErrorOccured),
		strconv.FormatBool(t.HasParentTransaction),
		strconv.FormatInt(t.ID, 10),
		strconv.FormatInt(t.IntegrationID, 10),
		strconv.FormatBool(t.Is3DSecure),
		strconv.FormatBool(t.IsAuth),
		strconv.FormatBool(t.IsCapture),
		strconv.FormatBool(t.IsRefunded),
		strconv.FormatBool(t.IsStandalonePayment),
		strconv.FormatBool(t.IsVoided),
		strconv.FormatInt(t.Order.ID, 10),
		strconv.FormatInt(t.Owner, 10),
		strconv.FormatBool(t.Pending),
		t.SourceData.Pan,
		t.SourceData.SubType,
		t.SourceData.Type,
		strconv.FormatBool(t.Success),
	}
}

// ComputeHMAC produces the hex signature the gateway would send for this
// payload under the given secret.
func ComputeHMAC(t *TransactionCallback, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	for _, field := range t.hmacFields() {
		mac.Write([]byte(field))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares in constant time.
func (p *PaymobClient) VerifyHMAC(t *TransactionCallback, provided string) bool {
	if provided == "" || p.HMACSecret == "" {
		return false
	}
	expected := ComputeHMAC(t, p.HMACSecret)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// EventType synthesizes a Stripe-style event type from the transaction flags.
func (t *TransactionCallback) EventType() string {
	if t.Success && !t.Pending {
		return "checkout.session.completed"
	}
	return "payment_intent.payment_failed"
}
