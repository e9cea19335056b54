// services/email_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ResendClient sends transactional email through the Resend HTTP API.
type ResendClient struct {
	APIKey     string
	From       string
	AppBaseURL string
	HTTPClient *http.Client
}

// NewResendClient returns nil when RESEND_API_KEY is not configured; callers
// treat a nil mailer as "email disabled".
func NewResendClient() *ResendClient {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil
	}
	from := os.Getenv("RESEND_FROM")
	if from == "" {
		from = "no-reply@localhost"
	}
	return &ResendClient{
		APIKey:     apiKey,
		From:       from,
		AppBaseURL: os.Getenv("APP_BASE_URL"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *ResendClient) send(to, subject, html string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    r.From,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (r *ResendClient) SendVerificationEmail(to, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify/%s", r.AppBaseURL, token)
	html := fmt.Sprintf(`<p>Welcome! Confirm your email by opening <a href="%s">this link</a>.</p>`, link)
	return r.send(to, "Verify your email", html)
}

func (r *ResendClient) SendAdStatusEmail(to, adTitle, status, reason string) error {
	html := fmt.Sprintf("<p>Your ad %q is now <b>%s</b>.</p>", adTitle, status)
	if reason != "" {
		html += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	return r.send(to, "Ad status update", html)
}
