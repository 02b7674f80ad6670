// Package email delivers OTP messages through the Resend HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	defaultFrom    = "Auth <onboarding@resend.dev>"
)

// ErrSendFailed is returned when the Resend API rejects a message.
var ErrSendFailed = errors.New("email send failed")

// Config configures a [ResendSender].
type Config struct {
	// APIKey is the Resend secret key. Required.
	APIKey string
	// From overrides the default sender address.
	From string
	// HTTPClient overrides the default client, which uses a 10s timeout.
	HTTPClient *http.Client
}

// ResendSender sends OTP emails via Resend. It satisfies the engine's
// Notifier interface.
type ResendSender struct {
	apiKey   string
	from     string
	client   *http.Client
	endpoint string
}

// NewResendSender validates cfg and returns a sender.
func NewResendSender(cfg Config) (*ResendSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend api key required")
	}

	from := cfg.From
	if from == "" {
		from = defaultFrom
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &ResendSender{
		apiKey:   cfg.APIKey,
		from:     from,
		client:   client,
		endpoint: resendEndpoint,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// SendOTPEmail renders the verification template and posts it to Resend.
func (s *ResendSender) SendOTPEmail(ctx context.Context, to, name, code string) error {
	subject, htmlBody, textBody := otpTemplate(name, code)

	payload, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

func otpTemplate(name, code string) (subject, htmlBody, textBody string) {
	subject = "Your verification code"
	htmlBody = fmt.Sprintf(`<div style="font-family: sans-serif">
  <h2>Hey %s</h2>
  <h2>Verification Code</h2>
  <p>Your OTP code is:</p>
  <h1 style="letter-spacing: 4px">%s</h1>
  <p>This code will expire soon.</p>
</div>`, html.EscapeString(name), html.EscapeString(code))
	textBody = "Your OTP code is: " + code
	return subject, htmlBody, textBody
}
