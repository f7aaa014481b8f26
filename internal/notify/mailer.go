package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const brevoSendPath = "/v3/smtp/email"

// Mailer delivers one rendered message to one address.
type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

// MailerOptions parameterise the transactional email client.
type MailerOptions struct {
	APIKey        string
	BaseURL       string
	SenderName    string
	SenderAddress string
	Timeout       time.Duration
}

// BrevoMailer sends messages through the Brevo transactional email API.
type BrevoMailer struct {
	opts    MailerOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBrevoMailer constructs a Brevo mailer.
func NewBrevoMailer(opts MailerOptions, logger zerolog.Logger) *BrevoMailer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.brevo.com"
	}

	return &BrevoMailer{
		opts:    opts,
		logger:  logger.With().Str("component", "mailer").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type sendRequest struct {
	Sender      sendParty   `json:"sender"`
	To          []sendParty `json:"to"`
	Subject     string      `json:"subject"`
	TextContent string      `json:"textContent"`
}

type sendParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Send posts one email. Non-2xx responses are errors; the caller decides
// whether that aborts anything (the dispatcher never lets it).
func (m *BrevoMailer) Send(ctx context.Context, to string, msg Message) error {
	if m.opts.APIKey == "" {
		return fmt.Errorf("email api key not configured")
	}

	payload := sendRequest{
		Sender:      sendParty{Name: m.opts.SenderName, Email: m.opts.SenderAddress},
		To:          []sendParty{{Email: to}},
		Subject:     msg.Subject,
		TextContent: msg.Body,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+brevoSendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.opts.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	m.logger.Debug().Str("to", to).Msg("email accepted")
	return nil
}

var _ Mailer = (*BrevoMailer)(nil)
