package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"tender-server/internal/domain/notification"
)

// HTTPMailer posts emails to a transactional email API.
type HTTPMailer struct {
	client *resty.Client
	from   string
	log    zerolog.Logger
}

var _ notification.Mailer = (*HTTPMailer)(nil)

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type errorResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// NewHTTPMailer creates a mailer for baseURL authenticated with apiKey.
func NewHTTPMailer(baseURL, apiKey, from string, timeout time.Duration, log zerolog.Logger) *HTTPMailer {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "Tender-Marketplace/1.0").
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPMailer{
		client: client,
		from:   from,
		log:    log.With().Str("component", "http-mailer").Logger(),
	}
}

func (m *HTTPMailer) Send(ctx context.Context, email notification.OutgoingEmail) error {
	var apiErr errorResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(sendRequest{
			From:    m.from,
			To:      []string{email.To},
			Subject: email.Subject,
			Text:    email.Body,
		}).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("email API returned %d: %s", resp.StatusCode(), apiErr.Message)
		}
		return fmt.Errorf("email API returned %d", resp.StatusCode())
	}
	m.log.Debug().Str("subject", email.Subject).Int("status", resp.StatusCode()).Msg("email accepted")
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	log zerolog.Logger
}

var _ notification.Mailer = (*LogMailer)(nil)

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log-mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, email notification.OutgoingEmail) error {
	m.log.Info().Str("to", email.To).Str("subject", email.Subject).Msg("email (not sent, no mail API configured)")
	return nil
}
