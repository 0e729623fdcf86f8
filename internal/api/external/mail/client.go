package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"PaymentWebhooks/internal/api/domain/notification"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultTimeout = 15 * time.Second

// Client sends transactional email through the provider's HTTP API
// (POST {base}/emails with a bearer key).
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

var _ notification.Sender = (*Client)(nil)

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRateLimit throttles sends to perSecond; zero or negative disables it.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" || apiKey == "" {
		return nil, notification.ErrNotConfigured
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(apiKey).
			SetHeader("Accept", "application/json").
			SetTimeout(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type attachmentBody struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

type emailBody struct {
	From        string           `json:"from"`
	To          []string         `json:"to"`
	Subject     string           `json:"subject"`
	HTML        string           `json:"html"`
	Attachments []attachmentBody `json:"attachments,omitempty"`
}

type emailResponse struct {
	ID string `json:"id"`
}

func (c *Client) Send(ctx context.Context, msg notification.Message) (notification.SendResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return notification.SendResult{}, fmt.Errorf("mail rate limit: %w", err)
		}
	}

	body := emailBody{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	for _, a := range msg.Attachments {
		body.Attachments = append(body.Attachments, attachmentBody{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
		})
	}

	var out emailResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/emails")
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		return notification.SendResult{}, fmt.Errorf("%w: status %d: %s",
			rejection(resp.StatusCode()), resp.StatusCode(), truncate(resp.String(), 512))
	}
	if out.ID == "" {
		return notification.SendResult{}, errors.New("send email: provider returned no message id")
	}

	return notification.SendResult{MessageID: out.ID}, nil
}

// rejection classifies a non-2xx status. Timeouts, throttling and server
// errors may pass on a later attempt.
func rejection(status int) error {
	if status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		return notification.ErrRefused
	}
	return notification.ErrRejected
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
