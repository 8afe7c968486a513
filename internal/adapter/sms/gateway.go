package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"company-wallet/config"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway sends OTP codes through the Payamak base-number REST endpoint.
// Credentials come from config and are fixed at construction.
type Gateway struct {
	cfg    config.SMSConfig
	client HTTPClient
	log    zerolog.Logger
}

// sendResult mirrors the gateway's JSON reply.
type sendResult struct {
	Value        string `json:"Value"`
	RetStatus    int    `json:"RetStatus"`
	StrRetStatus string `json:"StrRetStatus"`
}

// NewGateway creates a Gateway. A nil client gets an http.Client using cfg.Timeout.
func NewGateway(cfg config.SMSConfig, client HTTPClient, log zerolog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("sms: endpoint is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Gateway{cfg: cfg, client: client, log: log}, nil
}

// SendOTP implements ports.OTPSender.
func (g *Gateway) SendOTP(ctx context.Context, destination, code string) error {
	if destination == "" || code == "" {
		return errors.New("sms: destination and code are required")
	}

	form := url.Values{}
	form.Set("username", g.cfg.Username)
	form.Set("password", g.cfg.Password)
	form.Set("text", code)
	form.Set("to", destination)
	form.Set("bodyId", g.cfg.BodyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms: gateway returned status %d", resp.StatusCode)
	}

	var res sendResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("sms: decode response: %w", err)
	}
	if !res.delivered() {
		return fmt.Errorf("sms: rejected (status %d, value %q): %s", res.RetStatus, res.Value, res.StrRetStatus)
	}

	g.log.Debug().Str("to", mask(destination)).Str("rec_id", res.Value).Msg("sms: otp sent")
	return nil
}

// delivered reports whether the gateway accepted the message. A queued
// message comes back with a long numeric recipient id.
func (r sendResult) delivered() bool {
	if r.RetStatus != 1 || len(r.Value) <= 10 {
		return false
	}
	return strings.IndexFunc(r.Value, func(c rune) bool { return c < '0' || c > '9' }) < 0
}

// mask keeps the last four digits of a phone number.
func mask(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
