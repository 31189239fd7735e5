package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	productionBaseURL = "https://api.africastalking.com"
	sandboxBaseURL    = "https://api.sandbox.africastalking.com"
	messagingPath     = "/version1/messaging"
)

// AfricasTalkingConfig holds the delivery network credentials.
type AfricasTalkingConfig struct {
	Username string
	APIKey   string
	SenderID string
	// BaseURL overrides the API host, used by tests.
	BaseURL string
}

// AfricasTalkingGateway sends SMS through the Africa's Talking messaging
// API.
type AfricasTalkingGateway struct {
	cfg    AfricasTalkingConfig
	client *http.Client
}

// NewAfricasTalkingGateway builds a gateway with a bounded request
// timeout; a hung provider must not hold the USSD reply hostage.
func NewAfricasTalkingGateway(cfg AfricasTalkingConfig) *AfricasTalkingGateway {
	if cfg.BaseURL == "" {
		if cfg.Username == "sandbox" {
			cfg.BaseURL = sandboxBaseURL
		} else {
			cfg.BaseURL = productionBaseURL
		}
	}
	return &AfricasTalkingGateway{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
			Cost       string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send posts the message to the bulk messaging endpoint and maps the
// provider response to per-recipient outcomes.
func (g *AfricasTalkingGateway) Send(ctx context.Context, message string, recipients []string) ([]Recipient, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("sms send: no recipients")
	}

	form := url.Values{}
	form.Set("username", g.cfg.Username)
	form.Set("to", strings.Join(recipients, ","))
	form.Set("message", message)
	if g.cfg.SenderID != "" {
		form.Set("from", g.cfg.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+messagingPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("sms send: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sms send: provider returned status %d", resp.StatusCode)
	}

	var decoded atResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("sms send: decode response: %w", err)
	}

	outcomes := make([]Recipient, 0, len(decoded.SMSMessageData.Recipients))
	for _, r := range decoded.SMSMessageData.Recipients {
		outcome := Recipient{
			Number:    r.Number,
			MessageID: r.MessageID,
			Cost:      r.Cost,
		}
		if r.Status == "Success" {
			outcome.Status = StatusDelivered
		} else {
			outcome.Status = StatusFailed
			outcome.ErrorCode = strconv.Itoa(r.StatusCode)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}
