package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const DefaultSMSBaseURL = "https://api.kairosafrika.com/v1/external/sms/quick"

// sms request payload for the Kairos Afrika quick-SMS API
type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SMSClient sends transactional SMS through Kairos Afrika. It satisfies the
// recorder's Notifier interface.
type SMSClient struct {
	apiKey    string
	apiSecret string
	sender    string
	baseURL   string
	client    *http.Client
}

func NewSMSClient(apiKey, apiSecret, sender, baseURL string) *SMSClient {
	if baseURL == "" {
		baseURL = DefaultSMSBaseURL
	}
	if sender == "" {
		sender = "Xtocast"
	}
	return &SMSClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		sender:    sender,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers one SMS. The caller decides whether a failure matters; here
// it is only reported, never retried.
func (s *SMSClient) Send(ctx context.Context, to, message string) error {
	if s.apiKey == "" || s.apiSecret == "" {
		return fmt.Errorf("missing SMS API credentials")
	}

	payload := smsRequest{
		To:      to,
		From:    s.sender,
		Message: message,
		Type:    "Quick",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SMS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("x-api-secret", s.apiSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("SMS API returned %s", resp.Status)
	}

	log.Printf("SMS sent to %s", to)
	return nil
}
