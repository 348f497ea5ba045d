package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	models "github.com/xtocast/contest-voting-go/models"
)

const DefaultPaystackBaseURL = "https://api.paystack.co"

// PaystackClient talks to the Paystack REST API. One instance is constructed
// at startup and shared by all handlers.
type PaystackClient struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystackClient(secretKey, baseURL string) *PaystackClient {
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}
	return &PaystackClient{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// VerifyTransaction asks the gateway for the current status of a reference.
func (p *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*models.VerifyResponse, error) {
	url := p.baseURL + "/transaction/verify/" + reference
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify transaction %s: %w", reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verify returned %s", resp.Status)
	}

	var verify models.VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verify); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &verify, nil
}

// InitializeTransaction opens a hosted checkout for the given amount (minor
// units) and returns the authorization URL and reference.
func (p *PaystackClient) InitializeTransaction(ctx context.Context, email string, amountMinor int64, callbackURL string, meta models.PaymentMetadata) (*models.InitializeResponse, error) {
	payload := struct {
		Email       string                 `json:"email"`
		Amount      int64                  `json:"amount"`
		CallbackURL string                 `json:"callback_url,omitempty"`
		Metadata    models.PaymentMetadata `json:"metadata"`
	}{
		Email:       email,
		Amount:      amountMinor,
		CallbackURL: callbackURL,
		Metadata:    meta,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack initialize returned %s", resp.Status)
	}

	var init models.InitializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&init); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	return &init, nil
}

// VerifySignature checks the x-paystack-signature header against an
// HMAC-SHA512 of the raw webhook body keyed with the secret key.
func (p *PaystackClient) VerifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
