package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSMSSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" || r.Header.Get("x-api-secret") != "secret" {
			t.Errorf("missing API credential headers")
		}

		var payload smsRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode SMS payload: %v", err)
		}
		if payload.To != "+233555000111" || payload.From != "Xtocast" {
			t.Errorf("unexpected payload %+v", payload)
		}
		if payload.Type != "Quick" {
			t.Errorf("expected type Quick, got %q", payload.Type)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewSMSClient("key", "secret", "", srv.URL)
	if err := client.Send(context.Background(), "+233555000111", "Thank you for voting!"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSMSSendUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewSMSClient("key", "secret", "", srv.URL)
	if err := client.Send(context.Background(), "+233555000111", "hi"); err == nil {
		t.Fatal("expected an error on a non-2xx response")
	}
}

func TestSMSSendMissingCredentials(t *testing.T) {
	client := NewSMSClient("", "", "", "")
	if err := client.Send(context.Background(), "+233555000111", "hi"); err == nil {
		t.Fatal("expected an error without credentials")
	}
}
