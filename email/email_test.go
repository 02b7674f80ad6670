package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewResendSenderRequiresKey(t *testing.T) {
	if _, err := NewResendSender(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestSendOTPEmail(t *testing.T) {
	var got sendRequest
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := NewResendSender(Config{
		APIKey:     "re_test_key",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewResendSender failed: %v", err)
	}
	sender.endpoint = server.URL

	if err := sender.SendOTPEmail(context.Background(), "ava@example.com", "Ava", "482193"); err != nil {
		t.Fatalf("SendOTPEmail failed: %v", err)
	}

	if auth != "Bearer re_test_key" {
		t.Fatalf("authorization = %q", auth)
	}
	if len(got.To) != 1 || got.To[0] != "ava@example.com" {
		t.Fatalf("to = %v", got.To)
	}
	if got.From != defaultFrom {
		t.Fatalf("from = %q", got.From)
	}
	if !strings.Contains(got.HTML, "482193") || !strings.Contains(got.Text, "482193") {
		t.Fatal("code missing from body")
	}
	if !strings.Contains(got.HTML, "Ava") {
		t.Fatal("name missing from html body")
	}
}

func TestSendOTPEmailEscapesName(t *testing.T) {
	var got sendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := NewResendSender(Config{APIKey: "k", HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewResendSender failed: %v", err)
	}
	sender.endpoint = server.URL

	if err := sender.SendOTPEmail(context.Background(), "a@b.c", "<script>x</script>", "482193"); err != nil {
		t.Fatalf("SendOTPEmail failed: %v", err)
	}
	if strings.Contains(got.HTML, "<script>") {
		t.Fatal("name must be escaped in html")
	}
}

func TestSendOTPEmailAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	sender, err := NewResendSender(Config{APIKey: "bad", HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewResendSender failed: %v", err)
	}
	sender.endpoint = server.URL

	err = sender.SendOTPEmail(context.Background(), "a@b.c", "Ava", "482193")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
}
