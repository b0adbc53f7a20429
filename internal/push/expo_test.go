package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsExpoToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[abc123]", true},
		{"ExponentPushToken[abc123", false},
		{"fcm:abc", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsExpoToken(tc.token); got != tc.want {
			t.Fatalf("IsExpoToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	if got := Preview("   ", "New message"); got != "New message" {
		t.Fatalf("empty body: %q", got)
	}
	long := strings.Repeat("é", 200)
	if got := Preview(long, ""); len([]rune(got)) != 120 {
		t.Fatalf("expected 120 runes, got %d", len([]rune(got)))
	}
}

func TestExpoClientSend(t *testing.T) {
	t.Parallel()

	var got []Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"t-1"}]}`))
	}))
	defer srv.Close()

	c := NewExpoClient(srv.URL)
	tickets, err := c.Send(context.Background(), []Message{{
		To:    "ExponentPushToken[x]",
		Title: "TapIn",
		Body:  "hi",
		Data:  map[string]any{"type": "chat_message"},
	}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Status != "ok" {
		t.Fatalf("tickets: %+v", tickets)
	}
	if len(got) != 1 || got[0].To != "ExponentPushToken[x]" || got[0].Data["type"] != "chat_message" {
		t.Fatalf("server received: %+v", got)
	}
}

func TestExpoClientSendStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"errors":[{"code":"INTERNAL"}]}`))
	}))
	defer srv.Close()

	_, err := NewExpoClient(srv.URL).Send(context.Background(), []Message{{To: "ExponentPushToken[x]"}})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
}

func TestExpoClientSendEmptyBatch(t *testing.T) {
	t.Parallel()

	tickets, err := NewExpoClient("http://127.0.0.1:0").Send(context.Background(), nil)
	if err != nil || tickets != nil {
		t.Fatalf("empty batch: %v %v", tickets, err)
	}
}
