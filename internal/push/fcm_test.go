package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fcmServer(t *testing.T, result map[string]string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "key=") {
			t.Errorf("missing server key auth, got %q", got)
		}
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{result},
		})
	}))
}

func TestFCM_Delivered(t *testing.T) {
	var got map[string]interface{}
	ts := fcmServer(t, map[string]string{"message_id": "m-1"}, &got)
	defer ts.Close()

	p := NewFCM("sk", ts.URL, 2*time.Second, zap.NewNop())
	id, err := p.Send(context.Background(), "tok-1", Notification{
		Title: "🚨 Ship Alert: Boaty Detected!",
		Body:  "Vessel MMSI: 246571000.",
		Data:  map[string]string{"vesselMMSI": "246571000"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "m-1" {
		t.Fatalf("want message id m-1, got %q", id)
	}
	if got["to"] != "tok-1" {
		t.Fatalf("wrong token in request: %v", got["to"])
	}
	if got["content_available"] != true {
		t.Fatalf("expected content_available, got %v", got["content_available"])
	}
}

func TestFCM_StaleTokenTextSurvivesClassification(t *testing.T) {
	ts := fcmServer(t, map[string]string{"error": "NotRegistered"}, nil)
	defer ts.Close()

	p := NewFCM("sk", ts.URL, 2*time.Second, zap.NewNop())
	_, err := p.Send(context.Background(), "dead-token", Notification{Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "not registered") {
		t.Fatalf("stale-token error text lost: %v", err)
	}
}

func TestFCM_InvalidRegistration(t *testing.T) {
	ts := fcmServer(t, map[string]string{"error": "InvalidRegistration"}, nil)
	defer ts.Close()

	p := NewFCM("sk", ts.URL, 2*time.Second, zap.NewNop())
	_, err := p.Send(context.Background(), "garbage", Notification{Title: "t", Body: "b"})
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "invalid registration") {
		t.Fatalf("want invalid registration text, got %v", err)
	}
}

func TestFCM_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	p := NewFCM("bad-key", ts.URL, 2*time.Second, zap.NewNop())
	_, err := p.Send(context.Background(), "tok", Notification{Title: "t", Body: "b"})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("want status error, got %v", err)
	}
}
