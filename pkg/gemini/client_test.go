package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salesbrain-ai/salesbrain/pkg/core"
)

func TestGenerateContent_RequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "hi"}]}}]}`)
	}))
	defer srv.Close()

	client := New("secret", WithBaseURL(srv.URL))
	resp, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", &Request{
		Contents: []Content{UserText("你好")},
	})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if resp.Text() != "hi" {
		t.Fatalf("Text() = %q", resp.Text())
	}
	if gotPath != "/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("key = %q", gotKey)
	}
	if _, ok := gotBody["contents"]; !ok {
		t.Fatalf("body = %v, want contents", gotBody)
	}
}

func TestParseError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		httpCode int
		status   string
		want     core.ErrorType
	}{
		{"unauthenticated", 400, "UNAUTHENTICATED", core.ErrAuthentication},
		{"permission denied", 400, "PERMISSION_DENIED", core.ErrAuthentication},
		{"resource exhausted", 400, "RESOURCE_EXHAUSTED", core.ErrRateLimit},
		{"unavailable", 400, "UNAVAILABLE", core.ErrOverloaded},
		{"http 429 wins", 429, "INTERNAL", core.ErrRateLimit},
		{"http 503 wins", 503, "INTERNAL", core.ErrOverloaded},
		{"http 401 wins", 401, "INTERNAL", core.ErrAuthentication},
		{"generic", 500, "INTERNAL", core.ErrAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.httpCode)
				fmt.Fprintf(w, `{"error": {"code": %d, "message": "msg", "status": %q}}`, tt.httpCode, tt.status)
			}))
			defer srv.Close()

			client := New("k", WithBaseURL(srv.URL))
			_, err := client.GenerateContent(context.Background(), "m", &Request{})
			if !core.IsType(err, tt.want) {
				t.Fatalf("err = %v, want type %s", err, tt.want)
			}
		})
	}
}

func TestParseError_UnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>gateway error</html>")
	}))
	defer srv.Close()

	client := New("k", WithBaseURL(srv.URL))
	_, err := client.GenerateContent(context.Background(), "m", &Request{})
	if !core.IsType(err, core.ErrAPI) {
		t.Fatalf("err = %v, want api_error", err)
	}
}

func TestRelaxedSafetySettings(t *testing.T) {
	settings := RelaxedSafetySettings()
	if len(settings) != 4 {
		t.Fatalf("settings = %d, want 4", len(settings))
	}
	for _, s := range settings {
		if s.Threshold != ThresholdBlockNone {
			t.Fatalf("threshold = %q, want %q", s.Threshold, ThresholdBlockNone)
		}
	}
}

func TestResponseText_Empty(t *testing.T) {
	var r *Response
	if r.Text() != "" {
		t.Fatal("nil response should yield empty text")
	}
	if (&Response{}).Text() != "" {
		t.Fatal("candidate-less response should yield empty text")
	}
}
