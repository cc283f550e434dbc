package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testResult() *Result {
	return &Result{
		Type:        URLTypeTemporary,
		URL:         "https://preview.pages.example?token=tok&t=1",
		ProjectID:   "proj-1",
		ProjectName: "demo",
		ConsoleURL:  "https://console.edgeone.com/pages",
	}
}

func TestRenderUsesRemoteProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["type"] == "" || body["url"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "Your site is live."})
	}))
	defer server.Close()

	log := NewRunLog()
	log.Infof("uploaded")

	out := NewFormatterWithURL(server.URL).Render(context.Background(), testResult(), log)
	if !strings.Contains(out, "Your site is live.") {
		t.Errorf("expected remote prose in output, got:\n%s", out)
	}
	if !strings.Contains(out, "uploaded") {
		t.Errorf("expected transcript appended, got:\n%s", out)
	}
}

func TestRenderFallsBackToJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	out := NewFormatterWithURL(server.URL).Render(context.Background(), testResult(), NewRunLog())
	if !strings.Contains(out, `"url"`) || !strings.Contains(out, "proj-1") {
		t.Errorf("expected raw JSON fallback, got:\n%s", out)
	}
}

func TestRenderUnreachableFormatter(t *testing.T) {
	// A closed server: the call must fail fast and fall back, never error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	out := NewFormatterWithURL(server.URL).Render(context.Background(), testResult(), NewRunLog())
	if !strings.Contains(out, "https://preview.pages.example") {
		t.Errorf("expected structured fallback with URL, got:\n%s", out)
	}
}
