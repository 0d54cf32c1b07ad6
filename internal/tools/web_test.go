package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deskagent/internal/config"
)

func TestSearchWebFormatsResults(t *testing.T) {
	var gotAuth, gotCallID string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCallID = r.Header.Get(toolCallIDHeader)
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(searchResponse{SearchResults: []searchResult{
			{Title: "First", URL: "https://a.example", Snippet: "about a", Date: "2024-01-01"},
			{Title: "Second", URL: "https://b.example", Snippet: "about b"},
		}})
	}))
	defer srv.Close()

	tool := NewSearchWebTool(&config.ServiceConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	out := tool.Search(context.Background(), "call-1", "golang", 2, false)
	if !out.OK {
		t.Fatalf("search failed: %s", out.Summary)
	}
	if out.Summary != "Search completed." {
		t.Fatalf("summary = %q", out.Summary)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotCallID != "call-1" {
		t.Fatalf("tool call id header = %q", gotCallID)
	}
	if gotBody["text_query"] != "golang" {
		t.Fatalf("text_query = %v", gotBody["text_query"])
	}
	if gotBody["limit"] != float64(2) {
		t.Fatalf("limit = %v", gotBody["limit"])
	}

	if !strings.Contains(out.Body, "Title: First") || !strings.Contains(out.Body, "URL: https://b.example") {
		t.Fatalf("body = %q", out.Body)
	}
	if !strings.Contains(out.Body, "---") {
		t.Fatal("results not separated")
	}
}

func TestSearchWebWithoutServiceFails(t *testing.T) {
	tool := NewSearchWebTool(nil)
	out := tool.Search(context.Background(), "", "anything", 3, false)
	if out.OK {
		t.Fatal("search without service succeeded")
	}
}

func TestSearchWebCustomHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Region")
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	tool := NewSearchWebTool(&config.ServiceConfig{
		BaseURL:       srv.URL,
		APIKey:        "k",
		CustomHeaders: map[string]string{"X-Region": "eu"},
	})
	if out := tool.Search(context.Background(), "", "q", 1, false); !out.OK {
		t.Fatalf("search failed: %s", out.Summary)
	}
	if gotHeader != "eu" {
		t.Fatalf("X-Region = %q", gotHeader)
	}
}

func TestFetchURLViaService(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotURL = body["url"]
		w.Write([]byte("# converted markdown"))
	}))
	defer srv.Close()

	tool := NewFetchURLTool(&config.ServiceConfig{BaseURL: srv.URL, APIKey: "k"})
	out := tool.Fetch(context.Background(), "call-2", "https://example.com/page")
	if !out.OK {
		t.Fatalf("fetch failed: %s", out.Summary)
	}
	if out.Summary != "Fetched content via service." {
		t.Fatalf("summary = %q", out.Summary)
	}
	if gotURL != "https://example.com/page" {
		t.Fatalf("service received url %q", gotURL)
	}
	if out.Body != "# converted markdown" {
		t.Fatalf("body = %q", out.Body)
	}
}

func TestFetchURLDirectUsesDesktopUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain body"))
	}))
	defer srv.Close()

	tool := NewFetchURLTool(nil)
	out := tool.Fetch(context.Background(), "", srv.URL)
	if !out.OK {
		t.Fatalf("fetch failed: %s", out.Summary)
	}
	if out.Summary != "Fetched plain text content." {
		t.Fatalf("summary = %q", out.Summary)
	}
	if gotUA != desktopUserAgent {
		t.Fatalf("User-Agent = %q", gotUA)
	}
}

func TestFetchURLDirectExtractsHTMLText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><script>ignored()</script></head><body><h1>Heading</h1><p>Paragraph text.</p></body></html>`))
	}))
	defer srv.Close()

	tool := NewFetchURLTool(nil)
	out := tool.Fetch(context.Background(), "", srv.URL)
	if !out.OK {
		t.Fatalf("fetch failed: %s", out.Summary)
	}
	if strings.Contains(out.Body, "ignored()") {
		t.Fatal("script content leaked into text")
	}
	if !strings.Contains(out.Body, "Heading") || !strings.Contains(out.Body, "Paragraph text.") {
		t.Fatalf("body = %q", out.Body)
	}
}

func TestFetchURLServiceFailureFallsBack(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("fallback body"))
	}))
	defer direct.Close()

	tool := NewFetchURLTool(&config.ServiceConfig{BaseURL: failing.URL, APIKey: "k"})
	out := tool.Fetch(context.Background(), "", direct.URL)
	if !out.OK {
		t.Fatalf("fetch failed: %s", out.Summary)
	}
	if out.Body != "fallback body" {
		t.Fatalf("body = %q", out.Body)
	}
}
