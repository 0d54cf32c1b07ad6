package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"deskagent/internal/chat"
	"deskagent/internal/config"

	"golang.org/x/net/html"
)

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// toolCallIDHeader correlates service requests with the originating tool
// call on the provider side.
const toolCallIDHeader = "X-Tool-Call-Id"

// SearchWebTool queries the configured search service. Without a service it
// fails: there is no anonymous fallback for search.
type SearchWebTool struct {
	service *config.ServiceConfig
	client  *http.Client
}

func NewSearchWebTool(service *config.ServiceConfig) *SearchWebTool {
	return &SearchWebTool{
		service: service,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *SearchWebTool) Name() string {
	return "SearchWeb"
}

func (t *SearchWebTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Search the web using the configured search service.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":           map[string]any{"type": "string", "description": "Search query."},
					"limit":           map[string]any{"type": "integer", "description": "Number of results.", "minimum": 1},
					"include_content": map[string]any{"type": "boolean", "description": "Include page content in results."},
				},
				"required": []string{"query"},
			},
		},
	}
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

type searchResponse struct {
	SearchResults []searchResult `json:"search_results"`
}

func (t *SearchWebTool) Execute(ctx context.Context, args json.RawMessage) Output {
	var in struct {
		Query          string `json:"query"`
		Limit          int    `json:"limit"`
		IncludeContent bool   `json:"include_content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail(fmt.Sprintf("Invalid SearchWeb arguments: %v", err))
	}
	return t.Search(ctx, "", in.Query, in.Limit, in.IncludeContent)
}

func (t *SearchWebTool) Search(ctx context.Context, toolCallID, query string, limit int, includeContent bool) Output {
	if t.service == nil {
		return fail("Search service is not configured.")
	}
	if limit <= 0 {
		limit = 5
	}

	payload, err := json.Marshal(map[string]any{
		"text_query":           query,
		"limit":                limit,
		"enable_page_crawling": includeContent,
		"timeout_seconds":      30,
	})
	if err != nil {
		return fail(fmt.Sprintf("Failed to encode search request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.service.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Sprintf("Failed to build search request: %v", err))
	}
	applyServiceHeaders(req, t.service, toolCallID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fail(fmt.Sprintf("Failed to search: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Sprintf("Search request failed with status %d", resp.StatusCode))
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fail(fmt.Sprintf("Failed to parse search response: %v", err))
	}

	var b strings.Builder
	for i, result := range data.SearchResults {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		fmt.Fprintf(&b, "Title: %s\nDate: %s\nURL: %s\nSummary: %s\n\n",
			result.Title, result.Date, result.URL, result.Snippet)
		if result.Content != "" {
			b.WriteString(result.Content)
			b.WriteString("\n\n")
		}
	}
	body, truncated := truncateOutput(b.String())
	return Output{
		OK:      true,
		Summary: appendTruncation("Search completed.", truncated),
		Body:    body,
	}
}

// FetchURLTool retrieves a URL, preferring the configured fetch service and
// falling back to a direct anonymous GET with a desktop browser user agent.
type FetchURLTool struct {
	service *config.ServiceConfig
	client  *http.Client
}

func NewFetchURLTool(service *config.ServiceConfig) *FetchURLTool {
	return &FetchURLTool{
		service: service,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *FetchURLTool) Name() string {
	return "FetchURL"
}

func (t *FetchURLTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Fetch the contents of a URL.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string", "description": "URL to fetch."},
				},
				"required": []string{"url"},
			},
		},
	}
}

func (t *FetchURLTool) Execute(ctx context.Context, args json.RawMessage) Output {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail(fmt.Sprintf("Invalid FetchURL arguments: %v", err))
	}
	return t.Fetch(ctx, "", in.URL)
}

func (t *FetchURLTool) Fetch(ctx context.Context, toolCallID, url string) Output {
	if t.service != nil {
		if out, ok := t.fetchViaService(ctx, toolCallID, url); ok {
			return out
		}
	}
	return t.fetchDirect(ctx, url)
}

// fetchViaService returns ok=false when the service path failed and the
// direct fallback should run instead.
func (t *FetchURLTool) fetchViaService(ctx context.Context, toolCallID, url string) (Output, bool) {
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return Output{}, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.service.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return Output{}, false
	}
	applyServiceHeaders(req, t.service, toolCallID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/markdown")

	resp, err := t.client.Do(req)
	if err != nil {
		return Output{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Output{}, false
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, false
	}
	body, truncated := truncateOutput(string(text))
	return Output{
		OK:      true,
		Summary: appendTruncation("Fetched content via service.", truncated),
		Body:    body,
	}, true
}

func (t *FetchURLTool) fetchDirect(ctx context.Context, url string) Output {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(fmt.Sprintf("Failed to fetch URL: %v", err))
	}
	req.Header.Set("User-Agent", desktopUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return fail(fmt.Sprintf("Failed to fetch URL: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Sprintf("Fetch failed with status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Sprintf("Failed to read response body: %v", err))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	text := string(raw)
	summary := "Fetched response body."
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		text = extractTextFromHTML(text)
		summary = "Fetched page text."
	case strings.HasPrefix(mediaType, "text/plain") || strings.HasPrefix(mediaType, "text/markdown"):
		summary = "Fetched plain text content."
	}

	body, truncated := truncateOutput(text)
	return Output{
		OK:      true,
		Summary: appendTruncation(summary, truncated),
		Body:    body,
	}
}

func applyServiceHeaders(req *http.Request, service *config.ServiceConfig, toolCallID string) {
	req.Header.Set("Authorization", "Bearer "+service.APIKey)
	if toolCallID != "" {
		req.Header.Set(toolCallIDHeader, toolCallID)
	}
	for k, v := range service.CustomHeaders {
		req.Header.Set(k, v)
	}
}

// extractTextFromHTML flattens an HTML document to its visible text, one
// fragment per line, skipping script and style subtrees.
func extractTextFromHTML(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	var b strings.Builder
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode && isIgnoredHTMLTag(n.Data) {
			skip = true
		}
		if n.Type == html.TextNode && !skip {
			if text := strings.TrimSpace(n.Data); text != "" {
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)
	return b.String()
}

func isIgnoredHTMLTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript", "iframe", "object", "embed":
		return true
	default:
		return false
	}
}
