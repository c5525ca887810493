package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/invopop/jsonschema"
)

const (
	webFetchTimeout = 10 * time.Second
	// maxFetchBytes bounds how much of a response body is read.
	maxFetchBytes = 1 << 20
)

// WebFetchTool fetches a URL and returns its content as readable text.
// HTML responses are stripped down to their text content.
type WebFetchTool struct {
	client *http.Client
}

type WebFetchOption func(*WebFetchTool)

// WithHTTPClient overrides the HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) WebFetchOption {
	return func(t *WebFetchTool) {
		t.client = client
	}
}

func NewWebFetchTool(options ...WebFetchOption) *WebFetchTool {
	t := &WebFetchTool{
		client: &http.Client{
			Timeout: webFetchTimeout,
		},
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *WebFetchTool) Name() string {
	return "web_fetch"
}

func (t *WebFetchTool) Description() string {
	return "Fetches a URL over HTTP(S) and returns the readable text content of the response."
}

func (t *WebFetchTool) Schema() *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: "object"}
	props := jsonschema.NewProperties()
	props.Set("url", &jsonschema.Schema{
		Type:        "string",
		Description: "The http or https URL to fetch",
	})
	schema.Properties = props
	schema.Required = []string{"url"}
	return schema
}

type webFetchArgs struct {
	URL string `json:"url"`
}

func (t *WebFetchTool) ShouldConfirmExecute(ctx context.Context, args map[string]interface{}) (*tools.ConfirmationRequest, error) {
	var in webFetchArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	return &tools.ConfirmationRequest{
		Kind:        tools.ConfirmFetch,
		Title:       fmt.Sprintf("Fetch %s", in.URL),
		Description: "Fetches the URL and returns its text content to the model.",
		URLs:        []string{in.URL},
	}, nil
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	var in webFetchArgs
	if err := tools.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(in.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errorResult(fmt.Sprintf("Error: only http and https URLs are supported, got %q", in.URL)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: invalid request for %s: %v", in.URL, err)), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: failed to fetch %s: %v", in.URL, err)), nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorResult(fmt.Sprintf("Error: fetching %s returned status %d", in.URL, resp.StatusCode)), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return errorResult(fmt.Sprintf("Error: failed to read response from %s: %v", in.URL, err)), nil
	}

	text := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		extracted, err := extractText(text)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: failed to parse HTML from %s: %v", in.URL, err)), nil
		}
		text = extracted
	}

	return &tools.Result{
		LLMContent:    fmt.Sprintf("Content from %s:\n\n%s", in.URL, text),
		ReturnDisplay: fmt.Sprintf("Fetched %s (%d chars)", in.URL, len(text)),
	}, nil
}

// extractText strips an HTML document down to its readable body text.
func extractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()
	body := doc.Find("body")
	text := body.Text()
	if body.Length() == 0 {
		text = doc.Text()
	}

	// Collapse the whitespace soup HTML rendering leaves behind.
	var lines []string
	empty := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			empty++
			if empty > 1 {
				continue
			}
		} else {
			empty = 0
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

var _ tools.Tool = (*WebFetchTool)(nil)
