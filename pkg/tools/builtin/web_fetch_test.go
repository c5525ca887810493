package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebFetchTool_ExtractsHTMLText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>T</title><style>body{}</style></head>
<body><script>var hidden = 1;</script><h1>Release Notes</h1><p>Version 2 is out.</p></body></html>`))
	}))
	defer server.Close()

	tool := NewWebFetchTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"url": server.URL})
	require.NoError(t, err)

	assert.Contains(t, result.LLMContent, "Release Notes")
	assert.Contains(t, result.LLMContent, "Version 2 is out.")
	assert.NotContains(t, result.LLMContent, "var hidden")
	assert.NotContains(t, result.LLMContent, "body{}")
	assert.Contains(t, result.ReturnDisplay, "Fetched "+server.URL)
}

func TestWebFetchTool_PlainTextPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain payload"))
	}))
	defer server.Close()

	tool := NewWebFetchTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"url": server.URL})
	require.NoError(t, err)

	assert.Contains(t, result.LLMContent, "plain payload")
}

func TestWebFetchTool_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tool := NewWebFetchTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"url": server.URL})
	require.NoError(t, err)

	assert.Contains(t, result.LLMContent, "status 404")
}

func TestWebFetchTool_RejectsNonHTTPSchemes(t *testing.T) {
	tool := NewWebFetchTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"url": "file:///etc/passwd",
	})
	require.NoError(t, err)

	assert.Contains(t, result.LLMContent, "only http and https")
}

func TestWebFetchTool_ConfirmationListsURL(t *testing.T) {
	tool := NewWebFetchTool()
	req, err := tool.ShouldConfirmExecute(context.Background(), map[string]interface{}{
		"url": "https://example.com/page",
	})
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, tools.ConfirmFetch, req.Kind)
	assert.Equal(t, []string{"https://example.com/page"}, req.URLs)
	assert.Contains(t, req.Title, "https://example.com/page")
}
