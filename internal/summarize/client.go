package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ArticleData is the payload sent to the summarization service.
type ArticleData struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// SummarizedArticle is one summarized/translated article from the service.
type SummarizedArticle struct {
	SummarizedTitle   string `json:"summarized_title"`
	SummarizedContent string `json:"summarized_content"`
	OriginalTitle     string `json:"original_title"`
	OriginalURL       string `json:"original_url,omitempty"`
}

type batchRequest struct {
	Articles []ArticleData `json:"articles"`
}

type batchResponse struct {
	Results       []SummarizedArticle `json:"results"`
	FailedIndices []int               `json:"failed_indices"`
}

// Client talks to the external summarization/translation service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a summarization client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Summarize summarizes a single article. Transport errors and non-2xx
// responses are hard failures.
func (c *Client) Summarize(ctx context.Context, article ArticleData) (*SummarizedArticle, error) {
	data, err := json.Marshal(article)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/summarize", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summarizer error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result SummarizedArticle
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

// SummarizeBatch summarizes many articles in one request. The returned slice
// always has one entry per input article, in input order, with nil at
// positions the service failed on. Partial failure is logged, not an error.
// An empty input short-circuits without a network call.
func (c *Client) SummarizeBatch(ctx context.Context, articles []ArticleData) ([]*SummarizedArticle, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(batchRequest{Articles: articles})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/batch-summarize", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summarizer error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.FailedIndices) > 0 {
		log.Printf("Summarizer failed on %d of %d articles (indices %v)",
			len(result.FailedIndices), len(articles), result.FailedIndices)
	}

	return alignResults(len(articles), result), nil
}

// alignResults restores positional correspondence between inputs and results.
// Services differ on whether results omit failed entries or carry placeholders
// for them; both shapes normalize to a full-length slice with nil at failed
// positions.
func alignResults(inputLen int, resp batchResponse) []*SummarizedArticle {
	failed := make(map[int]bool, len(resp.FailedIndices))
	for _, i := range resp.FailedIndices {
		failed[i] = true
	}

	out := make([]*SummarizedArticle, inputLen)
	if len(resp.Results) == inputLen {
		for i := range resp.Results {
			if failed[i] {
				continue
			}
			r := resp.Results[i]
			out[i] = &r
		}
		return out
	}

	ri := 0
	for i := 0; i < inputLen; i++ {
		if failed[i] || ri >= len(resp.Results) {
			continue
		}
		r := resp.Results[ri]
		out[i] = &r
		ri++
	}
	return out
}

// Health reports the summarizer's liveness status. Used for reporting only,
// never to gate pipeline behavior.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer health check: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding health response: %w", err)
	}
	return result.Status, nil
}
