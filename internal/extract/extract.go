package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// ErrTimeout is returned when extraction does not finish within the budget.
var ErrTimeout = errors.New("article extraction timed out")

// ErrNoContent is returned when the page parses but the readability heuristic
// finds no substantial article body.
var ErrNoContent = errors.New("no extractable content")

// minContentLength filters out pages where readability only recovered
// boilerplate fragments.
const minContentLength = 100

// Article is the readable content extracted from a page.
type Article struct {
	Title       string
	TextContent string
	Excerpt     string
}

// Extractor fetches a URL and derives the readable article body from its HTML.
type Extractor struct {
	client  *http.Client
	timeout time.Duration
}

// NewExtractor creates an extractor with a hard per-article wall-clock budget
// covering both the fetch and the parse.
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Extractor{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

type result struct {
	article *Article
	err     error
}

// Extract fetches the page at articleURL and returns its readable content.
// If the deadline passes before fetch+parse completes, it returns ErrTimeout
// and the in-flight attempt is abandoned. No retries.
func (e *Extractor) Extract(ctx context.Context, articleURL string) (*Article, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		article, err := e.extract(ctx, articleURL)
		done <- result{article: article, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, e.timeout, articleURL)
		}
		return r.article, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, e.timeout, articleURL)
		}
		return nil, ctx.Err()
	}
}

func (e *Extractor) extract(ctx context.Context, articleURL string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdigest/1.0 (news aggregator)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching article: %s returned %d", articleURL, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading article body: %w", err)
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentLength {
		return nil, ErrNoContent
	}

	return &Article{
		Title:       strings.TrimSpace(article.Title),
		TextContent: text,
		Excerpt:     strings.TrimSpace(article.Excerpt),
	}, nil
}
