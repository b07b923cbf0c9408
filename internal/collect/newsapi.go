package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"newsdigest/internal/config"
)

const newsAPIBaseURL = "https://newsapi.org/v2/top-headlines"

// Headline is one article summary item returned by the headline API.
type Headline struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// NewsAPIClient fetches top headlines from NewsAPI.
type NewsAPIClient struct {
	apiKey   string
	country  string
	language string
	baseURL  string
	client   *http.Client
}

// NewNewsAPIClient creates a client scoped to a fixed country and language.
// The API key is read from the named environment variable.
func NewNewsAPIClient(apiKeyEnv, country, language string) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey:   os.Getenv(apiKeyEnv),
		country:  country,
		language: language,
		baseURL:  newsAPIBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func newsAPIClientFromConfig(cfg *config.Config) *NewsAPIClient {
	c := NewNewsAPIClient(cfg.NewsAPI.APIKeyEnv, cfg.NewsAPI.Country, cfg.NewsAPI.Language)
	if cfg.NewsAPI.BaseURL != "" {
		c.baseURL = cfg.NewsAPI.BaseURL
	}
	return c
}

// IsConfigured returns whether the API key is available.
func (c *NewsAPIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// TopHeadlines returns the top headlines for a category. A transport error,
// non-200 response, or non-"ok" API status is a hard failure.
func (c *NewsAPIClient) TopHeadlines(ctx context.Context, category string) ([]Headline, error) {
	params := url.Values{
		"category": {category},
		"language": {c.language},
		"country":  {c.country},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news API error: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Status       string     `json:"status"`
		Code         string     `json:"code"`
		Message      string     `json:"message"`
		TotalResults int        `json:"totalResults"`
		Articles     []Headline `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding news API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news API returned %d: %s", resp.StatusCode, result.Message)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("news API returned status %q: %s", result.Status, result.Message)
	}

	return result.Articles, nil
}
