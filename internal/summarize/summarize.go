package summarize

import (
	"context"
	"fmt"
	"log"

	"newsdigest/internal/database"
)

// Summarizer selects news rows, sends them to the summarization service and
// upserts the results keyed by news ID.
type Summarizer struct {
	db     *database.DB
	client *Client
}

// NewSummarizer creates a summarizer backed by the given service client.
func NewSummarizer(db *database.DB, client *Client) *Summarizer {
	return &Summarizer{db: db, client: client}
}

// SummarizeAndSave summarizes one news row and upserts its summary. Re-runs
// for the same ID overwrite the existing row instead of inserting a second one.
func (s *Summarizer) SummarizeAndSave(ctx context.Context, newsID int64) (*database.SummarizedNews, error) {
	news, err := s.db.GetNewsByID(newsID)
	if err != nil {
		return nil, fmt.Errorf("loading news %d: %w", newsID, err)
	}

	summarized, err := s.client.Summarize(ctx, articleData(news))
	if err != nil {
		return nil, fmt.Errorf("summarizing news %d: %w", newsID, err)
	}

	saved, err := s.db.UpsertSummarizedNews(news.NewsID, summaryBlob(summarized), news.SourceID)
	if err != nil {
		return nil, fmt.Errorf("saving summary for news %d: %w", newsID, err)
	}

	log.Printf("Summarized and saved news %d", newsID)
	return saved, nil
}

// SummarizeAndSaveMany summarizes the given news rows with one batched
// request, upserting each result against the news row at the same input
// position. Positions the service failed on are logged and skipped.
func (s *Summarizer) SummarizeAndSaveMany(ctx context.Context, newsIDs []int64) ([]database.SummarizedNews, error) {
	if len(newsIDs) == 0 {
		return nil, nil
	}
	log.Printf("Summarizing %d news articles", len(newsIDs))

	items := make([]*database.News, len(newsIDs))
	articles := make([]ArticleData, len(newsIDs))
	for i, id := range newsIDs {
		news, err := s.db.GetNewsByID(id)
		if err != nil {
			return nil, fmt.Errorf("loading news %d: %w", id, err)
		}
		items[i] = news
		articles[i] = articleData(news)
	}

	results, err := s.client.SummarizeBatch(ctx, articles)
	if err != nil {
		return nil, fmt.Errorf("batch summarizing: %w", err)
	}

	var saved []database.SummarizedNews
	for i, result := range results {
		if result == nil {
			log.Printf("Warning: no summary returned for news %d, skipping", items[i].NewsID)
			continue
		}
		row, err := s.db.UpsertSummarizedNews(items[i].NewsID, summaryBlob(result), items[i].SourceID)
		if err != nil {
			return saved, fmt.Errorf("saving summary for news %d: %w", items[i].NewsID, err)
		}
		saved = append(saved, *row)
	}

	log.Printf("Summarized and saved %d of %d news articles", len(saved), len(newsIDs))
	return saved, nil
}

// SummarizeAllUnsummarized summarizes every news row that does not yet have a
// summary. An empty backlog short-circuits without calling the service.
func (s *Summarizer) SummarizeAllUnsummarized(ctx context.Context) ([]database.SummarizedNews, error) {
	allIDs, err := s.db.ListNewsIDs()
	if err != nil {
		return nil, fmt.Errorf("listing news: %w", err)
	}
	summarizedIDs, err := s.db.ListSummarizedNewsIDs()
	if err != nil {
		return nil, fmt.Errorf("listing summarized news: %w", err)
	}

	done := make(map[int64]bool, len(summarizedIDs))
	for _, id := range summarizedIDs {
		done[id] = true
	}

	var pending []int64
	for _, id := range allIDs {
		if !done[id] {
			pending = append(pending, id)
		}
	}

	if len(pending) == 0 {
		log.Println("No unsummarized news articles found")
		return nil, nil
	}

	log.Printf("Found %d unsummarized news articles", len(pending))
	return s.SummarizeAndSaveMany(ctx, pending)
}

func articleData(news *database.News) ArticleData {
	a := ArticleData{Title: news.Title, Content: news.Content}
	if news.URL != nil {
		a.URL = *news.URL
	}
	return a
}

// summaryBlob joins the summarized title and body into the stored text blob.
func summaryBlob(s *SummarizedArticle) string {
	return s.SummarizedTitle + "\n\n" + s.SummarizedContent
}
