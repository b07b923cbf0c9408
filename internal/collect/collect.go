package collect

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"newsdigest/internal/config"
	"newsdigest/internal/database"
	"newsdigest/internal/extract"
)

// Result holds the results of a fetch run. Every headline returned by a
// source ends up in exactly one of these buckets.
type Result struct {
	TotalFound         int
	Stored             int
	Invalid            int
	SourceFailed       int
	ExtractionFailed   int
	NoContent          int
	DuplicateURL       int
	DuplicateTitleDate int
}

// Skipped returns the number of headlines dropped before dedup.
func (r *Result) Skipped() int {
	return r.Invalid + r.SourceFailed + r.ExtractionFailed + r.NoContent
}

// outcome is the tagged result of one per-headline task: either a candidate
// news row or a skip reason. Tasks never fail the batch.
type outcome struct {
	news *database.News
	skip string
}

const (
	skipInvalid    = "invalid"
	skipSource     = "source"
	skipExtraction = "extraction"
	skipNoContent  = "no content"
)

// HeadlineFetcher pulls top headlines per category, extracts full article
// text in parallel, deduplicates against storage and bulk-persists survivors.
type HeadlineFetcher struct {
	db         *database.DB
	client     *NewsAPIClient
	feeds      *FeedParser
	extractor  *extract.Extractor
	categories []string
	country    string
	language   string
}

// NewHeadlineFetcher creates a fetcher from configuration.
func NewHeadlineFetcher(cfg *config.Config, db *database.DB) *HeadlineFetcher {
	f := &HeadlineFetcher{
		db:         db,
		client:     newsAPIClientFromConfig(cfg),
		extractor:  extract.NewExtractor(cfg.ExtractionTimeout()),
		categories: cfg.NewsAPI.Categories,
		country:    cfg.NewsAPI.Country,
		language:   cfg.NewsAPI.Language,
	}

	if len(cfg.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Feeds))
		for i, fc := range cfg.Feeds {
			feeds[i] = FeedConfig{URL: fc.URL, Name: fc.Name, Category: fc.Category}
		}
		f.feeds = NewFeedParser(feeds)
	}

	return f
}

// FetchAndStoreHeadlines runs the full fetch pipeline. Categories are
// processed strictly one after another; a failed headline API call aborts the
// run. Supplemental feeds are best-effort and run after the API categories.
func (f *HeadlineFetcher) FetchAndStoreHeadlines(ctx context.Context) (*Result, error) {
	log.Println("Starting to fetch headlines")
	r := &Result{}

	if !f.client.IsConfigured() {
		return r, errors.New("news API key is not set; configure newsapi.api_key_env and export the key")
	}

	for _, category := range f.categories {
		log.Printf("Fetching %s headlines", category)
		headlines, err := f.client.TopHeadlines(ctx, category)
		if err != nil {
			return r, err
		}
		log.Printf("Found %d %s headlines", len(headlines), category)

		r.TotalFound += len(headlines)
		if err := f.processHeadlines(ctx, headlines, category, r); err != nil {
			return r, err
		}
	}

	if f.feeds != nil {
		for _, fh := range f.feeds.ParseAll() {
			r.TotalFound += len(fh.Headlines)
			if err := f.processHeadlines(ctx, fh.Headlines, fh.Category, r); err != nil {
				return r, err
			}
		}
	}

	log.Printf("Finished fetching headlines: %d found, %d stored, %d skipped, %d duplicates",
		r.TotalFound, r.Stored, r.Skipped(), r.DuplicateURL+r.DuplicateTitleDate)
	return r, nil
}

// processHeadlines fans out one task per headline, waits for all of them to
// settle, deduplicates the survivors and bulk-inserts them.
func (f *HeadlineFetcher) processHeadlines(ctx context.Context, headlines []Headline, category string, r *Result) error {
	if len(headlines) == 0 {
		return nil
	}

	outcomes := make([]outcome, len(headlines))
	var wg sync.WaitGroup
	for i, h := range headlines {
		wg.Add(1)
		go func(i int, h Headline) {
			defer wg.Done()
			outcomes[i] = f.processHeadline(ctx, h, category)
		}(i, h)
	}
	wg.Wait()

	var candidates []database.News
	for _, o := range outcomes {
		switch o.skip {
		case "":
			candidates = append(candidates, *o.news)
		case skipInvalid:
			r.Invalid++
		case skipSource:
			r.SourceFailed++
		case skipNoContent:
			r.NoContent++
		default:
			r.ExtractionFailed++
		}
	}

	survivors := f.dedupCandidates(candidates, r)
	if len(survivors) == 0 {
		log.Printf("No new articles to save for category: %s", category)
		return nil
	}

	log.Printf("Saving %d articles for category: %s", len(survivors), category)
	if _, err := f.db.InsertNewsBatch(survivors); err != nil {
		return err
	}
	r.Stored += len(survivors)
	return nil
}

// processHeadline resolves the headline's source, extracts the article body
// and builds a candidate news row. Failures are tagged skips, never errors:
// one flaky news site must not take down its siblings.
func (f *HeadlineFetcher) processHeadline(ctx context.Context, h Headline, category string) outcome {
	if h.Title == "" || h.Title == "[Removed]" || h.URL == "" {
		return outcome{skip: skipInvalid}
	}

	source, err := f.db.FindOrCreateSource(h.Source.Name, f.country, f.language, category)
	if err != nil {
		log.Printf("Skipping article, source lookup failed for %q: %v", h.Source.Name, err)
		return outcome{skip: skipSource}
	}

	article, err := f.extractor.Extract(ctx, h.URL)
	if err != nil {
		if errors.Is(err, extract.ErrNoContent) {
			log.Printf("Warning: no content extracted for article: %s", h.Title)
			return outcome{skip: skipNoContent}
		}
		log.Printf("Warning: skipping article due to extraction timeout or error: %s (%v)", h.Title, err)
		return outcome{skip: skipExtraction}
	}

	content := article.TextContent
	if content == "" {
		content = article.Excerpt
	}

	var author *string
	if h.Author != "" {
		author = &h.Author
	}
	newsURL := h.URL

	publishedAt, err := time.Parse(time.RFC3339, h.PublishedAt)
	if err != nil {
		publishedAt = time.Time{}
	}

	return outcome{news: &database.News{
		Title:       h.Title,
		Author:      author,
		Content:     content,
		URL:         &newsURL,
		PublishedAt: publishedAt,
		SourceID:    source.SourceID,
	}}
}

// dedupCandidates drops candidates already present in storage or duplicated
// within the batch itself. URL match takes precedence; candidates without a
// URL (and URL misses) fall back to exact title + publish timestamp. A failed
// dedup lookup fails open: better a duplicate than lost data.
func (f *HeadlineFetcher) dedupCandidates(candidates []database.News, r *Result) []database.News {
	seenURLs := make(map[string]bool)
	seenTitleDates := make(map[string]bool)

	var survivors []database.News
	for _, c := range candidates {
		titleDateKey := c.Title + "|" + c.PublishedAt.UTC().Format(time.RFC3339)

		if c.URL != nil && seenURLs[*c.URL] {
			log.Printf("Duplicate within batch by URL, skipping: %s", c.Title)
			r.DuplicateURL++
			continue
		}
		if seenTitleDates[titleDateKey] {
			log.Printf("Duplicate within batch by title and date, skipping: %s", c.Title)
			r.DuplicateTitleDate++
			continue
		}

		if dup, reason := f.isStoredDuplicate(c); dup {
			if reason == "url" {
				r.DuplicateURL++
			} else {
				r.DuplicateTitleDate++
			}
			log.Printf("Duplicate by %s, skipping: %s", reason, c.Title)
			continue
		}

		if c.URL != nil {
			seenURLs[*c.URL] = true
		}
		seenTitleDates[titleDateKey] = true
		survivors = append(survivors, c)
	}
	return survivors
}

func (f *HeadlineFetcher) isStoredDuplicate(c database.News) (bool, string) {
	if c.URL != nil {
		exists, err := f.db.NewsExistsByURL(*c.URL)
		if err != nil {
			log.Printf("Dedup lookup failed for %s, treating as unique: %v", *c.URL, err)
			return false, ""
		}
		if exists {
			return true, "url"
		}
	}

	exists, err := f.db.NewsExistsByTitleAndDate(c.Title, c.PublishedAt)
	if err != nil {
		log.Printf("Dedup lookup failed for %q, treating as unique: %v", c.Title, err)
		return false, ""
	}
	if exists {
		return true, "title and date"
	}
	return false, ""
}
