package database

import "time"

// Source is a deduplicated (publisher, country, language, category) identity
// shared by many news articles.
type Source struct {
	SourceID  int64
	Country   string
	Language  string
	Publisher string
	Category  string
}

// News represents a stored news article with its extracted body text.
type News struct {
	NewsID      int64
	Title       string
	Author      *string
	Content     string
	URL         *string
	PublishedAt time.Time
	SourceID    int64
	CreatedAt   *string
	UpdatedAt   *string
}

// SummarizedNews holds the summarized/translated text for one News row.
// At most one row exists per news_id.
type SummarizedNews struct {
	SumNewsID         int64
	NewsID            int64
	SummarizedContent string
	SourceID          int64
	CreatedAt         *string
	UpdatedAt         *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Sources        int
	News           int
	SummarizedNews int
	Unsummarized   int
}
