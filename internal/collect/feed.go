package collect

import (
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 20

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL      string
	Name     string
	Category string
}

// FeedHeadlines holds one feed's entries mapped to the headline shape.
type FeedHeadlines struct {
	Category  string
	Headlines []Headline
}

// FeedParser parses RSS/Atom feeds into headline items.
type FeedParser struct {
	feeds []FeedConfig
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds}
}

// ParseAll parses all configured feeds. A feed that fails to parse is logged
// and skipped; the rest proceed.
func (fp *FeedParser) ParseAll() []FeedHeadlines {
	parser := gofeed.NewParser()

	var all []FeedHeadlines
	for _, fc := range fp.feeds {
		headlines, err := parseFeed(parser, fc)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		log.Printf("Parsed %d entries from feed %s", len(headlines), fc.Name)
		all = append(all, FeedHeadlines{Category: fc.Category, Headlines: headlines})
	}
	return all
}

func parseFeed(parser *gofeed.Parser, fc FeedConfig) ([]Headline, error) {
	feed, err := parser.ParseURL(fc.URL)
	if err != nil {
		return nil, err
	}

	name := fc.Name
	if name == "" {
		name = strings.TrimSpace(feed.Title)
	}

	var headlines []Headline
	for _, item := range feed.Items {
		if len(headlines) >= maxPerFeed {
			break
		}
		h := parseItem(item, name)
		if h == nil {
			continue
		}
		headlines = append(headlines, *h)
	}
	return headlines, nil
}

func parseItem(item *gofeed.Item, source string) *Headline {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if itemURL == "" || title == "" {
		return nil
	}

	var h Headline
	h.Source.Name = source
	h.Title = title
	h.URL = itemURL
	if len(item.Authors) > 0 {
		h.Author = item.Authors[0].Name
	}
	if item.PublishedParsed != nil {
		h.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		h.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return &h
}
