package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newsdigest/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestNews(t *testing.T, db *database.DB, title string) (int64, int64) {
	t.Helper()
	src, err := db.FindOrCreateSource("Wire", "us", "en", "business")
	if err != nil {
		t.Fatal(err)
	}
	url := "https://example.com/" + strings.ReplaceAll(title, " ", "-")
	id, err := db.InsertNews(database.News{
		Title: title, Content: "body of " + title, URL: &url,
		PublishedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		SourceID:    src.SourceID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id, src.SourceID
}

// echoSummarizer answers both endpoints by prefixing titles, and records how
// many articles each batch call carried.
func echoSummarizer(t *testing.T, batchSizes *[]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/summarize":
			var a ArticleData
			json.NewDecoder(r.Body).Decode(&a)
			json.NewEncoder(w).Encode(SummarizedArticle{
				SummarizedTitle:   "S: " + a.Title,
				SummarizedContent: "summary of " + a.Title,
				OriginalTitle:     a.Title,
				OriginalURL:       a.URL,
			})
		case "/batch-summarize":
			var req struct {
				Articles []ArticleData `json:"articles"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if batchSizes != nil {
				*batchSizes = append(*batchSizes, len(req.Articles))
			}
			results := make([]SummarizedArticle, len(req.Articles))
			for i, a := range req.Articles {
				results[i] = SummarizedArticle{
					SummarizedTitle:   "S: " + a.Title,
					SummarizedContent: "summary of " + a.Title,
					OriginalTitle:     a.Title,
				}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": results, "failed_indices": []int{},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarizeAndSave(t *testing.T) {
	db := openTestDB(t)
	newsID, sourceID := insertTestNews(t, db, "Big Story")
	srv := echoSummarizer(t, nil)

	s := NewSummarizer(db, NewClient(srv.URL))
	saved, err := s.SummarizeAndSave(context.Background(), newsID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.NewsID != newsID || saved.SourceID != sourceID {
		t.Errorf("unexpected ownership: %+v", saved)
	}
	if saved.SummarizedContent != "S: Big Story\n\nsummary of Big Story" {
		t.Errorf("unexpected blob: %q", saved.SummarizedContent)
	}
}

func TestSummarizeAndSaveUpsertIdempotent(t *testing.T) {
	db := openTestDB(t)
	newsID, _ := insertTestNews(t, db, "Repeat Story")
	srv := echoSummarizer(t, nil)

	s := NewSummarizer(db, NewClient(srv.URL))
	first, err := s.SummarizeAndSave(context.Background(), newsID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := s.SummarizeAndSave(context.Background(), newsID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.SumNewsID != second.SumNewsID {
		t.Error("expected the same summary row on re-run")
	}

	all, _ := db.ListSummarizedNews()
	if len(all) != 1 {
		t.Errorf("expected exactly 1 summary row, got %d", len(all))
	}
}

func TestSummarizeAndSaveNotFound(t *testing.T) {
	db := openTestDB(t)
	srv := echoSummarizer(t, nil)

	s := NewSummarizer(db, NewClient(srv.URL))
	_, err := s.SummarizeAndSave(context.Background(), 999)
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSummarizeAndSaveManyPreservesOrder(t *testing.T) {
	db := openTestDB(t)
	id1, _ := insertTestNews(t, db, "First")
	id2, _ := insertTestNews(t, db, "Second")
	srv := echoSummarizer(t, nil)

	s := NewSummarizer(db, NewClient(srv.URL))
	saved, err := s.SummarizeAndSaveMany(context.Background(), []int64{id1, id2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved, got %d", len(saved))
	}

	s1, _ := db.GetSummarizedByNewsID(id1)
	if !strings.Contains(s1.SummarizedContent, "summary of First") {
		t.Errorf("summary for news %d belongs to the wrong article: %q", id1, s1.SummarizedContent)
	}
	s2, _ := db.GetSummarizedByNewsID(id2)
	if !strings.Contains(s2.SummarizedContent, "summary of Second") {
		t.Errorf("summary for news %d belongs to the wrong article: %q", id2, s2.SummarizedContent)
	}
}

func TestSummarizeAndSaveManyPartialFailure(t *testing.T) {
	db := openTestDB(t)
	id1, _ := insertTestNews(t, db, "Good")
	id2, _ := insertTestNews(t, db, "Bad")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []SummarizedArticle{
				{SummarizedTitle: "S: Good", SummarizedContent: "summary of Good", OriginalTitle: "Good"},
			},
			"failed_indices": []int{1},
		})
	}))
	defer srv.Close()

	s := NewSummarizer(db, NewClient(srv.URL))
	saved, err := s.SummarizeAndSaveMany(context.Background(), []int64{id1, id2})
	if err != nil {
		t.Fatalf("partial failure must not be an error: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved, got %d", len(saved))
	}
	if saved[0].NewsID != id1 {
		t.Errorf("expected summary for news %d, got %d", id1, saved[0].NewsID)
	}
	if _, err := db.GetSummarizedByNewsID(id2); !errors.Is(err, database.ErrNotFound) {
		t.Error("expected no summary row for the failed article")
	}
}

func TestSummarizeAllUnsummarized(t *testing.T) {
	db := openTestDB(t)
	id1, sourceID := insertTestNews(t, db, "One")
	insertTestNews(t, db, "Two")
	insertTestNews(t, db, "Three")
	db.UpsertSummarizedNews(id1, "already done", sourceID)

	var batchSizes []int
	srv := echoSummarizer(t, &batchSizes)

	s := NewSummarizer(db, NewClient(srv.URL))
	saved, err := s.SummarizeAllUnsummarized(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 {
		t.Errorf("expected 2 saved, got %d", len(saved))
	}
	if len(batchSizes) != 1 || batchSizes[0] != 2 {
		t.Errorf("expected exactly one batch of 2 articles, got %v", batchSizes)
	}
}

func TestSummarizeAllUnsummarizedEmpty(t *testing.T) {
	db := openTestDB(t)
	id1, sourceID := insertTestNews(t, db, "Only")
	db.UpsertSummarizedNews(id1, "done", sourceID)

	var batchSizes []int
	srv := echoSummarizer(t, &batchSizes)

	s := NewSummarizer(db, NewClient(srv.URL))
	saved, err := s.SummarizeAllUnsummarized(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("expected no saved summaries, got %d", len(saved))
	}
	if len(batchSizes) != 0 {
		t.Errorf("expected no service call for empty backlog, got %v", batchSizes)
	}
}
