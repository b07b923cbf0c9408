package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"newsdigest/internal/database"
	"newsdigest/internal/summarize"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSummarizedNews(t *testing.T, db *database.DB) int64 {
	t.Helper()
	source, err := db.FindOrCreateSource("Test Publisher", "us", "en", "technology")
	if err != nil {
		t.Fatalf("FindOrCreateSource() error = %v", err)
	}
	url := "https://example.com/article"
	newsID, err := db.InsertNews(database.News{
		Title:       "Test Article",
		Content:     "The extracted article text.",
		URL:         &url,
		PublishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SourceID:    source.SourceID,
	})
	if err != nil {
		t.Fatalf("InsertNews() error = %v", err)
	}
	_, err = db.UpsertSummarizedNews(newsID, "Short Test Summary\n\nThe summary body.", source.SourceID)
	if err != nil {
		t.Fatalf("UpsertSummarizedNews() error = %v", err)
	}
	return newsID
}

func newTestServer(t *testing.T, db *database.DB, summarizer *summarize.Client) *Server {
	t.Helper()
	s, err := New(db, summarizer)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestIndexPage(t *testing.T) {
	db := openTestDB(t)
	seedSummarizedNews(t, db)
	s := newTestServer(t, db, nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Short Test Summary") {
		t.Errorf("index page missing summary title, got:\n%s", body)
	}
	if !strings.Contains(body, "Test Publisher") {
		t.Errorf("index page missing publisher")
	}
}

func TestIndexPageEmpty(t *testing.T) {
	db := openTestDB(t)
	s := newTestServer(t, db, nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "No summaries yet") {
		t.Errorf("empty index should show placeholder text")
	}
}

func TestNewsPage(t *testing.T) {
	db := openTestDB(t)
	newsID := seedSummarizedNews(t, db)
	s := newTestServer(t, db, nil)

	req := httptest.NewRequest("GET", "/news/"+strconv.FormatInt(newsID, 10), nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Test Article") {
		t.Errorf("news page missing article title")
	}
	if !strings.Contains(body, "The summary body.") {
		t.Errorf("news page missing summary body")
	}
}

func TestNewsPageNotFound(t *testing.T) {
	db := openTestDB(t)
	s := newTestServer(t, db, nil)

	for _, path := range []string{"/news/9999", "/news/not-a-number"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestHealthz(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer upstream.Close()

	db := openTestDB(t)
	s := newTestServer(t, db, summarize.NewClient(upstream.URL))

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding healthz response: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status = %q, want %q", got["status"], "ok")
	}
	if got["summarizer"] != "healthy" {
		t.Errorf("summarizer = %q, want %q", got["summarizer"], "healthy")
	}
}

func TestHealthzSummarizerDown(t *testing.T) {
	db := openTestDB(t)
	s := newTestServer(t, db, summarize.NewClient("http://127.0.0.1:1"))

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding healthz response: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status = %q, want %q", got["status"], "ok")
	}
	if got["summarizer"] != "unreachable" {
		t.Errorf("summarizer = %q, want %q", got["summarizer"], "unreachable")
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Title\n\nBody", "Title"},
		{"No newline", "No newline"},
		{"  padded  \nrest", "padded"},
	}
	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

