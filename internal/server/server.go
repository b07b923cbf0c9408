package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"newsdigest/internal/database"
	"newsdigest/internal/summarize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the read-only web UI over stored news and summaries.
type Server struct {
	db         *database.DB
	summarizer *summarize.Client
	pages      map[string]*template.Template
	mux        *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, summarizer *summarize.Client) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"firstLine": firstLine,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "news.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, summarizer: summarizer, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/news/", s.handleNews)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

// summaryItem is one row on the index page.
type summaryItem struct {
	NewsID    int64
	Title     string
	Publisher string
	Category  string
	UpdatedAt string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	summaries, err := s.db.ListSummarizedNews()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]summaryItem, 0, len(summaries))
	for _, sum := range summaries {
		item := summaryItem{NewsID: sum.NewsID, Title: firstLine(sum.SummarizedContent)}
		if sum.UpdatedAt != nil {
			item.UpdatedAt = *sum.UpdatedAt
		}
		if src, err := s.db.GetSourceByID(sum.SourceID); err == nil {
			item.Publisher = src.Publisher
			item.Category = src.Category
		}
		items = append(items, item)
	}

	stats, _ := s.db.GetStats()
	s.render(w, "index.html", map[string]any{
		"Items": items,
		"Stats": stats,
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/news/")
	newsID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	news, err := s.db.GetNewsByID(newsID)
	if errors.Is(err, database.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summary, err := s.db.GetSummarizedByNewsID(newsID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var source *database.Source
	if src, err := s.db.GetSourceByID(news.SourceID); err == nil {
		source = src
	}

	s.render(w, "news.html", map[string]any{
		"News":    news,
		"Summary": summary,
		"Source":  source,
	})
}

// handleHealthz reports process liveness plus the summarizer's own health.
// The summarizer status is informational and never gates anything.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summarizerStatus := "unreachable"
	if s.summarizer != nil {
		if status, err := s.summarizer.Health(ctx); err == nil {
			summarizerStatus = status
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"summarizer": summarizerStatus,
	})
}

func (s *Server) render(w http.ResponseWriter, page string, data map[string]any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Template error rendering %s: %v", page, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return strings.TrimSpace(text)
}
