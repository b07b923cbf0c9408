package pipeline

import (
	"context"
	"fmt"
	"log"

	"newsdigest/internal/collect"
	"newsdigest/internal/config"
	"newsdigest/internal/database"
	"newsdigest/internal/summarize"
)

// StepResult records the outcome of one pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step ended in error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Err returns the first step error, or nil.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Pipeline runs the full fetch-then-summarize cycle. It is the unit the
// scheduler triggers and the `run` command executes once.
type Pipeline struct {
	fetcher    *collect.HeadlineFetcher
	summarizer *summarize.Summarizer
}

// New creates a Pipeline wired to the given database and config.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{
		fetcher:    collect.NewHeadlineFetcher(cfg, db),
		summarizer: summarize.NewSummarizer(db, summarize.NewClient(cfg.Summarizer.BaseURL)),
	}
}

// Run fetches new headlines and then summarizes everything that has no
// summary yet, including leftovers from earlier failed runs. A fetch
// failure skips the summarize step; stored articles stay put either way.
func (p *Pipeline) Run(ctx context.Context) *Result {
	result := &Result{}

	fetched, err := p.fetcher.FetchAndStoreHeadlines(ctx)
	step := StepResult{Name: "fetch", Err: err}
	if fetched != nil {
		step.Summary = fmt.Sprintf("%d found, %d stored, %d skipped, %d duplicates",
			fetched.TotalFound, fetched.Stored, fetched.Skipped(),
			fetched.DuplicateURL+fetched.DuplicateTitleDate)
	}
	result.Steps = append(result.Steps, step)
	if err != nil {
		log.Printf("Fetch step failed: %v", err)
		return result
	}

	summarized, err := p.summarizer.SummarizeAllUnsummarized(ctx)
	result.Steps = append(result.Steps, StepResult{
		Name:    "summarize",
		Summary: fmt.Sprintf("%d articles summarized", len(summarized)),
		Err:     err,
	})
	if err != nil {
		log.Printf("Summarize step failed: %v", err)
	}
	return result
}

// FetchOnly runs just the headline fetch step.
func (p *Pipeline) FetchOnly(ctx context.Context) (*collect.Result, error) {
	return p.fetcher.FetchAndStoreHeadlines(ctx)
}

// SummarizeOnly runs just the summarize step over unsummarized articles.
func (p *Pipeline) SummarizeOnly(ctx context.Context) (int, error) {
	summarized, err := p.summarizer.SummarizeAllUnsummarized(ctx)
	return len(summarized), err
}
