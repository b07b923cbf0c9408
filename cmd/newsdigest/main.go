package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newsdigest/internal/config"
	"newsdigest/internal/database"
	"newsdigest/internal/pipeline"
	"newsdigest/internal/scheduler"
	"newsdigest/internal/server"
	"newsdigest/internal/summarize"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsdigest",
	Short:   "Personal news aggregation and summarization",
	Long:    "newsdigest fetches top headlines, extracts full article text, and summarizes it through a local summarization service.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsdigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsdigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure categories, feeds, and the summarizer endpoint.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Articles:")
		fmt.Printf("  Stored: %d\n", stats.News)
		fmt.Printf("  Summarized: %d\n", stats.SummarizedNews)
		fmt.Printf("  Pending summary: %d\n", stats.Unsummarized)
		fmt.Printf("\nSources: %d\n", stats.Sources)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		client := summarize.NewClient(cfg.Summarizer.BaseURL)
		if status, err := client.Health(ctx); err != nil {
			fmt.Printf("\nSummarizer (%s): unreachable\n", cfg.Summarizer.BaseURL)
		} else {
			fmt.Printf("\nSummarizer (%s): %s\n", cfg.Summarizer.BaseURL, status)
		}
		return nil
	},
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch top headlines and store extracted articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Fetching headlines...")
		result, err := pipeline.New(cfg, db).FetchOnly(cmd.Context())
		if result != nil {
			fmt.Println("\nFetch complete:")
			fmt.Printf("  Total found: %d\n", result.TotalFound)
			fmt.Printf("  Stored: %d\n", result.Stored)
			fmt.Printf("  Skipped (invalid/extraction): %d\n", result.Skipped())
			fmt.Printf("  Duplicates: %d\n", result.DuplicateURL+result.DuplicateTitleDate)
		}
		return err
	},
}

// --- summarize command ---

var summarizeCmd = &cobra.Command{
	Use:   "summarize [newsID...]",
	Short: "Summarize stored articles (all unsummarized by default)",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		summarizer := summarize.NewSummarizer(db, summarize.NewClient(cfg.Summarizer.BaseURL))

		if len(args) == 0 {
			saved, err := summarizer.SummarizeAllUnsummarized(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Summarized %d article(s)\n", len(saved))
			return nil
		}

		newsIDs := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid news ID: %s", arg)
			}
			newsIDs = append(newsIDs, id)
		}

		saved, err := summarizer.SummarizeAndSaveMany(cmd.Context(), newsIDs)
		if err != nil {
			return err
		}
		fmt.Printf("Summarized %d of %d article(s)\n", len(saved), len(newsIDs))
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> summarize",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result := pipeline.New(cfg, db).Run(cmd.Context())
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/2: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if err := result.Err(); err != nil {
			return err
		}
		fmt.Println("\nPipeline complete! Run 'newsdigest serve' to browse summaries.")
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and the daily fetch scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe := pipeline.New(cfg, db)
		sched, err := scheduler.New(func(ctx context.Context) error {
			return pipe.Run(ctx).Err()
		}, cfg.Scheduler.FetchTime, cfg.StartupDelay())
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		sched.Start(ctx)
		defer sched.Stop()

		srv, err := server.New(db, summarize.NewClient(cfg.Summarizer.BaseURL))
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.ListenAndServe()
		}()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Printf("Daily fetch scheduled at %s\n", cfg.Scheduler.FetchTime)
		fmt.Println("Press Ctrl+C to stop")

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "newsdigest.db")
	return database.Open(dbPath)
}
