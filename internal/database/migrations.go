package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    source_id INTEGER PRIMARY KEY AUTOINCREMENT,
    country TEXT NOT NULL,
    language TEXT NOT NULL,
    publisher TEXT NOT NULL,
    category TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_identity
    ON sources(publisher, country, language, category);

CREATE TABLE IF NOT EXISTS news (
    news_id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    author TEXT,
    content TEXT NOT NULL,
    url TEXT,
    published_at TEXT NOT NULL,
    source_id INTEGER NOT NULL REFERENCES sources(source_id),
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_news_url ON news(url);
CREATE INDEX IF NOT EXISTS idx_news_title_published ON news(title, published_at);

CREATE TABLE IF NOT EXISTS summarized_news (
    sum_news_id INTEGER PRIMARY KEY AUTOINCREMENT,
    news_id INTEGER UNIQUE NOT NULL REFERENCES news(news_id),
    summarized_content TEXT NOT NULL,
    source_id INTEGER NOT NULL REFERENCES sources(source_id),
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
