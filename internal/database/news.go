package database

import (
	"database/sql"
	"time"
)

// timeFormat is the storage format for published_at. Exact string equality on
// this column backs the title+date dedup check, so every writer goes through
// formatTime.
const timeFormat = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// InsertNews inserts a single news row and returns its ID.
func (db *DB) InsertNews(n News) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO news (title, author, content, url, published_at, source_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.Title, n.Author, n.Content, n.URL, formatTime(n.PublishedAt), n.SourceID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertNewsBatch inserts all rows in one transaction and returns their IDs.
func (db *DB) InsertNewsBatch(items []News) ([]int64, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(items))
	for _, n := range items {
		result, err := tx.Exec(
			`INSERT INTO news (title, author, content, url, published_at, source_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			n.Title, n.Author, n.Content, n.URL, formatTime(n.PublishedAt), n.SourceID,
		)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		id, err := result.LastInsertId()
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// NewsExistsByURL reports whether any stored article has exactly this URL.
func (db *DB) NewsExistsByURL(url string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM news WHERE url = ?", url,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// NewsExistsByTitleAndDate reports whether any stored article shares both the
// exact title and publish timestamp.
func (db *DB) NewsExistsByTitleAndDate(title string, publishedAt time.Time) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM news WHERE title = ? AND published_at = ?",
		title, formatTime(publishedAt),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetNewsByID returns a single news row, or ErrNotFound.
func (db *DB) GetNewsByID(newsID int64) (*News, error) {
	row := db.conn.QueryRow(
		`SELECT news_id, title, author, content, url, published_at, source_id, created_at, updated_at
		FROM news WHERE news_id = ?`, newsID,
	)
	n, err := scanNews(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNews returns all news rows ordered by ID.
func (db *DB) ListNews() ([]News, error) {
	rows, err := db.conn.Query(
		`SELECT news_id, title, author, content, url, published_at, source_id, created_at, updated_at
		FROM news ORDER BY news_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsRows(rows)
}

// ListNewsIDs returns all news IDs ordered ascending.
func (db *DB) ListNewsIDs() ([]int64, error) {
	rows, err := db.conn.Query("SELECT news_id FROM news ORDER BY news_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanNewsRows(rows *sql.Rows) ([]News, error) {
	var items []News
	for rows.Next() {
		var n News
		var published string
		if err := rows.Scan(&n.NewsID, &n.Title, &n.Author, &n.Content, &n.URL,
			&published, &n.SourceID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.PublishedAt, _ = time.Parse(timeFormat, published)
		items = append(items, n)
	}
	return items, rows.Err()
}

func scanNews(row *sql.Row) (*News, error) {
	var n News
	var published string
	if err := row.Scan(&n.NewsID, &n.Title, &n.Author, &n.Content, &n.URL,
		&published, &n.SourceID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.PublishedAt, _ = time.Parse(timeFormat, published)
	return &n, nil
}
