package database

import "database/sql"

// UpsertSummarizedNews inserts the summary for a news ID or overwrites an
// existing one in place, refreshing updated_at. The conflict clause makes the
// write atomic with respect to concurrent summarization runs for the same ID.
func (db *DB) UpsertSummarizedNews(newsID int64, summarizedContent string, sourceID int64) (*SummarizedNews, error) {
	_, err := db.conn.Exec(
		`INSERT INTO summarized_news (news_id, summarized_content, source_id)
		VALUES (?, ?, ?)
		ON CONFLICT(news_id) DO UPDATE SET
			summarized_content = excluded.summarized_content,
			source_id = excluded.source_id,
			updated_at = datetime('now')`,
		newsID, summarizedContent, sourceID,
	)
	if err != nil {
		return nil, err
	}
	return db.GetSummarizedByNewsID(newsID)
}

// GetSummarizedByNewsID returns the summary owned by a news row, or ErrNotFound.
func (db *DB) GetSummarizedByNewsID(newsID int64) (*SummarizedNews, error) {
	row := db.conn.QueryRow(
		`SELECT sum_news_id, news_id, summarized_content, source_id, created_at, updated_at
		FROM summarized_news WHERE news_id = ?`, newsID,
	)
	s, err := scanSummarized(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSummarizedNews returns all summaries, newest first.
func (db *DB) ListSummarizedNews() ([]SummarizedNews, error) {
	rows, err := db.conn.Query(
		`SELECT sum_news_id, news_id, summarized_content, source_id, created_at, updated_at
		FROM summarized_news ORDER BY sum_news_id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SummarizedNews
	for rows.Next() {
		var s SummarizedNews
		if err := rows.Scan(&s.SumNewsID, &s.NewsID, &s.SummarizedContent,
			&s.SourceID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListSummarizedNewsIDs returns the news IDs that already have a summary.
func (db *DB) ListSummarizedNewsIDs() ([]int64, error) {
	rows, err := db.conn.Query("SELECT news_id FROM summarized_news ORDER BY news_id")
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

func scanSummarized(row *sql.Row) (*SummarizedNews, error) {
	var s SummarizedNews
	if err := row.Scan(&s.SumNewsID, &s.NewsID, &s.SummarizedContent,
		&s.SourceID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
