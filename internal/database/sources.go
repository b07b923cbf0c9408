package database

import "database/sql"

// FindOrCreateSource returns the source matching the exact tuple, creating it
// if absent. Safe under concurrent callers with the same tuple: the unique
// index on the tuple makes at most one insert win, and losers re-read the
// winner's row.
func (db *DB) FindOrCreateSource(publisher, country, language, category string) (*Source, error) {
	src, err := db.findSource(publisher, country, language, category)
	if err == nil {
		return src, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	_, err = db.conn.Exec(
		`INSERT INTO sources (country, language, publisher, category)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(publisher, country, language, category) DO NOTHING`,
		country, language, publisher, category,
	)
	if err != nil {
		return nil, err
	}

	return db.findSource(publisher, country, language, category)
}

func (db *DB) findSource(publisher, country, language, category string) (*Source, error) {
	var s Source
	err := db.conn.QueryRow(
		`SELECT source_id, country, language, publisher, category FROM sources
		WHERE publisher = ? AND country = ? AND language = ? AND category = ?`,
		publisher, country, language, category,
	).Scan(&s.SourceID, &s.Country, &s.Language, &s.Publisher, &s.Category)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSourceByID returns a single source by ID.
func (db *DB) GetSourceByID(sourceID int64) (*Source, error) {
	var s Source
	err := db.conn.QueryRow(
		`SELECT source_id, country, language, publisher, category FROM sources
		WHERE source_id = ?`, sourceID,
	).Scan(&s.SourceID, &s.Country, &s.Language, &s.Publisher, &s.Category)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSources returns all sources ordered by ID.
func (db *DB) ListSources() ([]Source, error) {
	rows, err := db.conn.Query(
		`SELECT source_id, country, language, publisher, category FROM sources
		ORDER BY source_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.SourceID, &s.Country, &s.Language, &s.Publisher, &s.Category); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}
