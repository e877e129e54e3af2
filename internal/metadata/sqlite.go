package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteSource reads a table of a SQLite database opened read-only.
type sqliteSource struct{}

func (sqliteSource) sampleIDs(ctx context.Context, p string, _ Format, opts Options) ([]int, error) {
	dsn, err := sqliteDSN(p)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	defer db.Close()

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", quoteIdent(opts.Column), quoteIdent(opts.Table))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// sqliteDSN builds a read-only "file:" URI for the database at p. The path
// is made absolute and percent-encoded, so "?", "#" and "%" in directory or
// file names are not read as URI syntax.
func sqliteDSN(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=ro&_pragma=busy_timeout(5000)",
	}
	return u.String(), nil
}
