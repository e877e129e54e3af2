package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultColumn is the column holding sample identifiers.
const DefaultColumn = "sample_id"

// DefaultTable is the table read from SQLite sources.
const DefaultTable = "metadata"

// Format identifies how a metadata file is read.
type Format int

const (
	// FormatParquet reads Apache Parquet files through DuckDB.
	FormatParquet Format = iota

	// FormatCSV reads comma separated files through DuckDB.
	FormatCSV

	// FormatTSV reads tab separated files through DuckDB.
	FormatTSV

	// FormatJSON reads a JSON array of records through DuckDB.
	FormatJSON

	// FormatNDJSON reads newline delimited JSON through DuckDB.
	FormatNDJSON

	// FormatSQLite reads a table of a SQLite database.
	FormatSQLite
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatJSON:
		return "json"
	case FormatNDJSON:
		return "ndjson"
	case FormatSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is returned for files whose extension is not recognised.
var ErrUnsupportedFormat = errors.New("unsupported metadata format")

// DetectFormat picks the Format from the file extension.
func DetectFormat(p string) (Format, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".json":
		return FormatJSON, nil
	case ".ndjson", ".jsonl":
		return FormatNDJSON, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(p))
	}
}

// Options configures Load.
type Options struct {
	// Column holds the sample identifiers. Defaults to DefaultColumn.
	Column string

	// Table is the SQLite table to read. Defaults to DefaultTable.
	Table string
}

func (o Options) withDefaults() Options {
	if o.Column == "" {
		o.Column = DefaultColumn
	}
	if o.Table == "" {
		o.Table = DefaultTable
	}
	return o
}

// source reads sample identifiers from one kind of file.
type source interface {
	sampleIDs(ctx context.Context, p string, format Format, opts Options) ([]int, error)
}

// Load reads the sample identifiers of the metadata file at p, in table order.
//
// The file is read once and never modified. Every identifier must be a
// non-NULL, non-negative integer; the first violation fails the load with
// the offending row number.
func Load(ctx context.Context, p string, opts Options) ([]int, error) {
	format, err := DetectFormat(p)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("metadata file not found: %s", p)
		}
		return nil, err
	}

	var src source = duckDBSource{}
	if format == FormatSQLite {
		src = sqliteSource{}
	}

	ids, err := src.sampleIDs(ctx, p, format, opts.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("reading %s metadata %s: %w", format, p, err)
	}
	return ids, nil
}

// Getter fetches a remote document.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// IsRemote reports whether p is an http(s) URL rather than a local path.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// LoadRemote downloads the metadata file at rawURL into a temporary file
// and loads it. The format is taken from the extension of the URL path.
func LoadRemote(ctx context.Context, g Getter, rawURL string, opts Options) ([]int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata URL: %w", err)
	}

	ext := path.Ext(u.Path)
	if _, err := DetectFormat(ext); err != nil {
		return nil, err
	}

	data, err := g.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("downloading metadata: %w", err)
	}

	f, err := os.CreateTemp("", "sls-metadata-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("saving metadata: %w", err)
	}

	return Load(ctx, f.Name(), opts)
}

// scanIDs collects the integer sample id in the first column of rows. An
// optional second column carries the same value as DOUBLE and must match it.
func scanIDs(rows *sql.Rows) ([]int, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var (
		id    sql.NullInt64
		exact sql.NullFloat64
	)
	dest := []any{&id}
	if len(cols) > 1 {
		dest = append(dest, &exact)
	}

	var ids []int
	row := 0
	for rows.Next() {
		row++

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if !id.Valid {
			return nil, fmt.Errorf("row %d: sample id is NULL", row)
		}
		if len(cols) > 1 && exact.Valid && exact.Float64 != float64(id.Int64) {
			return nil, fmt.Errorf("row %d: sample id %v is not an integer", row, exact.Float64)
		}
		if id.Int64 < 0 {
			return nil, fmt.Errorf("row %d: sample id %d is negative", row, id.Int64)
		}

		ids = append(ids, int(id.Int64))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// quoteIdent quotes a column or table name for DuckDB and SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral quotes a string literal for DuckDB and SQLite.
func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
