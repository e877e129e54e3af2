package metadata

import (
	"context"
	"database/sql"
	"fmt"

	duckdb "github.com/duckdb/duckdb-go/v2"
)

// duckDBSource reads columnar and text tables with an in-memory DuckDB.
type duckDBSource struct{}

func (duckDBSource) sampleIDs(ctx context.Context, p string, format Format, opts Options) ([]int, error) {
	query, err := duckDBQuery(p, format, opts.Column)
	if err != nil {
		return nil, err
	}

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	defer connector.Close()

	db := sql.OpenDB(connector)
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// duckDBQuery builds the SELECT reading column from the file at p.
//
// The column is selected twice, as BIGINT and as DOUBLE, so scanIDs can
// reject fractional ids instead of using the rounded value.
//
// Parquet rows are ordered by their position in the file. Text formats rely
// on DuckDB's default preserve_insertion_order.
func duckDBQuery(p string, format Format, column string) (string, error) {
	col := fmt.Sprintf("CAST(%[1]s AS BIGINT), CAST(%[1]s AS DOUBLE)", quoteIdent(column))
	file := quoteLiteral(p)

	switch format {
	case FormatParquet:
		return fmt.Sprintf("SELECT %s FROM read_parquet(%s, file_row_number = true) ORDER BY file_row_number", col, file), nil
	case FormatCSV:
		return fmt.Sprintf("SELECT %s FROM read_csv_auto(%s, header = true)", col, file), nil
	case FormatTSV:
		return fmt.Sprintf("SELECT %s FROM read_csv_auto(%s, header = true, delim = '\t')", col, file), nil
	case FormatJSON:
		return fmt.Sprintf("SELECT %s FROM read_json_auto(%s, format = 'array')", col, file), nil
	case FormatNDJSON:
		return fmt.Sprintf("SELECT %s FROM read_json_auto(%s, format = 'newline_delimited')", col, file), nil
	default:
		return "", fmt.Errorf("%w for DuckDB: %s", ErrUnsupportedFormat, format)
	}
}
