// Package metadata reads the ordered list of sample identifiers that drives
// a download run.
//
// The dataset ships its metadata as a Parquet table with one row per sample
// and a sample_id column. Parquet, CSV, TSV and JSON files are queried with an
// in-memory DuckDB; SQLite databases are read with the pure Go modernc driver.
// Rows are returned in table order.
//
// # Usage
//
//	ids, err := metadata.Load(ctx, "../data/metadata.parquet", metadata.Options{})
//	if err != nil {
//		return err
//	}
//
// A metadata file published over http(s) can be loaded with LoadRemote, which
// fetches it into a temporary file first.
package metadata
