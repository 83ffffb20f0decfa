package hits

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/wildstyl3r/comptsplit/internal/utils"
)

// WriteCSV writes the recorded rows with a header line, rows in natural order.
func WriteCSV(w io.Writer, r *Recorder) error {
	data := make(utils.CSV, 0, len(r.rows))
	for _, row := range r.rows {
		flat := r.flatten(row)
		rec := make([]string, len(flat))
		for i, v := range flat {
			rec[i] = formatValue(v)
		}
		data = append(data, rec)
	}
	return utils.WriteAsCSV(w, r.Columns(), data)
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func sqlType(t Type) string {
	switch t {
	case Int:
		return "INTEGER"
	case String:
		return "TEXT"
	}
	return "REAL"
}

// WriteSQLite stores the recorded rows in table inside the database at path,
// replacing any previous table of that name. All rows go in one transaction.
func WriteSQLite(ctx context.Context, path, table string, r *Recorder) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	cols := r.Columns()
	types := r.columnTypes()
	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%q %s", c, sqlType(types[i]))
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q VALUES (%s)`, table, strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range r.rows {
		if _, err := stmt.ExecContext(ctx, r.flatten(row)...); err != nil {
			return fmt.Errorf("failed to insert hit: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hits: %w", err)
	}
	return nil
}
