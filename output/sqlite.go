package output

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/SNUH-BMI/CDM/domain/model"
)

// sqliteDriverName is the database/sql name of the modernc driver.
const sqliteDriverName = "sqlite"

func quoteIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// buildCreateTableQuery constructs a CREATE TABLE query with inferred column types
func buildCreateTableQuery(name string, info []model.ColumnInfo) string {
	columns := make([]string, len(info))
	for i, ci := range info {
		columns[i] = fmt.Sprintf("%s %s", quoteIdent(ci.Name), ci.Type.String())
	}
	return fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(name), strings.Join(columns, ", "))
}

// buildInsertQuery constructs an INSERT query for the given table
func buildInsertQuery(name string, columnCount int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", columnCount), ", ")
	return fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, quoteIdent(name), placeholders)
}

func writeSQLite(ctx context.Context, path, name string, table *model.Table) (err error) {
	if err := removeExisting(path); err != nil {
		return err
	}
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	info := table.ColumnInfo()
	if _, err := tx.ExecContext(ctx, buildCreateTableQuery(name, info)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, buildInsertQuery(name, len(info)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(info))
	for _, record := range table.Records() {
		for j := range info {
			args[j] = sqlValue(record, j, info[j].Type)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	return tx.Commit()
}

func sqlValue(record model.Record, j int, typ model.ColumnType) any {
	if j >= len(record) || record[j].IsNull() {
		return nil
	}
	s := strings.TrimSpace(record[j].String())
	switch typ {
	case model.ColumnTypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case model.ColumnTypeReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if s == "" && typ != model.ColumnTypeText {
		return nil
	}
	return record[j].String()
}
