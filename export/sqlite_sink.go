package export

import (
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/Adarsh-Kmt/IndexInspector/gin"
	"github.com/Adarsh-Kmt/IndexInspector/gist"
	"github.com/Adarsh-Kmt/IndexInspector/spgist"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"

	_ "modernc.org/sqlite"
)

var ErrBadTableName = errors.New("bad table name")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSink copies generator rows into tables of one SQLite database.
// Every export replaces its table and runs in a single transaction.
type SQLiteSink struct {
	db     *sql.DB
	prefix string
	mu     sync.Mutex
}

func NewSQLiteSink(path string, prefix string) (*SQLiteSink, error) {

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`); err != nil {
		slog.Warn("failed to set pragmas", "path", path, "error", err.Error(), "function", "NewSQLiteSink", "at", "SQLiteSink")
	}

	return &SQLiteSink{db: db, prefix: prefix}, nil
}

func (sink *SQLiteSink) Close() error {
	return sink.db.Close()
}

// TableName is the table an export of name with the given suffix lands in.
func (sink *SQLiteSink) TableName(name string, suffix string) (string, error) {

	table := sink.prefix + strings.ReplaceAll(name, "-", "_") + "_" + suffix
	if !tableNamePattern.MatchString(table) {
		return "", errors.Wrapf(ErrBadTableName, "%q", table)
	}
	return table, nil
}

// table describes the shape one row kind is written in.
type table[R any] struct {
	columns []string
	types   []string
	values  func(R) []any
}

func (shape table[R]) createStatement(name string) string {

	definitions := make([]string, 0, len(shape.columns))
	for i, column := range shape.columns {
		definitions = append(definitions, column+" "+shape.types[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (seq INTEGER PRIMARY KEY, %s)", name, strings.Join(definitions, ", "))
}

func (shape table[R]) insertStatement(name string) string {

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(shape.columns)+1), ", ")
	return fmt.Sprintf("INSERT INTO %s (seq, %s) VALUES (%s)", name, strings.Join(shape.columns, ", "), placeholders)
}

// exportRows drains generator into a freshly created table. The generator is
// closed on every path. Nothing is committed unless every row was written.
func exportRows[R any](sink *SQLiteSink, name string, shape table[R], generator treewalk.Generator[R]) (int, error) {

	defer generator.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()

	tx, err := sink.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "beginning export")
	}

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrapf(err, "dropping %s", name)
	}

	if _, err := tx.Exec(shape.createStatement(name)); err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrapf(err, "creating %s", name)
	}

	stmt, err := tx.Prepare(shape.insertStatement(name))
	if err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrapf(err, "preparing insert into %s", name)
	}
	defer stmt.Close()

	count := 0
	for {
		row, ok, err := generator.Next()
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if !ok {
			break
		}

		count++
		if _, err := stmt.Exec(append([]any{count}, shape.values(row)...)...); err != nil {
			_ = tx.Rollback()
			return 0, errors.Wrapf(err, "inserting row %d into %s", count, name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "committing %s", name)
	}

	slog.Info("export finished", "table", name, "rows", count, "function", "exportRows", "at", "SQLiteSink")
	return count, nil
}

// ExportGist writes one row per tuple: level, valid and one blob column per attribute.
func (sink *SQLiteSink) ExportGist(name string, numAttrs int, generator *gist.RowGenerator) (int, error) {

	tableName, err := sink.TableName(name, "gist")
	if err != nil {
		generator.Close()
		return 0, err
	}

	shape := table[gist.Row]{
		columns: []string{"level", "valid"},
		types:   []string{"INTEGER NOT NULL", "INTEGER NOT NULL"},
	}
	for i := range numAttrs {
		shape.columns = append(shape.columns, fmt.Sprintf("attr%d", i))
		shape.types = append(shape.types, "BLOB")
	}

	shape.values = func(row gist.Row) []any {

		values := []any{row.Level, row.Valid}
		for i := range numAttrs {
			if i < len(row.Payload) && row.Payload[i] != nil {
				values = append(values, row.Payload[i])
			} else {
				values = append(values, nil)
			}
		}
		return values
	}

	return exportRows[gist.Row](sink, tableName, shape, generator)
}

// ExportGin writes one row per distinct key of one attribute.
func (sink *SQLiteSink) ExportGin(name string, attr int, generator *gin.RowGenerator) (int, error) {

	tableName, err := sink.TableName(name, fmt.Sprintf("gin_attr%d", attr))
	if err != nil {
		generator.Close()
		return 0, err
	}

	shape := table[gin.Row]{
		columns: []string{"value", "category", "count"},
		types:   []string{"BLOB", "INTEGER NOT NULL", "INTEGER NOT NULL"},
		values: func(row gin.Row) []any {

			var value any
			if !row.Null {
				value = row.Value
			}
			return []any{value, int(row.Category), row.Count}
		},
	}

	return exportRows[gin.Row](sink, tableName, shape, generator)
}

// ExportSpgist writes one row per inner-tuple node and leaf tuple. Columns
// that do not apply to a row kind are NULL.
func (sink *SQLiteSink) ExportSpgist(name string, generator *spgist.RowGenerator) (int, error) {

	tableName, err := sink.TableName(name, "spgist")
	if err != nil {
		generator.Close()
		return 0, err
	}

	shape := table[spgist.Row]{
		columns: []string{"tid", "all_the_same", "node", "level", "tid_pointer", "prefix", "label", "leaf"},
		types:   []string{"TEXT NOT NULL", "INTEGER", "INTEGER", "INTEGER NOT NULL", "TEXT", "BLOB", "BLOB", "BLOB"},
		values: func(row spgist.Row) []any {

			var allTheSame, node, tidPointer any
			if row.AllTheSame != nil {
				allTheSame = *row.AllTheSame
			}
			if row.Node != nil {
				node = *row.Node
			}
			if row.TidPointer != nil {
				tidPointer = row.TidPointer.String()
			}
			return []any{row.Tid.String(), allTheSame, node, row.Level, tidPointer, nullable(row.Prefix), nullable(row.Label), nullable(row.Leaf)}
		},
	}

	return exportRows[spgist.Row](sink, tableName, shape, generator)
}

func nullable(value []byte) any {

	if value == nil {
		return nil
	}
	return value
}
