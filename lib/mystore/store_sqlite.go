package mystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	sqliteLock sync.Mutex
	sqliteDBs  = map[string]*sql.DB{}

	sqliteComparators = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
)

// openSqlite shares one connection per database file: sqlite serializes writers anyway
func openSqlite(path string) (*sql.DB, error) {
	sqliteLock.Lock()
	defer sqliteLock.Unlock()

	if db, found := sqliteDBs[path]; found {
		return db, nil
	}

	db, err := OpenSqlite(path)
	if err != nil {
		return nil, err
	}
	sqliteDBs[path] = db

	return db, nil
}

func OpenSqlite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database %s: %s", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteStore keeps every entity as a json document in a table named after the kind
type sqliteStore[T any] struct {
	db    *sql.DB
	table string
}

func NewSqliteStore[T any](c context.Context, db *sql.DB) (*sqliteStore[T], func(), error) {
	s := &sqliteStore[T]{
		db:    db,
		table: fmt.Sprintf("%q", kindOf[T]()),
	}

	_, err := db.ExecContext(c, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (uid TEXT PRIMARY KEY, value TEXT NOT NULL)`, s.table))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating table %s: %s", s.table, err)
	}

	return s, func() {}, nil
}

func (s *sqliteStore[T]) conn(c context.Context) querier {
	if tx, ok := c.Value(ctxTransactionKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *sqliteStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if _, ok := c.Value(ctxTransactionKey{}).(*sql.Tx); ok {
		return f(c)
	}

	tx, err := s.db.BeginTx(c, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %s", err)
	}

	err = f(context.WithValue(c, ctxTransactionKey{}, tx))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (s *sqliteStore[T]) Put(c context.Context, uid string, value T) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling %s with uid %s: %s", s.table, uid, err)
	}

	_, err = s.conn(c).ExecContext(c,
		fmt.Sprintf(`INSERT INTO %s (uid, value) VALUES (?, ?) ON CONFLICT(uid) DO UPDATE SET value = excluded.value`, s.table),
		uid, string(jsonValue))
	if err != nil {
		return fmt.Errorf("error storing %s with uid %s: %s", s.table, uid, err)
	}
	return nil
}

func (s *sqliteStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var value T
	var jsonValue string

	err := s.conn(c).QueryRowContext(c, fmt.Sprintf(`SELECT value FROM %s WHERE uid = ?`, s.table), uid).Scan(&jsonValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("error fetching %s with uid %s: %s", s.table, uid, err)
	}

	err = json.Unmarshal([]byte(jsonValue), &value)
	if err != nil {
		return value, false, fmt.Errorf("error unmarshalling %s with uid %s: %s", s.table, uid, err)
	}
	return value, true, nil
}

func (s *sqliteStore[T]) Delete(c context.Context, uid string) error {
	_, err := s.conn(c).ExecContext(c, fmt.Sprintf(`DELETE FROM %s WHERE uid = ?`, s.table), uid)
	if err != nil {
		return fmt.Errorf("error deleting %s with uid %s: %s", s.table, uid, err)
	}
	return nil
}

func (s *sqliteStore[T]) List(c context.Context) ([]T, error) {
	return s.Query(c, nil, "")
}

func (s *sqliteStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	query := strings.Builder{}
	query.WriteString(fmt.Sprintf(`SELECT value FROM %s`, s.table))

	args := []any{}
	for i, f := range filters {
		if !sqliteComparators[f.Compare] {
			return nil, fmt.Errorf("unsupported compare-operator %s", f.Compare)
		}
		if i == 0 {
			query.WriteString(" WHERE ")
		} else {
			query.WriteString(" AND ")
		}
		query.WriteString(fmt.Sprintf("json_extract(value, ?) %s ?", f.Compare))
		args = append(args, "$."+f.Field, f.Value)
	}
	if orderByField != "" {
		query.WriteString(" ORDER BY json_extract(value, ?)")
		args = append(args, "$."+orderByField)
	}

	rows, err := s.conn(c).QueryContext(c, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %s", s.table, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var jsonValue string
		err = rows.Scan(&jsonValue)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %s", s.table, err)
		}
		var value T
		err = json.Unmarshal([]byte(jsonValue), &value)
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling %s: %s", s.table, err)
		}
		result = append(result, value)
	}

	return result, rows.Err()
}
