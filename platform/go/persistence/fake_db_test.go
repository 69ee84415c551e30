package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordedStmt struct {
	sql  string
	args []any
}

type recordedCopy struct {
	table   pgx.Identifier
	columns []string
	rows    [][]any
}

// fakeDB satisfies Database and pgx.Tx, recording every statement it receives.
// Reads return no rows; QueryRow scans fail with rowErr (pgx.ErrNoRows by default).
type fakeDB struct {
	stmts   []recordedStmt
	copies  []recordedCopy
	rowErr  error
	execErr error
	commits int
}

func (f *fakeDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) { return f, nil }
func (f *fakeDB) Begin(context.Context) (pgx.Tx, error)                  { return f, nil }
func (f *fakeDB) Commit(context.Context) error {
	f.commits++
	return nil
}
func (f *fakeDB) Rollback(context.Context) error { return nil }
func (f *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	c := recordedCopy{table: table, columns: columns}
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		c.rows = append(c.rows, values)
	}
	f.copies = append(f.copies, c)
	return int64(len(c.rows)), nil
}
func (f *fakeDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeDB) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeDB) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.stmts = append(f.stmts, recordedStmt{sql: sql, args: args})
	return &emptyRows{}, nil
}
func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.stmts = append(f.stmts, recordedStmt{sql: sql, args: args})
	err := f.rowErr
	if err == nil {
		err = pgx.ErrNoRows
	}
	return errRow{err: err}
}
func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, recordedStmt{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}
func (f *fakeDB) Conn() *pgx.Conn { return nil }

func (f *fakeDB) last() recordedStmt {
	return f.stmts[len(f.stmts)-1]
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type emptyRows struct{ closed bool }

func (r *emptyRows) Close()                                       { r.closed = true }
func (r *emptyRows) Err() error                                   { return nil }
func (r *emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *emptyRows) Next() bool                                   { return false }
func (r *emptyRows) Scan(...any) error                            { return errors.New("no rows") }
func (r *emptyRows) Values() ([]any, error)                       { return nil, nil }
func (r *emptyRows) RawValues() [][]byte                          { return nil }
func (r *emptyRows) Conn() *pgx.Conn                              { return nil }
