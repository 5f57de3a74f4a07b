/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package db

import (
	"context"
	"fmt"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"strings"

	"github.com/ajjensen13/stocker-iex/internal/util"
)

// Execer runs a single statement. *DB and *pgxpool.Pool both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// QueryError is returned for any statement the database rejected.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (%s)", e.Err, abbreviate(e.Statement))
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func abbreviate(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > 80 {
		return sql[:77] + "..."
	}
	return sql
}

// DB runs every operation on its own pooled connection. No transaction spans
// several calls.
type DB struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (d *DB) Exec(ctx context.Context, sql string, arguments ...interface{}) (tag pgconn.CommandTag, err error) {
	err = util.RunConn(ctx, d.pool, func(ctx context.Context, conn *pgx.Conn) error {
		tag, err = conn.Exec(ctx, sql, arguments...)
		if err != nil {
			return &QueryError{Statement: sql, Err: err}
		}
		return nil
	})
	return
}

// Count returns the number of rows in table.
func (d *DB) Count(ctx context.Context, table pgx.Identifier) (n int64, err error) {
	sql := `SELECT COUNT(*) FROM ` + table.Sanitize()
	err = util.RunConn(ctx, d.pool, func(ctx context.Context, conn *pgx.Conn) error {
		err := conn.QueryRow(ctx, sql).Scan(&n)
		if err != nil {
			return &QueryError{Statement: sql, Err: err}
		}
		return nil
	})
	return
}

// Distinct returns the distinct values of column in table, decoded to their
// native Go types (time.Time for dates, string for text).
func (d *DB) Distinct(ctx context.Context, table pgx.Identifier, column string) (ret []interface{}, err error) {
	sql := `SELECT DISTINCT ` + pgx.Identifier{column}.Sanitize() + ` FROM ` + table.Sanitize()
	err = util.RunConn(ctx, d.pool, func(ctx context.Context, conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, sql)
		if err != nil {
			return &QueryError{Statement: sql, Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			vs, err := rows.Values()
			if err != nil {
				return fmt.Errorf("failed to scan distinct %s: %w", column, err)
			}
			ret = append(ret, vs[0])
		}

		if err := rows.Err(); err != nil {
			return &QueryError{Statement: sql, Err: err}
		}
		return nil
	})
	return
}

// TextLength returns the summed character length of column across table.
func (d *DB) TextLength(ctx context.Context, table pgx.Identifier, column string) (n int64, err error) {
	sql := `SELECT COALESCE(SUM(LENGTH(` + pgx.Identifier{column}.Sanitize() + `::TEXT)), 0) FROM ` + table.Sanitize()
	err = util.RunConn(ctx, d.pool, func(ctx context.Context, conn *pgx.Conn) error {
		err := conn.QueryRow(ctx, sql).Scan(&n)
		if err != nil {
			return &QueryError{Statement: sql, Err: err}
		}
		return nil
	})
	return
}

// CopyJSON copies doc into table as a single row of its json column.
func (d *DB) CopyJSON(ctx context.Context, table pgx.Identifier, column string, doc []byte) (n int64, err error) {
	err = util.RunConn(ctx, d.pool, func(ctx context.Context, conn *pgx.Conn) error {
		row := []interface{}{pgtype.JSON{Bytes: doc, Status: pgtype.Present}}
		n, err = conn.CopyFrom(ctx, table, []string{column}, pgx.CopyFromRows([][]interface{}{row}))
		if err != nil {
			return &QueryError{Statement: "COPY " + table.Sanitize() + " FROM STDIN", Err: err}
		}
		return nil
	})
	return
}
