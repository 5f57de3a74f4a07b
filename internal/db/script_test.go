package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	executed []string
	fail     func(sql string) bool
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	r.executed = append(r.executed, sql)
	if r.fail != nil && r.fail(sql) {
		return nil, errors.New(`column "nope" does not exist`)
	}
	return pgconn.CommandTag("OK"), nil
}

func TestParseScript(t *testing.T) {
	s := ParseScript("x.sql", `
-- leading comment
DROP TABLE IF EXISTS a;

CREATE TABLE a (
	id INT
);
-- trailing comment only
`)

	assert.Equal(t, "x.sql", s.Name)
	require.Len(t, s.Statements, 2)
	assert.Equal(t, "-- leading comment\nDROP TABLE IF EXISTS a", s.Statements[0])
	assert.True(t, strings.HasPrefix(s.Statements[1], "CREATE TABLE a"))
}

func TestExecScriptSkipsFailingStatements(t *testing.T) {
	ex := &recordingExecer{fail: func(sql string) bool { return strings.Contains(sql, "nope") }}
	s := ParseScript("merge.sql", `INSERT INTO t (a) VALUES (1); INSERT INTO t (nope) VALUES (2); INSERT INTO t (a) VALUES (3);`)

	report := ExecScript(context.Background(), ex, s)

	assert.Len(t, ex.executed, 3, "statements after a failure still run")
	assert.Equal(t, 2, report.Executed)
	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Statement, "nope")

	err := report.Err()
	assert.ErrorIs(t, err, ErrStatementsSkipped)
	assert.Contains(t, err.Error(), "1 of 3 in merge.sql")
}

func TestExecScriptClean(t *testing.T) {
	report := ExecScript(context.Background(), &recordingExecer{}, ParseScript("ok.sql", "SELECT 1; SELECT 2;"))
	assert.Equal(t, 2, report.Executed)
	assert.NoError(t, report.Err())
}

func TestLoadScript(t *testing.T) {
	fsys := fstest.MapFS{"a_insert.sql": {Data: []byte("SELECT 1;")}}

	s, err := LoadScript(fsys, "a_insert.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, s.Statements)

	_, err = LoadScript(fsys, "missing.sql")
	assert.Error(t, err)
}

func TestQueryErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(&QueryError{Statement: "SELECT\n\t1", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "query failed: boom (SELECT 1)", err.Error())
}
