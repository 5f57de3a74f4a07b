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
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ajjensen13/stocker-iex/internal/util"
)

// Script is a parsed multi-statement SQL file.
type Script struct {
	Name       string
	Statements []string
}

// ParseScript splits text on ';'. Statements must therefore not contain
// semicolons themselves, not even in comments.
func ParseScript(name, text string) Script {
	parts := strings.Split(text, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if onlyComments(p) {
			continue
		}
		stmts = append(stmts, p)
	}
	return Script{Name: name, Statements: stmts}
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

func LoadScript(fsys fs.FS, name string) (Script, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read sql script %s: %w", name, err)
	}
	return ParseScript(name, string(b)), nil
}

// ScriptReport describes one execution of a Script.
type ScriptReport struct {
	Script   string
	Executed int
	Skipped  []*QueryError
}

var ErrStatementsSkipped = errors.New("sql script statements skipped")

// Err summarises the skipped statements, or returns nil if there were none.
func (r ScriptReport) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d in %s, first: %v", ErrStatementsSkipped, len(r.Skipped), r.Executed+len(r.Skipped), r.Script, r.Skipped[0])
}

// ExecScript runs every statement of s in order. A failing statement is
// logged and skipped; the statements after it still run.
func ExecScript(ctx context.Context, ex Execer, s Script) ScriptReport {
	ctx = util.WithLoggerValue(ctx, "sql_script", s.Name)
	report := ScriptReport{Script: s.Name}

	for ndx, stmt := range s.Statements {
		_, err := ex.Exec(ctx, stmt)
		if err != nil {
			var qe *QueryError
			if !errors.As(err, &qe) {
				qe = &QueryError{Statement: stmt, Err: err}
			}
			util.Logf(ctx, logging.Info, "command skipped (%s #%d): %v", s.Name, ndx+1, qe)
			report.Skipped = append(report.Skipped, qe)
			continue
		}
		report.Executed++
	}

	util.Logf(ctx, logging.Debug, "executed %d of %d statements from %s", report.Executed, len(s.Statements), s.Name)
	return report
}
