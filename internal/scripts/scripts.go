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

// Package scripts holds the per-table SQL run by the loader. Each table has a
// <table>_ddl.sql (backfill schema), an optional <table>_stage.sql (explode the
// raw json batch into the staging table) and a <table>_insert.sql (merge staging
// into production). cleanup.sql drops every staging table.
package scripts

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed *.sql
var embedded embed.FS

// FS returns the scripts in dir, or the scripts compiled into the binary when
// dir is empty.
func FS(dir string) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}

const Cleanup = "cleanup.sql"

func DDL(table string) string    { return table + "_ddl.sql" }
func Stage(table string) string  { return table + "_stage.sql" }
func Insert(table string) string { return table + "_insert.sql" }
