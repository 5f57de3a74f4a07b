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

package model

// Mode selects between the default incremental run and a destructive backfill.
type Mode int

const (
	Incremental Mode = iota
	Backfill
)

func ModeOf(backfill bool) Mode {
	if backfill {
		return Backfill
	}
	return Incremental
}

// Range is the value of the batch endpoint's range parameter.
func (m Mode) Range() string {
	if m == Backfill {
		return "2y"
	}
	return "1m"
}

func (m Mode) String() string {
	if m == Backfill {
		return "backfill"
	}
	return "incremental"
}
