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

package load

import (
	"fmt"
)

// Dataset describes one warehouse table. Name is used for both
// staging.<Name> and public.<Name> and selects the table's sql scripts.
type Dataset struct {
	Name string
	// NaturalKey identifies a row. The table's insert script dedups on it.
	NaturalKey []string
	// ReportKey is the column whose distinct staged values are reported as
	// new. It must be part of NaturalKey.
	ReportKey string
}

var (
	Company = Dataset{Name: "company", NaturalKey: []string{"stock_code"}, ReportKey: "stock_code"}
	Prices  = Dataset{Name: "prices", NaturalKey: []string{"stock_code", "date"}, ReportKey: "date"}
	Orders  = Dataset{Name: "orders", NaturalKey: []string{"stock_code", "date"}, ReportKey: "date"}
)

func (d Dataset) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("dataset name missing")
	case len(d.NaturalKey) == 0:
		return fmt.Errorf("dataset %s: natural key missing", d.Name)
	}

	for _, k := range d.NaturalKey {
		if k == d.ReportKey {
			return nil
		}
	}
	return fmt.Errorf("dataset %s: report key %q is not part of natural key %v", d.Name, d.ReportKey, d.NaturalKey)
}
