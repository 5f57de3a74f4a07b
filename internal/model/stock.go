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

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// StockCode identifies a stock in the upstream API, e.g. "AAPL".
type StockCode string

// Universe is the fixed set of stock codes tracked by a run. It is built once
// at process start and never modified afterwards.
type Universe struct {
	codes []StockCode
}

var ErrEmptyUniverse = errors.New("stock universe is empty")

func NewUniverse(codes ...StockCode) (Universe, error) {
	seen := make(map[StockCode]bool, len(codes))
	result := make([]StockCode, 0, len(codes))
	for _, code := range codes {
		code = StockCode(strings.TrimSpace(string(code)))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		result = append(result, code)
	}

	if len(result) == 0 {
		return Universe{}, ErrEmptyUniverse
	}

	return Universe{codes: result}, nil
}

// ReadUniverse parses one stock code per line. Only the first comma separated
// column of a line is used.
func ReadUniverse(r io.Reader) (Universe, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var codes []StockCode
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Universe{}, fmt.Errorf("failed to parse stock codes: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		codes = append(codes, StockCode(record[0]))
	}

	return NewUniverse(codes...)
}

func LoadUniverse(path string) (Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return Universe{}, fmt.Errorf("failed to open stock codes file: %w", err)
	}
	defer f.Close()

	u, err := ReadUniverse(f)
	if err != nil {
		return Universe{}, fmt.Errorf("failed to load stock codes from %s: %w", path, err)
	}
	return u, nil
}

// Codes returns a copy of the tracked codes in file order.
func (u Universe) Codes() []StockCode {
	result := make([]StockCode, len(u.codes))
	copy(result, u.codes)
	return result
}

func (u Universe) Len() int {
	return len(u.codes)
}

// Symbols joins the codes the way the batch endpoint expects them.
func (u Universe) Symbols() string {
	codes := u.Codes()
	ss := make([]string, len(codes))
	for i, c := range codes {
		ss[i] = string(c)
	}
	return strings.Join(ss, ",")
}
