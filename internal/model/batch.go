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
	"github.com/shopspring/decimal"
)

// BatchResponse is the decoded body of the batch endpoint, keyed by stock code.
type BatchResponse map[StockCode]BatchEntry

// BatchEntry holds whichever endpoint types were requested for one code.
type BatchEntry struct {
	Company *Company     `json:"company,omitempty"`
	Chart   []ChartPoint `json:"chart,omitempty"`
}

// Company holds the fields of the company endpoint that are loaded. Any
// other field in the response is ignored.
type Company struct {
	CompanyName *string `json:"companyName,omitempty"`
	Exchange    *string `json:"exchange,omitempty"`
	Industry    *string `json:"industry,omitempty"`
	Sector      *string `json:"sector,omitempty"`
}

// ChartPoint is one daily bar of the chart endpoint, reduced to the fields
// that are loaded.
type ChartPoint struct {
	Date  *string             `json:"date,omitempty"`
	Close decimal.NullDecimal `json:"close"`
}
