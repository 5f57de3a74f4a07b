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

// CompanyRecord is a row of the company table. The json names match the
// table's columns so a batch can be exploded with json_populate_recordset.
type CompanyRecord struct {
	StockCode   StockCode `json:"stock_code"`
	CompanyName *string   `json:"company_name"`
	Exchange    *string   `json:"exchange"`
	Sector      *string   `json:"sector"`
	Industry    *string   `json:"industry"`
}

type Companies []CompanyRecord

func (c Companies) Len() int { return len(c) }

// PriceRecord is a row of the prices table.
type PriceRecord struct {
	StockCode StockCode           `json:"stock_code"`
	Date      *string             `json:"date"`
	Close     decimal.NullDecimal `json:"close"`
}

type Prices []PriceRecord

func (p Prices) Len() int { return len(p) }
