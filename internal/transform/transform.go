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

package transform

import (
	"sort"

	"github.com/ajjensen13/stocker-iex/internal/model"
)

func sortedCodes(in model.BatchResponse) []model.StockCode {
	result := make([]model.StockCode, 0, len(in))
	for code := range in {
		result = append(result, code)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Companies returns one record per stock code in the response. A code
// without a company object still yields a record with every field null.
func Companies(in model.BatchResponse) model.Companies {
	result := make(model.Companies, 0, len(in))
	for _, code := range sortedCodes(in) {
		r := model.CompanyRecord{StockCode: code}
		if c := in[code].Company; c != nil {
			r.CompanyName = c.CompanyName
			r.Exchange = c.Exchange
			r.Sector = c.Sector
			r.Industry = c.Industry
		}
		result = append(result, r)
	}
	return result
}

// Prices returns one record per chart point, in chart order within a code.
func Prices(in model.BatchResponse) model.Prices {
	var l int
	for _, e := range in {
		l += len(e.Chart)
	}

	result := make(model.Prices, 0, l)
	for _, code := range sortedCodes(in) {
		for _, point := range in[code].Chart {
			result = append(result, model.PriceRecord{
				StockCode: code,
				Date:      point.Date,
				Close:     point.Close,
			})
		}
	}
	return result
}
