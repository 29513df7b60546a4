// Package tax resolves tax rates for order lines.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Jurisdiction is the place and product class a tax rate applies to.
type Jurisdiction struct {
	Country  string
	State    string
	City     string
	Postcode string
	TaxClass string
}

// Resolver looks up the tax rate for a line in a jurisdiction. Shipping
// lines may be taxed under a separate rate.
type Resolver interface {
	RateFor(j Jurisdiction, shipping bool) decimal.Decimal
}

// Rate is one configured tax rate. Empty fields match anything.
type Rate struct {
	Country  string
	State    string
	TaxClass string
	Shipping bool
	Percent  decimal.Decimal
}

// TableResolver resolves rates from a configured table. When several rates
// match, the last one wins.
type TableResolver struct {
	rates []Rate
}

// NewTableResolver creates a resolver over the given rates.
func NewTableResolver(rates []Rate) *TableResolver {
	return &TableResolver{rates: rates}
}

// RateFor returns the last matching rate's percentage, or zero when no rate
// matches.
func (r *TableResolver) RateFor(j Jurisdiction, shipping bool) decimal.Decimal {
	var percent decimal.Decimal
	for _, rate := range r.rates {
		if rate.Shipping != shipping {
			continue
		}
		if !fieldMatches(rate.Country, j.Country) {
			continue
		}
		if !fieldMatches(rate.State, j.State) {
			continue
		}
		if !strings.EqualFold(rate.TaxClass, j.TaxClass) {
			continue
		}
		percent = rate.Percent
	}
	return percent
}

func fieldMatches(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}
