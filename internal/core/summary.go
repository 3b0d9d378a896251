package core

import "github.com/shopspring/decimal"

// CategorySum is an amount aggregated per category, computed fresh for each
// top-N request and discarded with the response.
type CategorySum struct {
	Category Category
	Total    decimal.Decimal
}
