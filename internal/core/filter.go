package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	AmountAll      AmountType = "all"
	AmountPositive AmountType = "positive"
	AmountNegative AmountType = "negative"
)

type (
	// AmountType selects transactions by the sign of their amount.
	AmountType string

	// TransactionFilter narrows a transaction query. Nil fields add no
	// clause; the owner clause is always present and supplied separately.
	TransactionFilter struct {
		AccountID  *uuid.UUID
		CategoryID *uuid.UUID
		DateFrom   *time.Time // inclusive
		DateTo     *time.Time // inclusive
	}

	// AggregationFilter extends TransactionFilter with the aggregation
	// knobs: amount sign, conversion to the owner's default currency, and
	// historical vs current rate semantics.
	AggregationFilter struct {
		TransactionFilter
		AmountType        AmountType
		ToDefaultCurrency bool
		Historical        bool
	}

	// Predicate is a composable transaction predicate built from filter
	// clauses.
	Predicate func(Transaction) bool
)

func (t AmountType) Valid() bool {
	switch t {
	case AmountAll, AmountPositive, AmountNegative, "":
		return true
	}
	return false
}

// allOf composes clauses into their conjunction.
func allOf(clauses ...Predicate) Predicate {
	return func(tx Transaction) bool {
		for _, c := range clauses {
			if !c(tx) {
				return false
			}
		}
		return true
	}
}

// Clause constructors panic on a missing required argument: a zero owner or
// id reaching them is a programming error, not user input.

func ownerIs(owner string) Predicate {
	if owner == "" {
		panic("filter: owner clause requires an owner")
	}
	return func(tx Transaction) bool { return tx.Owner == owner }
}

func accountIs(id uuid.UUID) Predicate {
	if id == uuid.Nil {
		panic("filter: account clause requires an id")
	}
	return func(tx Transaction) bool { return tx.AccountID == id }
}

func categoryIs(id uuid.UUID) Predicate {
	if id == uuid.Nil {
		panic("filter: category clause requires an id")
	}
	return func(tx Transaction) bool { return tx.CategoryID == id }
}

// dateFrom and dateTo are inclusive, at day granularity.
func dateFrom(from time.Time) Predicate {
	if from.IsZero() {
		panic("filter: date clause requires a date")
	}
	f := DateOnly(from)
	return func(tx Transaction) bool { return !DateOnly(tx.Date).Before(f) }
}

func dateTo(to time.Time) Predicate {
	if to.IsZero() {
		panic("filter: date clause requires a date")
	}
	t := DateOnly(to)
	return func(tx Transaction) bool { return !DateOnly(tx.Date).After(t) }
}

func amountSign(at AmountType) Predicate {
	return func(tx Transaction) bool {
		switch at {
		case AmountPositive:
			return tx.Amount.IsPositive()
		case AmountNegative:
			return tx.Amount.IsNegative()
		default:
			return true
		}
	}
}

// Predicate builds the conjunction of the owner clause and every non-nil
// filter clause.
func (f TransactionFilter) Predicate(owner string) Predicate {
	clauses := []Predicate{ownerIs(owner)}
	if f.AccountID != nil {
		clauses = append(clauses, accountIs(*f.AccountID))
	}
	if f.CategoryID != nil {
		clauses = append(clauses, categoryIs(*f.CategoryID))
	}
	if f.DateFrom != nil {
		clauses = append(clauses, dateFrom(*f.DateFrom))
	}
	if f.DateTo != nil {
		clauses = append(clauses, dateTo(*f.DateTo))
	}
	return allOf(clauses...)
}

// Predicate adds the amount-sign clause on top of the base filter clauses.
func (f AggregationFilter) Predicate(owner string) Predicate {
	base := f.TransactionFilter.Predicate(owner)
	if f.AmountType == AmountAll || f.AmountType == "" {
		return base
	}
	return allOf(base, amountSign(f.AmountType))
}
