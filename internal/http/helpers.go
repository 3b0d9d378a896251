package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"moneta/internal/core"
	"moneta/internal/rates"
)

const dateLayout = "2006-01-02"

// ownerFrom extracts the caller identity. Authentication sits in front of
// this service; by the time a request lands here the X-Owner header is
// trusted.
func ownerFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Owner"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrOwnership):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrCategoryInUse), errors.Is(err, core.ErrDuplicateName):
		status = http.StatusConflict
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, rates.ErrQuotaExceeded), errors.Is(err, rates.ErrRateService):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidCurrency,
		core.ErrInvalidMethod,
		core.ErrInvalidDate,
		core.ErrEmptyOwner,
		core.ErrEmptyName,
		rates.ErrUnknownPair,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errors.New("invalid id in path")
	}
	return id, nil
}

// parseTransactionFilter reads the shared filter query parameters:
// accountId, categoryId, from, to.
func parseTransactionFilter(r *http.Request) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("accountId")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid accountId parameter")
		}
		f.AccountID = &id
	}
	if v := strings.TrimSpace(q.Get("categoryId")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid categoryId parameter")
		}
		f.CategoryID = &id
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, errors.New("invalid from parameter, want YYYY-MM-DD")
		}
		f.DateFrom = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, errors.New("invalid to parameter, want YYYY-MM-DD")
		}
		f.DateTo = &t
	}
	return f, nil
}

// parseAggregationFilter adds the aggregation knobs on top of the shared
// filter: amountType, convert, historical.
func parseAggregationFilter(r *http.Request) (core.AggregationFilter, error) {
	base, err := parseTransactionFilter(r)
	if err != nil {
		return core.AggregationFilter{}, err
	}
	f := core.AggregationFilter{TransactionFilter: base}
	q := r.URL.Query()

	at := core.AmountType(strings.TrimSpace(q.Get("amountType")))
	if !at.Valid() {
		return f, errors.New("invalid amountType parameter, want all, positive or negative")
	}
	f.AmountType = at
	f.ToDefaultCurrency = q.Get("convert") == "true"
	f.Historical = q.Get("historical") == "true"
	return f, nil
}
