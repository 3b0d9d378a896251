package http

import (
	"net/http"

	"moneta/internal/core"
)

type sumResponse struct {
	Sum string `json:"sum"`
}

type categorySumResponse struct {
	Category categoryResponse `json:"category"`
	Total    string           `json:"total"`
}

func toCategorySumResponses(sums []core.CategorySum) []categorySumResponse {
	out := make([]categorySumResponse, 0, len(sums))
	for _, s := range sums {
		out = append(out, categorySumResponse{
			Category: toCategoryResponse(s.Category),
			Total:    core.FormatAmount(s.Total),
		})
	}
	return out
}

func (s *Server) handleSum(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	filter, err := parseAggregationFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.serveCachedAggregation(w, r, owner, func() (any, error) {
		sum, err := s.services.Aggregations.GetSum(r.Context(), owner, filter)
		if err != nil {
			return nil, err
		}
		return sumResponse{Sum: core.FormatAmount(sum)}, nil
	})
}

func (s *Server) handleTopIncomes(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	filter, err := parseAggregationFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.serveCachedAggregation(w, r, owner, func() (any, error) {
		sums, err := s.services.Aggregations.GetTopFiveIncomes(r.Context(), owner, filter)
		if err != nil {
			return nil, err
		}
		return toCategorySumResponses(sums), nil
	})
}

func (s *Server) handleTopExpenses(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	filter, err := parseAggregationFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.serveCachedAggregation(w, r, owner, func() (any, error) {
		sums, err := s.services.Aggregations.GetTopFiveExpenses(r.Context(), owner, filter)
		if err != nil {
			return nil, err
		}
		return toCategorySumResponses(sums), nil
	})
}
