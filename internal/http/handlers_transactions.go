package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/services"
)

type transactionResponse struct {
	ID         string `json:"id"`
	AccountID  string `json:"accountId"`
	CategoryID string `json:"categoryId,omitempty"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	Method     string `json:"method"`
	Details    string `json:"details,omitempty"`
	ImageKey   string `json:"imageKey,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:        t.ID.String(),
		AccountID: t.AccountID.String(),
		Amount:    core.FormatAmount(t.Amount),
		Date:      t.Date.Format(dateLayout),
		Method:    string(t.Method),
		Details:   t.Details,
		ImageKey:  t.ImageKey,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.CategoryID != uuid.Nil {
		resp.CategoryID = t.CategoryID.String()
	}
	return resp
}

type createTransactionRequest struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency,omitempty"`
	Category     string `json:"category,omitempty"`
	Date         string `json:"date"`
	Method       string `json:"method"`
	Details      string `json:"details,omitempty"`
	ExchangeRate string `json:"exchangeRate,omitempty"`
	ImageKey     string `json:"imageKey,omitempty"`
}

func (req createTransactionRequest) toServiceRequest() (services.CreateTransactionRequest, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return services.CreateTransactionRequest{}, err
	}

	var currency core.Currency
	if strings.TrimSpace(req.Currency) != "" {
		currency, err = core.ParseCurrency(req.Currency)
		if err != nil {
			return services.CreateTransactionRequest{}, err
		}
	}

	date := time.Now()
	if strings.TrimSpace(req.Date) != "" {
		date, err = time.Parse(dateLayout, req.Date)
		if err != nil {
			return services.CreateTransactionRequest{}, core.ErrInvalidDate
		}
	}

	method, err := core.ParsePaymentMethod(req.Method)
	if err != nil {
		return services.CreateTransactionRequest{}, err
	}

	out := services.CreateTransactionRequest{
		Amount:       amount,
		Currency:     currency,
		CategoryName: strings.TrimSpace(req.Category),
		Date:         date,
		Method:       method,
		Details:      strings.TrimSpace(req.Details),
		ImageKey:     strings.TrimSpace(req.ImageKey),
	}

	if strings.TrimSpace(req.ExchangeRate) != "" {
		rate, err := decimal.NewFromString(strings.TrimSpace(req.ExchangeRate))
		if err != nil || !rate.IsPositive() {
			return services.CreateTransactionRequest{}, core.ErrInvalidAmount
		}
		out.ExchangeRate = &rate
	}
	return out, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	accountID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	svcReq, err := req.toServiceRequest()
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.services.Transactions.CreateTransaction(r.Context(), owner, accountID, svcReq)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	txs, err := s.services.Transactions.ListTransactions(r.Context(), owner, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	tx, err := s.services.Transactions.GetTransaction(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.services.Transactions.DeleteTransaction(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}
