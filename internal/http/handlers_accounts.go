package http

import (
	"encoding/json"
	"net/http"
	"time"

	"moneta/internal/core"
)

type accountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"createdAt"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Currency:  string(a.Currency),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	currency, err := core.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := s.services.Accounts.CreateAccount(r.Context(), owner, req.Name, currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-Owner header"})
		return
	}

	accounts, err := s.services.Accounts.ListAccounts(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := s.services.Accounts.GetAccount(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}
