package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// AccountListResponse is the body of GET /raw/account/list
type AccountListResponse struct {
	Accounts []string `json:"accounts"`
}

// handleListAccounts handles GET /raw/account/list
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	aliases, err := s.queryService.ListAccounts()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, AccountListResponse{Accounts: aliases})
}

// handleAccountInfo handles GET /raw/account/{id}
func (s *Server) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	account, err := s.queryService.AccountInfo(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, account)
}
