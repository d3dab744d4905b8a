package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// PositionListResponse is the body of GET /raw/position/{id}/list
type PositionListResponse struct {
	Account string   `json:"account"`
	Symbols []string `json:"symbols"`
}

// handleListPositions handles GET /raw/position/{id}/list
func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	symbols, err := s.queryService.ListPositionSymbols(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, PositionListResponse{Account: id, Symbols: symbols})
}

// handleLatestPosition handles GET /raw/position/{id}/{symbol}[/{date}]/latest
func (s *Server) handleLatestPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.queryService.LatestPosition(vars["id"], vars["symbol"], vars["date"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleClosestPosition handles GET /raw/position/{id}/{symbol}/{date}/{time}
func (s *Server) handleClosestPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.queryService.ClosestPosition(vars["id"], vars["symbol"], vars["date"], vars["time"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
