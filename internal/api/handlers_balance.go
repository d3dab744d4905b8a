package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes without a {date} segment query today; mux leaves the var empty.

// handleStartOfDayBalance handles GET /raw/balance/{id}[/{date}]/sod
func (s *Server) handleStartOfDayBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.queryService.StartOfDayBalance(vars["id"], vars["date"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleLatestBalance handles GET /raw/balance/{id}[/{date}]/latest
func (s *Server) handleLatestBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.queryService.LatestBalance(vars["id"], vars["date"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleClosestBalance handles GET /raw/balance/{id}/{date}/{time}
func (s *Server) handleClosestBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.queryService.ClosestBalance(vars["id"], vars["date"], vars["time"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
