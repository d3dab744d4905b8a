package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleStatusbar handles GET /statusbar/{id}/{template}. The template
// arrives URL-decoded, so a literal '%' must be sent as %25.
func (s *Server) handleStatusbar(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	text, err := s.queryService.Statusbar(vars["id"], vars["template"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondText(w, http.StatusOK, text)
}
