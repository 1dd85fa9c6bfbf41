package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// listDeadLettersHandler returns parked messages, optionally by status
func (s *Server) listDeadLettersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	messages, err := s.deadLetterService.List(r.Context(),
		q.Get("status"), intQuery(q.Get("limit"), 20), intQuery(q.Get("offset"), 0))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, messages)
}

// retryDeadLetterHandler queues a parked message for another delivery attempt
func (s *Server) retryDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := s.deadLetterService.Retry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, msg)
}

// discardDeadLetterHandler permanently closes a parked message
func (s *Server) discardDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := s.deadLetterService.Discard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, msg)
}
