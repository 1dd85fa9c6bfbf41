package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/merchkit/storefront-api/internal/service"
)

// listUsersHandler returns a page of back-office users
func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	users, total, err := s.userService.ListUsers(r.Context(),
		q.Get("role"), intQuery(q.Get("limit"), 20), intQuery(q.Get("offset"), 0))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, listResponse{Items: users, Total: total})
}

// createUserHandler creates a new back-office user
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUserInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	user, err := s.userService.CreateUser(r.Context(), input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, user)
}

// getUserHandler returns a user by id
func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, user)
}

// updateUserHandler applies a partial user update
func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateUserInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	user, err := s.userService.UpdateUser(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, user)
}

// deleteUserHandler removes a user unless they are the last admin
func (s *Server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.userService.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
