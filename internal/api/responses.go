package api

import (
	"encoding/json"
	"net/http"

	"github.com/merchkit/storefront-api/pkg/apperrors"
)

// ApiResponse is the success envelope
type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// errorResponse is the error envelope surfaced for every failed request
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// listResponse wraps paginated collections
type listResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithData wraps payload in the success envelope
func (s *Server) respondWithData(w http.ResponseWriter, code int, payload interface{}) {
	s.respondWithJSON(w, code, ApiResponse{Success: true, Data: payload})
}

// respondWithError sends an error envelope with an explicit code token
func (s *Server) respondWithError(w http.ResponseWriter, status int, code, message string) {
	s.respondWithJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondWithAppError maps a service error onto the error envelope. Raw
// internal errors are logged but never leaked to the client.
func (s *Server) respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperrors.As(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", appErr.Err)
			s.respondWithError(w, appErr.StatusCode, appErr.Code, "internal server error")
			return
		}
		s.respondWithError(w, appErr.StatusCode, appErr.Code, appErr.Message)
		return
	}

	s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	s.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// decodeJSON decodes the request body into dst
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload")
		return false
	}
	return true
}
