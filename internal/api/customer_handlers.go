package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/merchkit/storefront-api/internal/service"
)

// listCustomersHandler returns a page of customers with derived stats
func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	customers, total, err := s.customerService.ListCustomers(r.Context(),
		q.Get("search"), intQuery(q.Get("limit"), 20), intQuery(q.Get("offset"), 0))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, listResponse{Items: customers, Total: total})
}

// createCustomerHandler creates a new customer
func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var input service.CustomerInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	customer, err := s.customerService.CreateCustomer(r.Context(), input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, customer)
}

// getCustomerHandler returns a customer with stats and order history
func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := s.customerService.GetCustomer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, detail)
}

// updateCustomerHandler applies a partial customer update
func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var input service.CustomerInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	customer, err := s.customerService.UpdateCustomer(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, customer)
}

// deleteCustomerHandler removes a customer unless orders reference them
func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.customerService.DeleteCustomer(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
