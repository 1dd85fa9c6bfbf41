package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/service"
	"github.com/merchkit/storefront-api/internal/store"
)

// orderFilterFromQuery builds an order listing filter from query parameters
func orderFilterFromQuery(r *http.Request) store.OrderFilter {
	q := r.URL.Query()

	filter := store.OrderFilter{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("sort_dir") == "desc",
		Limit:    intQuery(q.Get("limit"), 20),
		Offset:   intQuery(q.Get("offset"), 0),
	}

	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filter.From = &t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filter.To = &t
	}
	if v, err := strconv.ParseFloat(q.Get("min_amount"), 64); err == nil {
		filter.MinAmount = &v
	}
	if v, err := strconv.ParseFloat(q.Get("max_amount"), 64); err == nil {
		filter.MaxAmount = &v
	}

	return filter
}

func intQuery(raw string, fallback int) int {
	if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
		return v
	}
	return fallback
}

type orderListPayload struct {
	Items []*models.Order         `json:"items"`
	Total int                     `json:"total"`
	Stats []store.OrderStatusStat `json:"stats,omitempty"`
}

// listOrdersHandler returns a filtered page of orders, with the optional
// per-status statistics block when stats=true
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	filter := orderFilterFromQuery(r)
	withStats := r.URL.Query().Get("stats") == "true"

	orders, total, stats, err := s.orderService.ListOrders(r.Context(), filter, withStats)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, orderListPayload{Items: orders, Total: total, Stats: stats})
}

// createOrderHandler creates a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var input service.CreateOrderInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	order, err := s.orderService.CreateOrder(r.Context(), input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, order)
}

// getOrderHandler returns an order by id with items and timeline
func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, order)
}

type updateContactRequest struct {
	CustomerPhone   string `json:"customer_phone"`
	ShippingAddress string `json:"shipping_address"`
}

// updateOrderContactHandler corrects the contact fields of an order
func (s *Server) updateOrderContactHandler(w http.ResponseWriter, r *http.Request) {
	var req updateContactRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	order, err := s.orderService.UpdateContact(r.Context(), mux.Vars(r)["id"], req.CustomerPhone, req.ShippingAddress)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// updateOrderStatusHandler advances an order through the status machine
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	order, err := s.orderService.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, order)
}

type bulkStatusRequest struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
}

// bulkOrderStatusHandler applies one status to a set of orders, all or nothing
func (s *Server) bulkOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	orders, err := s.orderService.BulkUpdateStatus(r.Context(), req.OrderIDs, req.Status)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, orders)
}

// deleteOrderHandler removes an order with its items and timeline
func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.orderService.DeleteOrder(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
