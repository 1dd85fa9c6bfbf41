package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/merchkit/storefront-api/internal/service"
)

// checkoutHandler places a storefront order
func (s *Server) checkoutHandler(w http.ResponseWriter, r *http.Request) {
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

// storefrontOrderHandler lets a customer look up an order
func (s *Server) storefrontOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, order)
}

// storefrontProductsHandler lists the catalog for the storefront
func (s *Server) storefrontProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, total, err := s.productService.ListProducts(r.Context(), productFilterFromQuery(r))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, listResponse{Items: products, Total: total})
}

// storefrontProductByIDHandler returns one catalog product
func (s *Server) storefrontProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	product, err := s.productService.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, product)
}

// addCartItemHandler puts a product in a cart
func (s *Server) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var input service.AddCartItemInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	item, err := s.cartService.AddItem(r.Context(), input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, item)
}

// listCartItemsHandler lists a cart with product joins and line totals
func (s *Server) listCartItemsHandler(w http.ResponseWriter, r *http.Request) {
	cartID := r.URL.Query().Get("cartId")
	if cartID == "" {
		s.respondWithError(w, http.StatusBadRequest, "MISSING_CART_ID", "cartId query parameter is required")
		return
	}

	lines, err := s.cartService.ListItems(r.Context(), cartID)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, lines)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartItemHandler changes the quantity of a cart line
func (s *Server) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	item, err := s.cartService.UpdateQuantity(r.Context(), mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, item)
}

// removeCartItemHandler removes a cart line
func (s *Server) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.cartService.RemoveItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"status": "removed"})
}
