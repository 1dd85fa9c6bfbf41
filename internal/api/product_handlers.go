package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/merchkit/storefront-api/internal/service"
	"github.com/merchkit/storefront-api/internal/store"
)

// productFilterFromQuery builds a product listing filter from query parameters
func productFilterFromQuery(r *http.Request) store.ProductFilter {
	q := r.URL.Query()

	filter := store.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		LowStock: q.Get("low_stock") == "true",
		Limit:    intQuery(q.Get("limit"), 20),
		Offset:   intQuery(q.Get("offset"), 0),
	}

	if raw := q.Get("featured"); raw != "" {
		v := raw == "true"
		filter.Featured = &v
	}
	if v, err := strconv.ParseFloat(q.Get("min_price"), 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(q.Get("max_price"), 64); err == nil {
		filter.MaxPrice = &v
	}
	if v, err := strconv.Atoi(q.Get("min_stock")); err == nil {
		filter.MinStock = &v
	}
	if v, err := strconv.Atoi(q.Get("max_stock")); err == nil {
		filter.MaxStock = &v
	}

	return filter
}

// listProductsHandler returns a filtered page of catalog products
func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, total, err := s.productService.ListProducts(r.Context(), productFilterFromQuery(r))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, listResponse{Items: products, Total: total})
}

// createProductHandler creates a new catalog product
func (s *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var input service.CreateProductInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	product, err := s.productService.CreateProduct(r.Context(), input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, product)
}

// getProductHandler returns a product with its sales rollup
func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := s.productService.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, product)
}

// updateProductHandler applies a partial product update
func (s *Server) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateProductInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	product, err := s.productService.UpdateProduct(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, product)
}

// deleteProductHandler removes a product unless orders reference it
func (s *Server) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.productService.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// createCategoryHandler creates a new product category
func (s *Server) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	category, err := s.productService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, category)
}

// listCategoriesHandler returns all categories
func (s *Server) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := s.productService.ListCategories(r.Context())
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, categories)
}
