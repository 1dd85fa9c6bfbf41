// Package api is the HTTP layer: routing, request decoding, response
// envelopes. All domain rules live in the service layer.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/merchkit/storefront-api/internal/config"
	"github.com/merchkit/storefront-api/internal/service"
	"github.com/merchkit/storefront-api/internal/settings"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/httpstats"
	"github.com/merchkit/storefront-api/pkg/logger"
	"github.com/merchkit/storefront-api/pkg/middleware"
)

// Server is the HTTP API server
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server

	orderService      *service.OrderService
	productService    *service.ProductService
	customerService   *service.CustomerService
	userService       *service.UserService
	settingsService   *service.SettingsService
	analyticsService  *service.AnalyticsService
	cartService       *service.CartService
	deadLetterService *service.DeadLetterService

	recorder    *httpstats.Recorder
	rateLimiter *middleware.RateLimiterMiddleware
}

// NewServer creates the API server over an already-connected store backend.
// cache may be nil; analytics then reads straight from the store.
func NewServer(cfg *config.Config, st *store.Store, cache service.SnapshotCache, logger logger.Logger) *Server {
	r := mux.NewRouter()

	registry := settings.NewRegistry()

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		orderService:      service.NewOrderService(st, logger),
		productService:    service.NewProductService(st, logger),
		customerService:   service.NewCustomerService(st, logger),
		userService:       service.NewUserService(st, logger),
		settingsService:   service.NewSettingsService(registry, st, logger),
		analyticsService:  service.NewAnalyticsService(st, cache, logger),
		cartService:       service.NewCartService(st, logger),
		deadLetterService: service.NewDeadLetterService(st, logger),
		recorder:          httpstats.NewRecorder(),
		rateLimiter: middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
			IPMaxTokens:       cfg.RateLimit.IPMaxTokens,
			IPRefillRate:      cfg.RateLimit.IPRefillRate,
			TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
		}, logger),
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "port", s.config.Port, "backend", s.config.StorageBackend)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(s.recorder.Middleware)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondWithError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})

	// Public storefront routes
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/orders", s.checkoutHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.storefrontOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", s.storefrontProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.storefrontProductByIDHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart-items", s.addCartItemHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart-items", s.listCartItemsHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart-items/{id}", s.updateCartItemHandler).Methods(http.MethodPatch)
	api.HandleFunc("/cart-items/{id}", s.removeCartItemHandler).Methods(http.MethodDelete)

	// Back-office routes
	admin := s.router.PathPrefix("/api/v1/admin").Subrouter()

	admin.HandleFunc("/orders", s.listOrdersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	admin.HandleFunc("/orders/bulk-status", s.bulkOrderStatusHandler).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}", s.updateOrderContactHandler).Methods(http.MethodPatch)
	admin.HandleFunc("/orders/{id}", s.deleteOrderHandler).Methods(http.MethodDelete)
	admin.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPatch)

	admin.HandleFunc("/products", s.listProductsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/products", s.createProductHandler).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}", s.getProductHandler).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}", s.updateProductHandler).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", s.deleteProductHandler).Methods(http.MethodDelete)

	admin.HandleFunc("/categories", s.listCategoriesHandler).Methods(http.MethodGet)
	admin.HandleFunc("/categories", s.createCategoryHandler).Methods(http.MethodPost)

	admin.HandleFunc("/customers", s.listCustomersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/customers", s.createCustomerHandler).Methods(http.MethodPost)
	admin.HandleFunc("/customers/{id}", s.getCustomerHandler).Methods(http.MethodGet)
	admin.HandleFunc("/customers/{id}", s.updateCustomerHandler).Methods(http.MethodPut)
	admin.HandleFunc("/customers/{id}", s.deleteCustomerHandler).Methods(http.MethodDelete)

	admin.HandleFunc("/users", s.listUsersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.createUserHandler).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", s.getUserHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.updateUserHandler).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", s.deleteUserHandler).Methods(http.MethodDelete)

	admin.HandleFunc("/settings", s.listSettingsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/settings", s.putSettingsHandler).Methods(http.MethodPut)
	admin.HandleFunc("/settings/{key}", s.getSettingHandler).Methods(http.MethodGet)

	admin.HandleFunc("/analytics", s.analyticsOverviewHandler).Methods(http.MethodGet)
	admin.HandleFunc("/analytics/dashboard", s.analyticsDashboardHandler).Methods(http.MethodGet)
	admin.HandleFunc("/analytics/orders", s.analyticsOrdersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/analytics/products", s.analyticsProductsHandler).Methods(http.MethodGet)

	admin.HandleFunc("/dead-letters", s.listDeadLettersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.retryDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.discardDeadLetterHandler).Methods(http.MethodPost)

	admin.HandleFunc("/metrics/requests", s.requestMetricsHandler).Methods(http.MethodGet)
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	s.respondWithData(w, http.StatusOK, Health{
		Status:    "ok",
		Backend:   s.config.StorageBackend,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// requestMetricsHandler exposes the request latency histogram
func (s *Server) requestMetricsHandler(w http.ResponseWriter, r *http.Request) {
	s.respondWithData(w, http.StatusOK, s.recorder.Snapshot())
}
