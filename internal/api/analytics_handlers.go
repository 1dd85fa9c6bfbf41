package api

import (
	"net/http"

	"github.com/merchkit/storefront-api/internal/analytics"
)

// resolveWindow parses the shared period/granularity query parameters
func (s *Server) resolveWindow(w http.ResponseWriter, r *http.Request) (analytics.Period, analytics.Granularity, bool) {
	q := r.URL.Query()

	p, g, err := s.analyticsService.ResolveWindow(q.Get("from"), q.Get("to"), q.Get("period"), q.Get("granularity"))
	if err != nil {
		s.respondWithAppError(w, r, err)
		return analytics.Period{}, "", false
	}
	return p, g, true
}

// analyticsOverviewHandler returns the full analytics report, uncached
func (s *Server) analyticsOverviewHandler(w http.ResponseWriter, r *http.Request) {
	p, g, ok := s.resolveWindow(w, r)
	if !ok {
		return
	}

	report, err := s.analyticsService.BuildReport(r.Context(), p, g)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, report)
}

// analyticsDashboardHandler returns the report through the snapshot cache
func (s *Server) analyticsDashboardHandler(w http.ResponseWriter, r *http.Request) {
	p, g, ok := s.resolveWindow(w, r)
	if !ok {
		return
	}

	report, err := s.analyticsService.Dashboard(r.Context(), p, g)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, report)
}

// analyticsOrdersHandler returns the order series and status breakdown
func (s *Server) analyticsOrdersHandler(w http.ResponseWriter, r *http.Request) {
	p, g, ok := s.resolveWindow(w, r)
	if !ok {
		return
	}

	report, err := s.analyticsService.OrdersAnalytics(r.Context(), p, g)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, report)
}

// analyticsProductsHandler returns per-product performance figures
func (s *Server) analyticsProductsHandler(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.resolveWindow(w, r)
	if !ok {
		return
	}

	rows, err := s.analyticsService.ProductsAnalytics(r.Context(), p)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, rows)
}
