package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Trade log import
	api.HandleFunc("/import/preview", handler.PreviewImport).Methods("POST")
	api.HandleFunc("/import", handler.ExecuteImport).Methods("POST")

	// Trade routes
	api.HandleFunc("/trades", handler.GetTrades).Methods("GET")
	api.HandleFunc("/trades", handler.CreateTrade).Methods("POST")
	api.HandleFunc("/trades/{id}", handler.GetTrade).Methods("GET")
	api.HandleFunc("/trades/{id}", handler.UpdateTrade).Methods("PUT")
	api.HandleFunc("/trades/{id}", handler.DeleteTrade).Methods("DELETE")
	api.HandleFunc("/trades/{id}/executions", handler.GetTradeExecutions).Methods("GET")

	// Analytics routes
	api.HandleFunc("/metrics/daily", handler.GetDailyMetrics).Methods("GET")
	api.HandleFunc("/metrics/period", handler.GetPeriodMetrics).Methods("GET")
	api.HandleFunc("/metrics/equity-curve", handler.GetEquityCurve).Methods("GET")

	return r
}
