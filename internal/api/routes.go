package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes.
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", handler.GetReport).Methods("GET")
	api.HandleFunc("/report/{symbol}", handler.GetRecord).Methods("GET")
	api.HandleFunc("/scan", handler.StartScan).Methods("POST")
	api.HandleFunc("/progress", handler.GetProgress).Methods("GET")
	api.HandleFunc("/universe/refresh", handler.RefreshUniverse).Methods("POST")

	return r
}
