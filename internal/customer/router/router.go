package router

import (
	"context"
	"net/http"
	"time"

	"github.com/s223973381/ishika-sit722/internal/customer/db"
	"github.com/s223973381/ishika-sit722/internal/customer/handlers"
	"github.com/s223973381/ishika-sit722/internal/customer/repository"
	"github.com/s223973381/ishika-sit722/shared/logs"
)

func ConfigRoutes(db db.DB, logger logs.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, ccancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer ccancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	registerCustomerRoutes(mux, db, logger)

	return mux
}

func registerCustomerRoutes(mux *http.ServeMux, db db.DB, logger logs.Logger) {
	queries := repository.New(db)
	h := handlers.NewHandler(queries, logger)

	mux.HandleFunc("POST /api/customers", h.CreateCustomerHandler)
	mux.HandleFunc("GET /api/customers/{id}", h.GetCustomerHandler)
	mux.HandleFunc("GET /api/customers", h.ListCustomersHandler)
	mux.HandleFunc("PUT /api/customers/{id}", h.UpdateCustomerHandler)
	mux.HandleFunc("DELETE /api/customers/{id}", h.DeleteCustomerHandler)
}
