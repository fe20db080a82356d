package router

import (
	"context"
	"net/http"
	"time"

	"github.com/s223973381/ishika-sit722/internal/order/db"
	"github.com/s223973381/ishika-sit722/internal/order/handlers"
	"github.com/s223973381/ishika-sit722/shared/logs"
)

func ConfigRoutes(db db.DB, repo handlers.OrderRepository, customers handlers.CustomerGetter, products handlers.ProductGetter, logger logs.Logger) *http.ServeMux {
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

	registerOrderRoutes(mux, repo, customers, products, logger)

	return mux
}

func registerOrderRoutes(mux *http.ServeMux, repo handlers.OrderRepository, customers handlers.CustomerGetter, products handlers.ProductGetter, logger logs.Logger) {
	h := handlers.NewHandler(repo, customers, products, logger)

	mux.HandleFunc("POST /api/orders", h.CreateOrderHandler)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrderHandler)
	mux.HandleFunc("GET /api/orders", h.ListOrdersHandler)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.UpdateOrderStatusHandler)
	mux.HandleFunc("DELETE /api/orders/{id}", h.DeleteOrderHandler)
}
