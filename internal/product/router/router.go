package router

import (
	"context"
	"net/http"
	"time"

	"github.com/s223973381/ishika-sit722/internal/product/db"
	"github.com/s223973381/ishika-sit722/internal/product/handlers"
	"github.com/s223973381/ishika-sit722/internal/product/repository"
	"github.com/s223973381/ishika-sit722/shared/logs"
)

func ConfigRoutes(db db.DB, cache handlers.Cache, logger logs.Logger) *http.ServeMux {
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

	registerProductRoutes(mux, db, cache, logger)

	return mux
}

func registerProductRoutes(mux *http.ServeMux, db db.DB, cache handlers.Cache, logger logs.Logger) {
	queries := repository.New(db)
	h := handlers.NewHandler(queries, cache, logger)

	mux.HandleFunc("POST /api/products", h.CreateProductHandler)
	mux.HandleFunc("GET /api/products/{id}", h.GetProductHandler)
	mux.HandleFunc("GET /api/products", h.ListProductsHandler)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProductHandler)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProductHandler)
}
