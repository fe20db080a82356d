package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/s223973381/ishika-sit722/internal/order/clients"
	"github.com/s223973381/ishika-sit722/internal/order/repository"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/web"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	invalidOrderIDTitleMsg = "Invalid Order ID"
	invalidOrderIDBodyMsg  = "invalid order id"

	orderNotFoundTitleMsg = "Order Not Found"
	orderNotFoundBodyMsg  = "order not found"

	requestTimeoutTitleMsg      = "Request Timeout"
	internalServerErrorTitleMsg = "Internal Server Error"
	badGatewayTitleMsg          = "Upstream Service Unavailable"
)

type OrderRepository interface {
	PlaceOrder(ctx context.Context, customerID string, items []repository.PlaceOrderItem) (*repository.OrderWithItems, error)
	GetOrderWithItems(ctx context.Context, id pgtype.UUID) (*repository.OrderWithItems, error)
	ListOrdersPaginated(ctx context.Context, arg repository.ListOrdersPaginatedParams) ([]repository.Order, error)
	UpdateOrderStatus(ctx context.Context, arg repository.UpdateOrderStatusParams) (repository.Order, error)
	DeleteOrder(ctx context.Context, id pgtype.UUID) error
}

type CustomerGetter interface {
	GetCustomer(ctx context.Context, id string) (*clients.Customer, error)
}

type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*clients.Product, error)
}

type Handler struct {
	repo      OrderRepository
	customers CustomerGetter
	products  ProductGetter
	logger    logs.Logger
}

func NewHandler(repo OrderRepository, customers CustomerGetter, products ProductGetter, logger logs.Logger) *Handler {
	return &Handler{
		repo:      repo,
		customers: customers,
		products:  products,
		logger:    logger,
	}
}

type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerID string             `json:"customerId"`
	Items      []OrderItemRequest `json:"items"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// CreateOrderHandler validates the customer and prices every line item via
// the upstream services, then commits order, items, and the order.placed
// outbox row in one transaction. Broker availability never affects the
// response: a 201 means the order is durable and its event will be relayed.
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Request Body", err.Error())
		return
	}

	if len(req.Items) == 0 {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Order", "order must contain at least one item")
		return
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Order", "item quantity must be positive")
			return
		}
	}

	if _, err := h.customers.GetCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, clients.ErrCustomerNotFound) {
			web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Unknown Customer", "customer does not exist")
			return
		}
		h.logger.Error("failed to validate customer", "error", err, "customerId", req.CustomerID)
		web.RespondWithError(w, h.logger, r, http.StatusBadGateway, badGatewayTitleMsg, "Failed to validate customer.")
		return
	}

	items := make([]repository.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		product, err := h.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, clients.ErrProductNotFound) {
				web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Unknown Product", "product does not exist: "+item.ProductID)
				return
			}
			h.logger.Error("failed to fetch product", "error", err, "productId", item.ProductID)
			web.RespondWithError(w, h.logger, r, http.StatusBadGateway, badGatewayTitleMsg, "Failed to fetch product.")
			return
		}

		items = append(items, repository.PlaceOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}

	order, err := h.repo.PlaceOrder(ctx, req.CustomerID, items)
	if err != nil {
		h.logger.Error("failed to place order", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to place order.")
		return
	}

	h.logger.Info("order placed", "orderId", order.ID.String(), "itemsCount", len(order.Items))
	web.RespondWithJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	id := r.PathValue("id")
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, invalidOrderIDTitleMsg, invalidOrderIDBodyMsg)
		return
	}

	order, err := h.repo.GetOrderWithItems(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			web.RespondWithError(w, h.logger, r, http.StatusNotFound, orderNotFoundTitleMsg, orderNotFoundBodyMsg)
			return
		}
		h.logger.Error("failed to get order", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to get order.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := h.repo.ListOrdersPaginated(ctx, repository.ListOrdersPaginatedParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to list orders.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	id := r.PathValue("id")
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, invalidOrderIDTitleMsg, invalidOrderIDBodyMsg)
		return
	}

	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Request Body", err.Error())
		return
	}

	if !isValidStatus(req.Status) {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Status", "unknown order status: "+req.Status)
		return
	}

	order, err := h.repo.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{
		ID:     uid,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			web.RespondWithError(w, h.logger, r, http.StatusNotFound, orderNotFoundTitleMsg, orderNotFoundBodyMsg)
			return
		}
		h.logger.Error("failed to update order status", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to update order status.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) DeleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	id := r.PathValue("id")
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, invalidOrderIDTitleMsg, invalidOrderIDBodyMsg)
		return
	}

	if _, err := h.repo.GetOrderWithItems(ctx, uid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			web.RespondWithError(w, h.logger, r, http.StatusNotFound, orderNotFoundTitleMsg, orderNotFoundBodyMsg)
			return
		}
		h.logger.Error("failed to get order before delete", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to get order before delete.")
		return
	}

	if err := h.repo.DeleteOrder(ctx, uid); err != nil {
		h.logger.Error("failed to delete order", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to delete order.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidStatus(status string) bool {
	switch status {
	case repository.OrderStatusPending,
		repository.OrderStatusConfirmed,
		repository.OrderStatusCancelled,
		repository.OrderStatusShipped:
		return true
	}
	return false
}
