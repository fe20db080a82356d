package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/s223973381/ishika-sit722/internal/customer/repository"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/web"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	invalidCustomerIDTitleMsg = "Invalid Customer ID"
	invalidCustomerIDBodyMsg  = "invalid customer id"

	customerNotFoundTitleMsg = "Customer Not Found"
	customerNotFoundBodyMsg  = "customer not found"

	requestTimeoutTitleMsg      = "Request Timeout"
	internalServerErrorTitleMsg = "Internal Server Error"

	uniqueViolationCode = "23505"
)

type Handler struct {
	queries repository.Querier
	logger  logs.Logger
}

func NewHandler(queries repository.Querier, logger logs.Logger) *Handler {
	return &Handler{
		queries: queries,
		logger:  logger,
	}
}

type CustomerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (cr *CustomerRequest) validate() string {
	if strings.TrimSpace(cr.FirstName) == "" {
		return "first name must not be empty"
	}
	if strings.TrimSpace(cr.LastName) == "" {
		return "last name must not be empty"
	}
	if !strings.Contains(cr.Email, "@") {
		return "email address is not valid"
	}
	return ""
}

func (h *Handler) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Request Body", err.Error())
		return
	}

	if msg := req.validate(); msg != "" {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Customer", msg)
		return
	}

	customer, err := h.queries.CreateCustomer(ctx, repository.CreateCustomerParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		if isUniqueViolation(err) {
			web.RespondWithError(w, h.logger, r, http.StatusConflict, "Email Already Registered", "a customer with this email already exists")
			return
		}
		h.logger.Error("failed to create customer", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to create customer.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusCreated, customer)
}

func (h *Handler) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	id := r.PathValue("id")
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, invalidCustomerIDTitleMsg, invalidCustomerIDBodyMsg)
		return
	}

	customer, err := h.queries.GetCustomer(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			web.RespondWithError(w, h.logger, r, http.StatusNotFound, customerNotFoundTitleMsg, customerNotFoundBodyMsg)
			return
		}
		h.logger.Error("failed to get customer", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to get customer.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusOK, customer)
}

func (h *Handler) ListCustomersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	if email := r.URL.Query().Get("email"); email != "" {
		customer, err := h.queries.GetCustomerByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				web.RespondWithError(w, h.logger, r, http.StatusNotFound, customerNotFoundTitleMsg, customerNotFoundBodyMsg)
				return
			}
			h.logger.Error("failed to get customer by email", "error", err)
			web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to get customer by email.")
			return
		}
		web.RespondWithJSON(w, h.logger, http.StatusOK, []repository.Customer{customer})
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

	customers, err := h.queries.ListCustomersPaginated(ctx, repository.ListCustomersPaginatedParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		h.logger.Error("failed to list customers", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to list customers.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusOK, customers)
}

func (h *Handler) UpdateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	id := r.PathValue("id")
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, invalidCustomerIDTitleMsg, invalidCustomerIDBodyMsg)
		return
	}

	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Request Body", err.Error())
		return
	}

	if msg := req.validate(); msg != "" {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, "Invalid Customer", msg)
		return
	}

	customer, err := h.queries.UpdateCustomer(ctx, repository.UpdateCustomerParams{
		ID:        uid,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			web.RespondWithError(w, h.logger, r, http.StatusNotFound, customerNotFoundTitleMsg, customerNotFoundBodyMsg)
			return
		}
		if isUniqueViolation(err) {
			web.RespondWithError(w, h.logger, r, http.StatusConflict, "Email Already Registered", "a customer with this email already exists")
			return
		}
		h.logger.Error("failed to update customer", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to update customer.")
		return
	}

	web.RespondWithJSON(w, h.logger, http.StatusOK, customer)
}

func (h *Handler) DeleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !web.CheckContext(ctx, h.logger) {
		web.RespondWithError(w, h.logger, r, http.StatusRequestTimeout, requestTimeoutTitleMsg, web.ReqCancelledMsg)
		return
	}

	id := r.PathValue("id")
	var uid pgtype.UUID
	if err := uid.Scan(id); err != nil {
		web.RespondWithError(w, h.logger, r, http.StatusBadRequest, invalidCustomerIDTitleMsg, invalidCustomerIDBodyMsg)
		return
	}

	if _, err := h.queries.GetCustomer(ctx, uid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			web.RespondWithError(w, h.logger, r, http.StatusNotFound, customerNotFoundTitleMsg, customerNotFoundBodyMsg)
			return
		}
		h.logger.Error("failed to get customer before delete", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to get customer before delete.")
		return
	}

	if err := h.queries.DeleteCustomer(ctx, uid); err != nil {
		h.logger.Error("failed to delete customer", "error", err)
		web.RespondWithError(w, h.logger, r, http.StatusInternalServerError, internalServerErrorTitleMsg, "Failed to delete customer.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
