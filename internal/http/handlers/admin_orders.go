package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mbella-dev/colisflow/internal/orders"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

// AdminOrdersHandler serves read-only order views for the back office.
type AdminOrdersHandler struct {
	repo   orders.Repository
	logger *logging.Logger
}

// NewAdminOrdersHandler creates a new admin orders handler.
func NewAdminOrdersHandler(repo orders.Repository, logger *logging.Logger) *AdminOrdersHandler {
	if repo == nil {
		panic("handlers: orders repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminOrdersHandler{repo: repo, logger: logger}
}

// OrdersListResponse wraps the order list for API responses.
type OrdersListResponse struct {
	Orders []*orders.Order `json:"orders"`
	Count  int             `json:"count"`
}

// List handles GET /admin/orders with optional phone/status/limit filters.
func (h *AdminOrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := orders.ListFilter{
		Phone:  strings.TrimSpace(r.URL.Query().Get("phone")),
		Status: orders.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}
	switch filter.Status {
	case "", orders.StatusPending, orders.StatusDelivered, orders.StatusFailed, orders.StatusPickup:
	default:
		respondError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	list, err := h.repo.ListRecent(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing orders failed", "error", err)
		respondError(w, http.StatusInternalServerError, "listing orders failed")
		return
	}
	respondJSON(w, http.StatusOK, OrdersListResponse{Orders: list, Count: len(list)})
}

// historyReader is satisfied by both order repositories; the audit trail
// is attached to the detail view when available.
type historyReader interface {
	History(ctx context.Context, orderID uuid.UUID) ([]orders.HistoryEntry, error)
}

// OrderDetailResponse is the order plus its audit trail.
type OrderDetailResponse struct {
	Order   *orders.Order         `json:"order"`
	History []orders.HistoryEntry `json:"history,omitempty"`
}

// Get handles GET /admin/orders/{id}.
func (h *AdminOrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("fetching order failed", "error", err, "order_id", id)
		respondError(w, http.StatusInternalServerError, "fetching order failed")
		return
	}

	detail := OrderDetailResponse{Order: order}
	if hr, ok := h.repo.(historyReader); ok {
		entries, err := hr.History(r.Context(), id)
		if err != nil {
			h.logger.Warn("fetching order history failed", "error", err, "order_id", id)
		} else {
			detail.History = entries
		}
	}
	respondJSON(w, http.StatusOK, detail)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
