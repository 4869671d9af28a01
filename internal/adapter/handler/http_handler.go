package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stockline/orderengine/internal/core/domain"
	"github.com/stockline/orderengine/internal/core/service"
	"github.com/stockline/orderengine/internal/port"
)

type HTTPHandler struct {
	orders service.OrderSubmitter
	store  port.InventoryStore
	logger *zap.Logger
}

func NewHTTPHandler(orders service.OrderSubmitter, store port.InventoryStore, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{orders: orders, store: store, logger: logger}
}

type orderLinePayload struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type submitOrderRequest struct {
	CustomerEmail string             `json:"customer_email"`
	Lines         []orderLinePayload `json:"lines"`
}

type orderLineResponse struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerEmail string              `json:"customer_email"`
	Status        string              `json:"status"`
	TotalAmount   string              `json:"total_amount"`
	Lines         []orderLineResponse `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
}

type inventoryItemResponse struct {
	ItemID            string `json:"item_id"`
	Name              string `json:"name"`
	Price             string `json:"price"`
	QuantityAvailable int    `json:"quantity_available"`
	Version           int    `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	lines := make([]domain.OrderLineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.OrderLineRequest{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	order, err := h.orders.SubmitOrder(r.Context(), req.CustomerEmail, lines)
	if err != nil {
		h.writeOrderError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		notFound  *service.NotFoundError
		stock     *service.InsufficientStockError
		exhausted *service.RetryExhaustedError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &stock):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &exhausted), errors.Is(err, service.ErrResourceBusy):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case ctx.Err() != nil:
		writeJSON(w, http.StatusRequestTimeout, errorResponse{Error: "request cancelled"})
	default:
		h.logger.Error("order submission failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// GetOrder serves GET /api/orders/{id}.
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if orderID == "" || strings.Contains(orderID, "/") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if order == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// ListInventory serves GET /api/inventory with current quantities and
// versions, mainly for diagnostics.
func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items, err := h.store.ListItems(r.Context())
	if err != nil {
		h.logger.Error("inventory listing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	resp := make([]inventoryItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, inventoryItemResponse{
			ItemID:            item.ItemID,
			Name:              item.Name,
			Price:             item.Price.StringFixed(2),
			QuantityAvailable: item.Quantity,
			Version:           item.Version,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toOrderResponse(order *domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, orderLineResponse{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			LineTotal: l.LineTotal.StringFixed(2),
		})
	}
	return orderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		Status:        string(order.Status),
		TotalAmount:   order.Total.StringFixed(2),
		Lines:         lines,
		CreatedAt:     order.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
