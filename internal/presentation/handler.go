package presentation

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/deofis/cursos-online-apirest/internal/application"
	"github.com/deofis/cursos-online-apirest/internal/domain"
	"github.com/deofis/cursos-online-apirest/internal/presentation/helpers"
)

type StoreHandler struct {
	orders   *application.OrdersService
	checkout *application.CheckoutService
}

func NewStoreHandler(orders *application.OrdersService, checkout *application.CheckoutService) *StoreHandler {
	return &StoreHandler{orders: orders, checkout: checkout}
}

func (h *StoreHandler) Register(r chi.Router) {
	r.Post("/api/orders", h.RegisterOrder)
	r.Post("/api/orders/buy-now", h.RegisterBuyNow)
	r.Post("/api/orders/{number}/shipped", h.RegisterShipped)
	r.Post("/api/orders/{number}/received", h.RegisterReceived)
	r.Post("/api/orders/{number}/cancel", h.Cancel)
	r.Post("/api/checkout/complete", h.CompleteCheckout)
	r.Get("/api/orders/{number}", h.GetOrder)
	r.Get("/api/orders", h.ListOrders)
}

func (h *StoreHandler) RegisterOrder(w http.ResponseWriter, r *http.Request) {
	var draft application.DraftOrder
	if err := helpers.DecodeJSON(r.Body, &draft); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(draft.Customer.Email) == "" {
		helpers.HttpError(w, http.StatusBadRequest, "customer email is required")
		return
	}
	if len(draft.Items) == 0 {
		helpers.HttpError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	info, err := h.orders.Register(r.Context(), draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, map[string]any{"payment": info})
}

func (h *StoreHandler) RegisterBuyNow(w http.ResponseWriter, r *http.Request) {
	var req application.BuyNowRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		helpers.HttpError(w, http.StatusBadRequest, "customer email is required")
		return
	}

	info, err := h.orders.RegisterBuyNow(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, map[string]any{"payment": info})
}

type checkoutPayload struct {
	OrderNumber int64  `json:"orderNumber"`
	PaymentID   string `json:"paymentId"`
	ReferenceID string `json:"referenceId"`
}

func (h *StoreHandler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	var payload checkoutPayload
	if err := helpers.DecodeJSON(r.Body, &payload); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	info, err := h.checkout.Complete(r.Context(), payload.OrderNumber, payload.PaymentID, payload.ReferenceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, map[string]any{"payment": info})
}

func (h *StoreHandler) RegisterShipped(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.orders.RegisterShipped)
}

func (h *StoreHandler) RegisterReceived(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.orders.RegisterReceived)
}

func (h *StoreHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.orders.Cancel)
}

func (h *StoreHandler) applyEvent(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, number int64) (*domain.Order, error)) {
	number, ok := orderNumber(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), number)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, order)
}

func (h *StoreHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number, ok := orderNumber(w, r)
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), number)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, order)
}

func (h *StoreHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	orders, err := h.orders.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func orderNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "number")
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || number <= 0 {
		helpers.HttpError(w, http.StatusBadRequest, "invalid order number")
		return 0, false
	}
	return number, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	helpers.HttpError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
