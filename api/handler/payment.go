package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/api/transport"
	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
)

type PaymentService interface {
	Start(ctx context.Context, userID, listingID string) (*domain.PaymentFlow, error)
	Get(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error)
	Confirm(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error)
	SelectMethod(ctx context.Context, userID, flowID string, method domain.PaymentMethod) (*domain.PaymentFlow, error)
	Pay(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error)
	Cancel(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error)
}

type PaymentHandler struct {
	sessionHandler
	uc PaymentService
}

func NewPaymentHandler(uc PaymentService, users UserResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{sessionHandler: newSessionHandler(users, adapter, logger), uc: uc}
}

// @Summary Open the checkout for a listing
// @Tags payments
// @Router /api/v1/payments [post]
func (h *PaymentHandler) Start(ctx *fasthttp.RequestCtx) {
	var req transport.StartPaymentRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.step(ctx, http.StatusCreated, func(stdCtx context.Context, userID string) (*domain.PaymentFlow, error) {
		return h.uc.Start(stdCtx, userID, req.ListingID)
	})
}

// @Summary Checkout state
// @Tags payments
// @Router /api/v1/payments/{id} [get]
func (h *PaymentHandler) Get(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")
	h.step(ctx, http.StatusOK, func(stdCtx context.Context, userID string) (*domain.PaymentFlow, error) {
		return h.uc.Get(stdCtx, userID, id)
	})
}

// @Summary Confirm the order summary
// @Tags payments
// @Router /api/v1/payments/{id}/confirm [post]
func (h *PaymentHandler) Confirm(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")
	h.step(ctx, http.StatusOK, func(stdCtx context.Context, userID string) (*domain.PaymentFlow, error) {
		return h.uc.Confirm(stdCtx, userID, id)
	})
}

// @Summary Choose wallet, alipay or card
// @Tags payments
// @Router /api/v1/payments/{id}/method [post]
func (h *PaymentHandler) SelectMethod(ctx *fasthttp.RequestCtx) {
	var req transport.PaymentMethodRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}
	id := pathParam(ctx, "id")
	h.step(ctx, http.StatusOK, func(stdCtx context.Context, userID string) (*domain.PaymentFlow, error) {
		return h.uc.SelectMethod(stdCtx, userID, id, domain.PaymentMethod(req.Method))
	})
}

// @Summary Submit the payment; it settles after the processing delay
// @Tags payments
// @Router /api/v1/payments/{id}/pay [post]
func (h *PaymentHandler) Pay(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")
	h.step(ctx, http.StatusAccepted, func(stdCtx context.Context, userID string) (*domain.PaymentFlow, error) {
		return h.uc.Pay(stdCtx, userID, id)
	})
}

// @Summary Close a checkout that has not started processing
// @Tags payments
// @Router /api/v1/payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")
	h.step(ctx, http.StatusOK, func(stdCtx context.Context, userID string) (*domain.PaymentFlow, error) {
		return h.uc.Cancel(stdCtx, userID, id)
	})
}

func (h *PaymentHandler) step(ctx *fasthttp.RequestCtx, status int, fn func(context.Context, string) (*domain.PaymentFlow, error)) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	flow, err := fn(stdCtx, user.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, status, flow)
}
