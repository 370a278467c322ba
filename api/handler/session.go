package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/api/transport"
	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
	navigationUC "github.com/fastygo/nexus/usecase/navigation"
)

type NavigationService interface {
	State(ctx context.Context, sessionID string) (*navigationUC.State, error)
	Navigate(ctx context.Context, sessionID string, view domain.View) (*navigationUC.State, error)
	Select(ctx context.Context, sessionID, listingID string) (*navigationUC.State, error)
	Back(ctx context.Context, sessionID string) (*navigationUC.State, error)
}

type SessionHandler struct {
	baseHandler
	uc NavigationService
}

func NewSessionHandler(uc NavigationService, adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{baseHandler: newBaseHandler(adapter, logger), uc: uc}
}

// @Summary Current view, selection and user
// @Tags session
// @Router /api/v1/session [get]
func (h *SessionHandler) State(ctx *fasthttp.RequestCtx) {
	h.run(ctx, func(stdCtx context.Context, sessionID string) (*navigationUC.State, error) {
		return h.uc.State(stdCtx, sessionID)
	})
}

// @Summary Switch to another view
// @Tags session
// @Router /api/v1/session/navigate [post]
func (h *SessionHandler) Navigate(ctx *fasthttp.RequestCtx) {
	var req transport.NavigateRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.run(ctx, func(stdCtx context.Context, sessionID string) (*navigationUC.State, error) {
		return h.uc.Navigate(stdCtx, sessionID, domain.View(req.View))
	})
}

// @Summary Open a listing's detail view
// @Tags session
// @Router /api/v1/session/select [post]
func (h *SessionHandler) Select(ctx *fasthttp.RequestCtx) {
	var req transport.SelectRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.run(ctx, func(stdCtx context.Context, sessionID string) (*navigationUC.State, error) {
		return h.uc.Select(stdCtx, sessionID, req.ListingID)
	})
}

// @Summary Return to the marketplace
// @Tags session
// @Router /api/v1/session/back [post]
func (h *SessionHandler) Back(ctx *fasthttp.RequestCtx) {
	h.run(ctx, func(stdCtx context.Context, sessionID string) (*navigationUC.State, error) {
		return h.uc.Back(stdCtx, sessionID)
	})
}

func (h *SessionHandler) run(ctx *fasthttp.RequestCtx, fn func(context.Context, string) (*navigationUC.State, error)) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	state, err := fn(stdCtx, httpcontext.SessionID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, state)
}
