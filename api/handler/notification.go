package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/pkg/httpcontext"
	notificationUC "github.com/fastygo/nexus/usecase/notification"
)

type NotificationService interface {
	List(ctx context.Context, userID string) (*notificationUC.Feed, error)
	MarkRead(ctx context.Context, userID, id string) error
	ClearAll(ctx context.Context, userID string) error
}

type NotificationHandler struct {
	sessionHandler
	uc NotificationService
}

func NewNotificationHandler(uc NotificationService, users UserResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{sessionHandler: newSessionHandler(users, adapter, logger), uc: uc}
}

// @Summary Feed, newest first, with the unread count
// @Tags notifications
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	feed, err := h.uc.List(stdCtx, user.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, feed)
}

// @Summary Mark one notification read
// @Tags notifications
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	if err := h.uc.MarkRead(stdCtx, user.ID, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Clear the feed
// @Tags notifications
// @Router /api/v1/notifications [delete]
func (h *NotificationHandler) Clear(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	if err := h.uc.ClearAll(stdCtx, user.ID); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}
