package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
	libraryUC "github.com/fastygo/nexus/usecase/library"
)

type LibraryService interface {
	RemoveFromLibrary(ctx context.Context, userID, listingID string) error
	RemainingTrials(ctx context.Context, userID, listingID string) (int, error)
	Launch(ctx context.Context, sessionID, listingID string) (*libraryUC.Launch, error)
	Runtime(ctx context.Context, sessionID string) (*libraryUC.Launch, error)
}

type OwnedLister interface {
	Owned(ctx context.Context, userID string) ([]domain.Listing, error)
}

type LibraryHandler struct {
	sessionHandler
	library LibraryService
	owned   OwnedLister
}

func NewLibraryHandler(library LibraryService, owned OwnedLister, users UserResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{
		sessionHandler: newSessionHandler(users, adapter, logger),
		library:        library,
		owned:          owned,
	}
}

// @Summary Listings the user owns
// @Tags library
// @Router /api/v1/library [get]
func (h *LibraryHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	listings, err := h.owned.Owned(stdCtx, user.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, listings, len(listings))
}

// @Summary Remove a listing from the library; the catalog record stays
// @Tags library
// @Router /api/v1/library/{id} [delete]
func (h *LibraryHandler) Remove(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	if err := h.library.RemoveFromLibrary(stdCtx, user.ID, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Trial runs left for a listing
// @Tags library
// @Router /api/v1/listings/{id}/trials [get]
func (h *LibraryHandler) Trials(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	remaining, err := h.library.RemainingTrials(stdCtx, user.ID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"remaining": remaining})
}

// @Summary Open the runtime view, spending a trial run when not owned
// @Tags library
// @Router /api/v1/library/{id}/launch [post]
func (h *LibraryHandler) Launch(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	launch, err := h.library.Launch(stdCtx, httpcontext.SessionID(ctx), pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.requestLogger(stdCtx).Info("runtime launched",
		zap.String("listing_id", launch.Listing.ID),
		zap.Bool("blocked", launch.Gate.Blocked))
	h.respondSuccess(ctx, http.StatusOK, launch)
}

// @Summary The runtime gate for the current visit
// @Tags library
// @Router /api/v1/runtime [get]
func (h *LibraryHandler) Runtime(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	launch, err := h.library.Runtime(stdCtx, httpcontext.SessionID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, launch)
}
