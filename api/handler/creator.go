package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
	catalogUC "github.com/fastygo/nexus/usecase/catalog"
	creatorUC "github.com/fastygo/nexus/usecase/creator"
)

type CatalogWriter interface {
	MyListings(ctx context.Context, ownerID string) ([]domain.Listing, error)
	Create(ctx context.Context, actor *domain.User, draft catalogUC.Draft) (*domain.Listing, error)
	Update(ctx context.Context, actor *domain.User, id string, draft catalogUC.Draft) (*domain.Listing, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
}

type CreatorService interface {
	Assist(ctx context.Context, req creatorUC.AssistRequest) (*creatorUC.Assistance, error)
	StartBuild(ctx context.Context, req creatorUC.BuildRequest) (<-chan domain.BuildEvent, error)
	Dashboard(ctx context.Context) creatorUC.Dashboard
}

// CreatorHandler serves the creator studio: publishing, AI assistance,
// repository builds and payouts.
type CreatorHandler struct {
	sessionHandler
	catalog CatalogWriter
	creator CreatorService
}

func NewCreatorHandler(catalog CatalogWriter, creator CreatorService, users UserResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *CreatorHandler {
	return &CreatorHandler{
		sessionHandler: newSessionHandler(users, adapter, logger),
		catalog:        catalog,
		creator:        creator,
	}
}

// @Summary Listings published by the signed-in creator, any status
// @Tags creator
// @Router /api/v1/creator/listings [get]
func (h *CreatorHandler) MyListings(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	listings, err := h.catalog.MyListings(stdCtx, user.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, listings, len(listings))
}

// @Summary Submit a new listing for review
// @Tags creator
// @Router /api/v1/creator/listings [post]
func (h *CreatorHandler) Create(ctx *fasthttp.RequestCtx) {
	h.publish(ctx, http.StatusAccepted, func(stdCtx context.Context, user *domain.User, draft catalogUC.Draft) (*domain.Listing, error) {
		return h.catalog.Create(stdCtx, user, draft)
	})
}

// @Summary Resubmit an edited listing for review
// @Tags creator
// @Router /api/v1/creator/listings/{id} [put]
func (h *CreatorHandler) Update(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")
	h.publish(ctx, http.StatusAccepted, func(stdCtx context.Context, user *domain.User, draft catalogUC.Draft) (*domain.Listing, error) {
		return h.catalog.Update(stdCtx, user, id, draft)
	})
}

// @Summary Remove a listing from the platform
// @Tags creator
// @Router /api/v1/creator/listings/{id} [delete]
func (h *CreatorHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	if err := h.catalog.Delete(stdCtx, user, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Draft a description and a pricing hint
// @Tags creator
// @Router /api/v1/creator/assist [post]
func (h *CreatorHandler) Assist(ctx *fasthttp.RequestCtx) {
	var req creatorUC.AssistRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if user := h.actor(ctx, stdCtx); user == nil {
		return
	}
	out, err := h.creator.Assist(stdCtx, req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, out)
}

// @Summary Build and deploy a repository, streamed as server-sent events
// @Tags creator
// @Produce text/event-stream
// @Router /api/v1/creator/builds [post]
func (h *CreatorHandler) Build(ctx *fasthttp.RequestCtx) {
	var req creatorUC.BuildRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	checkCtx, checkCancel := h.requestContext(ctx)
	user := h.actor(ctx, checkCtx)
	checkCancel()
	if user == nil {
		return
	}

	streamCtx, cancel := h.streamContext(ctx)
	events, err := h.creator.StartBuild(streamCtx, req)
	if err != nil {
		cancel()
		h.respondError(ctx, err)
		return
	}
	log := h.requestLogger(streamCtx)

	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for ev := range events {
			if err := writeEvent(w, ev); err != nil {
				log.Debug("build stream closed by client", zap.Int("seq", ev.Seq), zap.Error(err))
				return
			}
		}
	})
}

// @Summary Monthly payouts and the sales series
// @Tags creator
// @Router /api/v1/creator/payouts [get]
func (h *CreatorHandler) Payouts(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if user := h.actor(ctx, stdCtx); user == nil {
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.creator.Dashboard(stdCtx))
}

func (h *CreatorHandler) publish(ctx *fasthttp.RequestCtx, status int, fn func(context.Context, *domain.User, catalogUC.Draft) (*domain.Listing, error)) {
	var draft catalogUC.Draft
	if err := h.decode(ctx, &draft); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	listing, err := fn(stdCtx, user, draft)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, status, listing)
}

func (h *CreatorHandler) streamContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.AttachStream(ctx)
	}
	return context.WithCancel(context.Background())
}

func writeEvent(w *bufio.Writer, ev domain.BuildEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	name := "log"
	if ev.Done {
		name = "done"
	}
	if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", name, ev.Seq, payload); err != nil {
		return err
	}
	return w.Flush()
}
