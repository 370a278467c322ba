package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
	catalogUC "github.com/fastygo/nexus/usecase/catalog"
)

type CatalogReader interface {
	Marketplace(ctx context.Context, q catalogUC.MarketQuery) ([]domain.Listing, error)
	Leaderboard(ctx context.Context) ([]domain.Listing, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Docs(ctx context.Context, id string) (string, error)
}

// ListingHandler serves the public catalog views.
type ListingHandler struct {
	baseHandler
	catalog CatalogReader
}

func NewListingHandler(catalog CatalogReader, adapter *httpcontext.Adapter, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{baseHandler: newBaseHandler(adapter, logger), catalog: catalog}
}

// @Summary Published listings
// @Tags listings
// @Param category query string false "category, or all"
// @Param search query string false "matches title, short description and tags"
// @Param sort query string false "newest|popularity|rating"
// @Router /api/v1/listings [get]
func (h *ListingHandler) Marketplace(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	q := catalogUC.MarketQuery{
		Category: string(args.Peek("category")),
		Search:   string(args.Peek("search")),
		Sort:     catalogUC.SortOrder(args.Peek("sort")),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	listings, err := h.catalog.Marketplace(stdCtx, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, listings, len(listings))
}

// @Summary Top listings by downloads weighted by rating
// @Tags listings
// @Router /api/v1/listings/leaderboard [get]
func (h *ListingHandler) Leaderboard(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	listings, err := h.catalog.Leaderboard(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondList(ctx, listings, len(listings))
}

// @Summary Listing detail
// @Tags listings
// @Router /api/v1/listings/{id} [get]
func (h *ListingHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	listing, err := h.catalog.Get(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, listing)
}

// @Summary Help docs as markdown
// @Tags listings
// @Produce text/markdown
// @Router /api/v1/listings/{id}/docs [get]
func (h *ListingHandler) Docs(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	docs, err := h.catalog.Docs(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Response.Header.SetContentType("text/markdown; charset=utf-8")
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBodyString(docs)
}
