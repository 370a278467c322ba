package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/infrastructure/monitor"
	"github.com/fastygo/nexus/pkg/httpcontext"
	catalogUC "github.com/fastygo/nexus/usecase/catalog"
	creatorUC "github.com/fastygo/nexus/usecase/creator"
)

type usersMock struct{ mock.Mock }

func (m *usersMock) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	args := m.Called(ctx, sessionID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type paymentsMock struct {
	mock.Mock
	PaymentService
}

func (m *paymentsMock) Start(ctx context.Context, userID, listingID string) (*domain.PaymentFlow, error) {
	args := m.Called(ctx, userID, listingID)
	flow, _ := args.Get(0).(*domain.PaymentFlow)
	return flow, args.Error(1)
}

type catalogStub struct {
	CatalogReader
	query catalogUC.MarketQuery
}

func (s *catalogStub) Marketplace(_ context.Context, q catalogUC.MarketQuery) ([]domain.Listing, error) {
	s.query = q
	if q.Sort == "loudest" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown sort order")
	}
	return []domain.Listing{{ID: "1"}, {ID: "2"}}, nil
}

func (s *catalogStub) Docs(context.Context, string) (string, error) {
	return "# Tool", nil
}

type statusStub monitor.Status

func (s statusStub) GetStatus() monitor.Status { return monitor.Status(s) }

func newRequest(method, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	return &ctx
}

func withSession(ctx *fasthttp.RequestCtx, id string) *fasthttp.RequestCtx {
	ctx.SetUserValue(httpcontext.SessionUserValue, id)
	return ctx
}

func decodeEnvelope(t *testing.T, ctx *fasthttp.RequestCtx) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	return env
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrNotListingOwner, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrInsufficientFunds, http.StatusBadRequest, "INVALID"},
		{domain.ErrListingNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrAlreadyOwned, http.StatusConflict, "CONFLICT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, code := mapError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestListingHandler_Marketplace(t *testing.T) {
	stub := &catalogStub{}
	h := NewListingHandler(stub, httpcontext.NewAdapter(time.Second), nil)

	ctx := newRequest(http.MethodGet, "")
	ctx.Request.SetRequestURI("/api/v1/listings?category=Audio&search=voice&sort=rating")
	h.Marketplace(ctx)

	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, catalogUC.MarketQuery{Category: "Audio", Search: "voice", Sort: catalogUC.SortRating}, stub.query)
	env := decodeEnvelope(t, ctx)
	assert.Equal(t, "success", env["status"])
	assert.Equal(t, float64(2), env["meta"].(map[string]interface{})["total"])

	bad := newRequest(http.MethodGet, "")
	bad.Request.SetRequestURI("/api/v1/listings?sort=loudest")
	h.Marketplace(bad)
	assert.Equal(t, http.StatusBadRequest, bad.Response.StatusCode())
}

func TestListingHandler_DocsIsMarkdown(t *testing.T) {
	h := NewListingHandler(&catalogStub{}, nil, nil)
	ctx := newRequest(http.MethodGet, "")
	ctx.SetUserValue("id", "1")
	h.Docs(ctx)

	assert.Equal(t, "# Tool", string(ctx.Response.Body()))
	assert.Contains(t, string(ctx.Response.Header.ContentType()), "text/markdown")
}

func TestPaymentHandler_Start(t *testing.T) {
	users := &usersMock{}
	payments := &paymentsMock{}
	h := NewPaymentHandler(payments, users, nil, nil)

	users.On("CurrentUser", mock.Anything, "s1").Return(&domain.User{ID: "u1"}, nil)
	users.On("CurrentUser", mock.Anything, "gone").Return(nil, domain.ErrSessionNotFound)
	payments.On("Start", mock.Anything, "u1", "7").Return(&domain.PaymentFlow{ID: "p1", Step: domain.StepConfirm}, nil)
	payments.On("Start", mock.Anything, "u1", "3").Return(nil, domain.ErrAlreadyOwned)

	ctx := withSession(newRequest(http.MethodPost, `{"listing_id":"7"}`), "s1")
	h.Start(ctx)
	assert.Equal(t, http.StatusCreated, ctx.Response.StatusCode())
	data := decodeEnvelope(t, ctx)["data"].(map[string]interface{})
	assert.Equal(t, "p1", data["id"])

	owned := withSession(newRequest(http.MethodPost, `{"listing_id":"3"}`), "s1")
	h.Start(owned)
	assert.Equal(t, http.StatusConflict, owned.Response.StatusCode())

	anon := newRequest(http.MethodPost, `{"listing_id":"7"}`)
	h.Start(anon)
	assert.Equal(t, http.StatusUnauthorized, anon.Response.StatusCode())

	stale := withSession(newRequest(http.MethodPost, `{"listing_id":"7"}`), "gone")
	h.Start(stale)
	assert.Equal(t, http.StatusUnauthorized, stale.Response.StatusCode())

	garbled := withSession(newRequest(http.MethodPost, `{"listing_id":`), "s1")
	h.Start(garbled)
	assert.Equal(t, http.StatusBadRequest, garbled.Response.StatusCode())

	payments.AssertNumberOfCalls(t, "Start", 2)
}

func TestCreatorHandler_BuildStreamsEvents(t *testing.T) {
	users := &usersMock{}
	users.On("CurrentUser", mock.Anything, "s1").Return(&domain.User{ID: "u1"}, nil)
	creator := creatorUC.New(nil, creatorUC.Dashboard{}, creatorUC.Config{BuildStepInterval: time.Millisecond}, nil, nil)
	h := NewCreatorHandler(nil, creator, users, httpcontext.NewAdapter(time.Second), nil)

	ctx := withSession(newRequest(http.MethodPost, `{"app_name":"Voice Lab","repo_url":"https://github.com/acme/voice"}`), "s1")
	h.Build(ctx)

	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "text/event-stream", string(ctx.Response.Header.ContentType()))
	body := string(ctx.Response.Body())
	assert.Equal(t, 8, strings.Count(body, "data: "))
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, "https://voice-lab.nexus-deploy.com")

	invalid := withSession(newRequest(http.MethodPost, `{"app_name":"x"}`), "s1")
	h.Build(invalid)
	assert.Equal(t, http.StatusBadRequest, invalid.Response.StatusCode())
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(statusStub{Components: map[string]bool{"redis": true}}, nil, nil)
	ctx := newRequest(http.MethodGet, "")
	healthy.Check(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	degraded := NewHealthHandler(statusStub{Components: map[string]bool{"postgresql": false}}, nil, nil)
	ctx = newRequest(http.MethodGet, "")
	degraded.Check(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Equal(t, "DEGRADED", decodeEnvelope(t, ctx)["code"])
}
