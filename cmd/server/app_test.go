package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/internal/config"
	"github.com/fastygo/nexus/internal/services/lifecycle"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Meta   json.RawMessage `json:"meta"`
}

type client struct {
	t       *testing.T
	handler fasthttp.RequestHandler
	token   string
}

func (c *client) do(method, path, body string) (int, envelope) {
	c.t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if c.token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}
	c.handler(&ctx)

	var env envelope
	if raw := ctx.Response.Body(); len(raw) > 0 && strings.HasPrefix(string(ctx.Response.Header.ContentType()), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw, &env))
	}
	return ctx.Response.StatusCode(), env
}

func (c *client) data(method, path, body string, want int, out interface{}) {
	c.t.Helper()
	status, env := c.do(method, path, body)
	require.Equal(c.t, want, status, "%s %s: %s", method, path, env.Code)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AppName: "nexus-test",
		HTTP:    config.HTTPConfig{EnableMetrics: true},
		JWT:     config.JWTConfig{Secret: "test-secret", Issuer: "nexus-test", TokenTTL: time.Hour},
		Context: config.ContextConfig{RequestTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Storage: config.StorageConfig{CatalogDriver: "memory", StateDriver: "memory", SessionTTL: time.Hour},
		Market: config.MarketConfig{
			ApprovalDelay:     10 * time.Millisecond,
			PaymentDelay:      10 * time.Millisecond,
			BuildStepInterval: time.Millisecond,
			TrialRuns:         3,
			NotificationCap:   50,
			DemoOwnedListings: []string{"3"},
			LeaderboardSize:   10,
		},
		RateLimit: config.RateLimitConfig{AssistRPS: 1, AssistBurst: 1},
	}
}

func newClient(t *testing.T) *client {
	t.Helper()
	manager := lifecycle.New(time.Second, nil)
	app, err := buildApplication(context.Background(), testConfig(), manager, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })
	return &client{t: t, handler: app.handler}
}

func (c *client) login() {
	c.t.Helper()
	var res struct {
		Token     string `json:"token"`
		Onboarded bool   `json:"onboarded"`
	}
	c.data(http.MethodPost, "/api/v1/auth/login", "", http.StatusOK, &res)
	require.NotEmpty(c.t, res.Token)
	c.token = res.Token
}

func TestServer_AnonymousAccess(t *testing.T) {
	c := newClient(t)

	status, _ := c.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)

	var listings []map[string]interface{}
	c.data(http.MethodGet, "/api/v1/listings?sort=popularity", "", http.StatusOK, &listings)
	assert.NotEmpty(t, listings)

	status, env := c.do(http.MethodGet, "/api/v1/session", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestServer_CheckoutWithWallet(t *testing.T) {
	c := newClient(t)
	c.login()

	var state struct {
		View string `json:"view"`
	}
	c.data(http.MethodGet, "/api/v1/session", "", http.StatusOK, &state)
	assert.Equal(t, "home", state.View)

	var flow struct {
		ID   string `json:"id"`
		Step string `json:"step"`
	}
	c.data(http.MethodPost, "/api/v1/payments", `{"listing_id":"6"}`, http.StatusCreated, &flow)
	assert.Equal(t, "confirm", flow.Step)

	base := "/api/v1/payments/" + flow.ID
	c.data(http.MethodPost, base+"/confirm", "", http.StatusOK, &flow)
	c.data(http.MethodPost, base+"/method", `{"method":"wallet"}`, http.StatusOK, &flow)
	c.data(http.MethodPost, base+"/pay", "", http.StatusAccepted, &flow)
	assert.Equal(t, "processing", flow.Step)

	status, _ := c.do(http.MethodPost, base+"/pay", "")
	assert.Equal(t, http.StatusConflict, status)

	require.Eventually(t, func() bool {
		status, env := c.do(http.MethodGet, base, "")
		if status != http.StatusOK {
			return false
		}
		var f struct {
			Step string `json:"step"`
		}
		return json.Unmarshal(env.Data, &f) == nil && f.Step == "success"
	}, 2*time.Second, 10*time.Millisecond)

	var owned []struct {
		ID string `json:"id"`
	}
	c.data(http.MethodGet, "/api/v1/library", "", http.StatusOK, &owned)
	ids := make([]string, 0, len(owned))
	for _, l := range owned {
		ids = append(ids, l.ID)
	}
	assert.ElementsMatch(t, []string{"3", "6"}, ids)

	var wallet struct {
		Balance float64 `json:"balance"`
	}
	c.data(http.MethodGet, "/api/v1/wallet", "", http.StatusOK, &wallet)
	assert.InDelta(t, 1216.80, wallet.Balance, 0.001)

	var launch struct {
		Gate struct {
			Owned   bool `json:"owned"`
			Blocked bool `json:"blocked"`
		} `json:"gate"`
	}
	c.data(http.MethodPost, "/api/v1/library/6/launch", "", http.StatusOK, &launch)
	assert.True(t, launch.Gate.Owned)
	assert.False(t, launch.Gate.Blocked)
}

func TestServer_PublishGoesLiveAfterReview(t *testing.T) {
	c := newClient(t)
	c.login()

	draft := `{"title":"Prompt Forge","short_description":"Prompt tooling","pricing_model":"free",` +
		`"category":"Productivity","deployment":{"kind":"web_app","url":"https://forge.example.com"}}`
	var listing struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Version string `json:"current_version"`
	}
	c.data(http.MethodPost, "/api/v1/creator/listings", draft, http.StatusAccepted, &listing)
	assert.Equal(t, "under_review", listing.Status)
	assert.Equal(t, "1.0.0", listing.Version)

	require.Eventually(t, func() bool {
		status, env := c.do(http.MethodGet, "/api/v1/listings/"+listing.ID, "")
		if status != http.StatusOK {
			return false
		}
		var l struct {
			Status string `json:"status"`
		}
		return json.Unmarshal(env.Data, &l) == nil && l.Status == "published"
	}, 2*time.Second, 10*time.Millisecond)

	status, _ := c.do(http.MethodPut, "/api/v1/creator/listings/2", draft)
	assert.Equal(t, http.StatusForbidden, status)

	c.data(http.MethodDelete, "/api/v1/creator/listings/"+listing.ID, "", http.StatusNoContent, nil)
	status, _ = c.do(http.MethodGet, "/api/v1/listings/"+listing.ID, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_AssistIsRateLimited(t *testing.T) {
	c := newClient(t)
	c.login()

	body := `{"name":"Prompt Forge","core_function":"writes prompts"}`
	var out struct {
		Copy struct {
			Description string `json:"description"`
		} `json:"copy"`
	}
	c.data(http.MethodPost, "/api/v1/creator/assist", body, http.StatusOK, &out)
	assert.NotEmpty(t, out.Copy.Description)

	status, env := c.do(http.MethodPost, "/api/v1/creator/assist", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", env.Code)
}

func TestServer_Metrics(t *testing.T) {
	c := newClient(t)
	c.login()

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics")
	c.handler(&ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), fmt.Sprintf(`nexus_events_total{event=%q} 1`, "auth.login"))
}
