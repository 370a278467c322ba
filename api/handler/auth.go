package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/api/transport"
	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
	authUC "github.com/fastygo/nexus/usecase/auth"
)

// TokenIssuer signs bearer tokens bound to a session.
type TokenIssuer interface {
	Issue(sessionID string) (string, time.Time, error)
}

type AuthService interface {
	Login(ctx context.Context, sessionID string) (*authUC.LoginResult, error)
	Logout(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error)
}

type AuthHandler struct {
	baseHandler
	uc     AuthService
	tokens TokenIssuer
}

func NewAuthHandler(uc AuthService, tokens TokenIssuer, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		tokens:      tokens,
	}
}

// @Summary Sign in as the demo account, resuming the bearer's session if any
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	res, err := h.uc.Login(stdCtx, httpcontext.SessionID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	token, expires, err := h.tokens.Issue(res.Session.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Session:   res.Session,
		User:      res.User,
		Onboarded: res.Onboarded,
	})
}

// @Summary Sign out; the session stays and shows the sign-in view
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Logout(stdCtx, httpcontext.SessionID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, session)
}

// @Summary Extend the session and issue a fresh token
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	var req transport.RefreshRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Refresh(stdCtx, httpcontext.SessionID(ctx), time.Duration(req.TTL)*time.Second)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	token, expires, err := h.tokens.Issue(session.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Session:   session,
	})
}
