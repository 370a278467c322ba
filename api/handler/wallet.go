package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/api/transport"
	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/pkg/httpcontext"
	walletUC "github.com/fastygo/nexus/usecase/wallet"
)

type WalletService interface {
	Summary(ctx context.Context, userID string) (*walletUC.Summary, error)
	Deposit(ctx context.Context, userID string, amount float64) (*domain.Transaction, error)
	Withdraw(ctx context.Context, userID string, amount float64) (*domain.Transaction, error)
}

type WalletHandler struct {
	sessionHandler
	uc WalletService
}

func NewWalletHandler(uc WalletService, users UserResolver, adapter *httpcontext.Adapter, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{sessionHandler: newSessionHandler(users, adapter, logger), uc: uc}
}

// @Summary Balance and transaction history
// @Tags wallet
// @Router /api/v1/wallet [get]
func (h *WalletHandler) Summary(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	summary, err := h.uc.Summary(stdCtx, user.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, summary)
}

// @Summary Top up the balance
// @Tags wallet
// @Router /api/v1/wallet/deposit [post]
func (h *WalletHandler) Deposit(ctx *fasthttp.RequestCtx) {
	h.move(ctx, func(stdCtx context.Context, userID string, amount float64) (*domain.Transaction, error) {
		return h.uc.Deposit(stdCtx, userID, amount)
	})
}

// @Summary Request a withdrawal; it stays pending
// @Tags wallet
// @Router /api/v1/wallet/withdraw [post]
func (h *WalletHandler) Withdraw(ctx *fasthttp.RequestCtx) {
	h.move(ctx, func(stdCtx context.Context, userID string, amount float64) (*domain.Transaction, error) {
		return h.uc.Withdraw(stdCtx, userID, amount)
	})
}

func (h *WalletHandler) move(ctx *fasthttp.RequestCtx, fn func(context.Context, string, float64) (*domain.Transaction, error)) {
	var req transport.AmountRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user := h.actor(ctx, stdCtx)
	if user == nil {
		return
	}
	tx, err := fn(stdCtx, user.ID, req.Amount)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, tx)
}
