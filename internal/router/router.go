package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/nexus/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Session      *apiHandler.SessionHandler
	Listing      *apiHandler.ListingHandler
	Library      *apiHandler.LibraryHandler
	Payment      *apiHandler.PaymentHandler
	Notification *apiHandler.NotificationHandler
	Profile      *apiHandler.ProfileHandler
	Wallet       *apiHandler.WalletHandler
	Creator      *apiHandler.CreatorHandler
	Health       *apiHandler.HealthHandler
	// Metrics is optional; /metrics is not routed when nil.
	Metrics fasthttp.RequestHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Middlewares wraps route groups. RequireSession must reject anonymous
// requests; ResumeSession only attaches a session when one is presented.
type Middlewares struct {
	RequireSession Middleware
	ResumeSession  Middleware
	AssistLimit    Middleware
}

func New(h Handlers, mw Middlewares) *router.Router {
	r := router.New()
	auth := mw.RequireSession

	r.GET("/health", h.Health.Check)
	if h.Metrics != nil {
		r.GET("/metrics", h.Metrics)
	}

	v1 := r.Group("/api/v1")

	// Auth routes
	v1.POST("/auth/login", mw.ResumeSession(h.Auth.Login))
	v1.POST("/auth/logout", auth(h.Auth.Logout))
	v1.POST("/auth/refresh", auth(h.Auth.Refresh))

	v1.GET("/session", auth(h.Session.State))
	v1.POST("/session/navigate", auth(h.Session.Navigate))
	v1.POST("/session/select", auth(h.Session.Select))
	v1.POST("/session/back", auth(h.Session.Back))

	// Catalog reads are public
	v1.GET("/listings", h.Listing.Marketplace)
	v1.GET("/listings/leaderboard", h.Listing.Leaderboard)
	v1.GET("/listings/{id}", h.Listing.Get)
	v1.GET("/listings/{id}/docs", h.Listing.Docs)
	v1.GET("/listings/{id}/trials", auth(h.Library.Trials))

	v1.GET("/library", auth(h.Library.List))
	v1.DELETE("/library/{id}", auth(h.Library.Remove))
	v1.POST("/library/{id}/launch", auth(h.Library.Launch))
	v1.GET("/runtime", auth(h.Library.Runtime))

	v1.POST("/payments", auth(h.Payment.Start))
	v1.GET("/payments/{id}", auth(h.Payment.Get))
	v1.POST("/payments/{id}/confirm", auth(h.Payment.Confirm))
	v1.POST("/payments/{id}/method", auth(h.Payment.SelectMethod))
	v1.POST("/payments/{id}/pay", auth(h.Payment.Pay))
	v1.POST("/payments/{id}/cancel", auth(h.Payment.Cancel))

	v1.GET("/notifications", auth(h.Notification.List))
	v1.POST("/notifications/{id}/read", auth(h.Notification.MarkRead))
	v1.DELETE("/notifications", auth(h.Notification.Clear))

	v1.GET("/profile", auth(h.Profile.GetProfile))
	v1.PUT("/profile", auth(h.Profile.UpdateProfile))

	v1.GET("/wallet", auth(h.Wallet.Summary))
	v1.POST("/wallet/deposit", auth(h.Wallet.Deposit))
	v1.POST("/wallet/withdraw", auth(h.Wallet.Withdraw))

	v1.GET("/creator/listings", auth(h.Creator.MyListings))
	v1.POST("/creator/listings", auth(h.Creator.Create))
	v1.PUT("/creator/listings/{id}", auth(h.Creator.Update))
	v1.DELETE("/creator/listings/{id}", auth(h.Creator.Delete))
	v1.POST("/creator/assist", auth(mw.AssistLimit(h.Creator.Assist)))
	v1.POST("/creator/builds", auth(h.Creator.Build))
	v1.GET("/creator/payouts", auth(h.Creator.Payouts))

	return r
}
