package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.requireAuth)
	workerMiddleware := standardMiddleware.Append(app.requireScraperSecret)

	mux := pat.New()

	// Checkout and billing
	mux.Post("/api/create-checkout-session", authMiddleware.ThenFunc(app.checkoutHandler.CreateCheckoutSession))
	mux.Post("/api/create-portal-session", authMiddleware.ThenFunc(app.checkoutHandler.CreatePortalSession))
	mux.Post("/api/create-upgrade-session", authMiddleware.ThenFunc(app.checkoutHandler.CreateUpgradeSession))
	mux.Post("/api/sync-subscription", authMiddleware.ThenFunc(app.subscriptionHandler.SyncSubscription))

	// Provider webhooks authenticate by signature, not bearer token
	mux.Post("/api/webhooks/stripe", standardMiddleware.ThenFunc(app.webhookHandler.HandleStripeWebhook))

	// Enterprise organizations
	mux.Post("/api/manage-enterprise-users", authMiddleware.ThenFunc(app.enterpriseHandler.ManageUsers))
	mux.Post("/api/organizations/:id/logo", authMiddleware.ThenFunc(app.enterpriseHandler.UploadLogo))
	mux.Post("/api/send-invitation", authMiddleware.ThenFunc(app.invitationHandler.SendInvitation))
	mux.Post("/api/accept-invitation", authMiddleware.ThenFunc(app.invitationHandler.AcceptInvitation))

	// Scraper workers
	mux.Post("/api/scraper/get-job", workerMiddleware.ThenFunc(app.scraperHandler.GetJob))
	mux.Post("/api/scraper/report-status", workerMiddleware.ThenFunc(app.scraperHandler.ReportStatus))
	mux.Get("/api/scraper/health", standardMiddleware.ThenFunc(app.scraperHandler.Health))
	mux.Get("/api/scraper/ws", alice.New(app.recoverPanic, app.logRequest).ThenFunc(app.serveMonitorWS))

	return mux
}
