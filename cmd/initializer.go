package main

import (
	"log"
	"log/slog"
	"net/http"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/auth"
	"github.com/redis/go-redis/v9"

	"autoHunterBack/internal/config"
	"autoHunterBack/internal/handlers"
	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
	"autoHunterBack/internal/repositories"
	"autoHunterBack/internal/services"
	"autoHunterBack/utils"
)

type application struct {
	cfg      config.Config
	errorLog *log.Logger
	infoLog  *log.Logger
	logger   *slog.Logger

	authClient *auth.Client
	tokens     *utils.Manager

	userRepo       *repositories.UserRepository
	orgRepo        *repositories.OrganizationRepository
	invitationRepo *repositories.InvitationRepository
	scraperRepo    *repositories.ScraperRepository
	eventRepo      *repositories.EventRepository

	notifier *services.Notifier
	monitor  *MonitorHub

	checkoutHandler     *handlers.CheckoutHandler
	webhookHandler      *handlers.WebhookHandler
	enterpriseHandler   *handlers.EnterpriseHandler
	invitationHandler   *handlers.InvitationHandler
	subscriptionHandler *handlers.SubscriptionHandler
	scraperHandler      *handlers.ScraperHandler
}

func initializeApp(cfg config.Config, fsClient *firestore.Client, rdb *redis.Client, authClient *auth.Client, errorLog, infoLog *log.Logger, logger *slog.Logger) *application {
	// Repositories
	userRepo := &repositories.UserRepository{Client: fsClient}
	orgRepo := &repositories.OrganizationRepository{Client: fsClient}
	invitationRepo := &repositories.InvitationRepository{Client: fsClient}
	scraperRepo := &repositories.ScraperRepository{Client: fsClient}
	eventRepo := &repositories.EventRepository{RDB: rdb}

	// Provider clients
	stripeClient, err := pay.NewStripe(pay.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		BaseURL:   cfg.Stripe.BaseURL,
		Logger:    logger,
	})
	if err != nil {
		errorLog.Fatal(err)
	}
	emailService, err := services.NewEmailService(services.EmailConfig{
		APIKey: cfg.Resend.APIKey,
		From:   cfg.Resend.From,
		AppURL: cfg.Server.AppURL,
		Logger: logger,
	})
	if err != nil {
		errorLog.Fatal(err)
	}
	storage := &utils.S3Storage{
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
	}
	tokens, err := utils.NewManager(cfg.Internal.TokenSigningKey)
	if err != nil {
		errorLog.Fatal(err)
	}

	prices := services.Prices{
		Lite:                     cfg.Stripe.Prices.Lite,
		Dealer:                   cfg.Stripe.Prices.Dealer,
		Enterprise:               cfg.Stripe.Prices.Enterprise,
		EnterpriseAdditionalUser: cfg.Stripe.Prices.EnterpriseAdditionalUser,
	}

	// Services
	notifier := services.NewNotifier(emailService, infoLog, errorLog)
	checkoutService := &services.CheckoutService{
		Users:   userRepo,
		Billing: stripeClient,
		Prices:  prices,
		AppURL:  cfg.Server.AppURL,
		Logger:  logger,
	}
	webhookService := &services.WebhookService{
		Users:    userRepo,
		Orgs:     orgRepo,
		Events:   eventRepo,
		Billing:  stripeClient,
		Notifier: notifier,
		Logger:   logger,
	}
	enterpriseService := &services.EnterpriseService{
		Users:       userRepo,
		Orgs:        orgRepo,
		Invitations: invitationRepo,
		Billing:     stripeClient,
		Prices:      prices,
		Notifier:    notifier,
		Uploader:    storage,
		NewToken:    utils.NewInviteToken,
		Logger:      logger,
	}
	subscriptionService := &services.SubscriptionService{
		Users:   userRepo,
		Billing: stripeClient,
		Logger:  logger,
	}
	monitor := NewMonitorHub()
	scraperService := &services.ScraperService{
		Jobs:     scraperRepo,
		Cooldown: models.ScrapeCooldown,
		Logger:   logger,
		OnReport: monitor.Publish,
	}

	return &application{
		cfg:            cfg,
		errorLog:       errorLog,
		infoLog:        infoLog,
		logger:         logger,
		authClient:     authClient,
		tokens:         tokens,
		userRepo:       userRepo,
		orgRepo:        orgRepo,
		invitationRepo: invitationRepo,
		scraperRepo:    scraperRepo,
		eventRepo:      eventRepo,
		notifier:       notifier,
		monitor:        monitor,
		checkoutHandler: &handlers.CheckoutHandler{
			Service: checkoutService,
		},
		webhookHandler: &handlers.WebhookHandler{
			Service:       webhookService,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Logger:        logger,
		},
		enterpriseHandler: &handlers.EnterpriseHandler{
			Service: enterpriseService,
		},
		invitationHandler: &handlers.InvitationHandler{
			Service: enterpriseService,
		},
		subscriptionHandler: &handlers.SubscriptionHandler{
			Service: subscriptionService,
		},
		scraperHandler: &handlers.ScraperHandler{
			Service:   scraperService,
			APISecret: cfg.Internal.APISecret,
		},
	}
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
