// Package server assembles the HTTP application.
package server

import (
	"errors"
	"math/rand"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jetsocket/backend/internal/broker"
	"github.com/jetsocket/backend/internal/config"
	"github.com/jetsocket/backend/internal/content"
	"github.com/jetsocket/backend/internal/database"
	"github.com/jetsocket/backend/internal/handlers"
	"github.com/jetsocket/backend/internal/middleware"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/security"
	"github.com/jetsocket/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps are the collaborators of the HTTP application. Optional fields are
// filled with defaults derived from Config.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *database.Cache
	Cipher *security.Cipher

	Broker    *broker.Client
	Processor services.CheckoutProvider
	Notifier  services.ContactNotifier
	Display   *services.DisplaySynthesizer
	Registry  *prometheus.Registry
}

func (d *Deps) fill() error {
	if d.Config == nil || d.DB == nil {
		return errors.New("server: config and database are required")
	}
	if d.Cache == nil {
		d.Cache = database.NewCache(nil)
	}
	if d.Cipher == nil {
		c, err := security.NewCipher(d.Config.EncryptionKey)
		if err != nil {
			return err
		}
		d.Cipher = c
	}
	if d.Broker == nil {
		d.Broker = broker.NewClient(d.Config.Broker)
	}
	if d.Processor == nil {
		d.Processor = payments.NewClient(d.Config.Payments)
	}
	if d.Notifier == nil {
		if n := services.NewMailNotifier(services.NewMailer(d.Config.SMTP), d.Config.SMTP.NotifyTo); n != nil {
			d.Notifier = n
		}
	}
	if d.Display == nil {
		d.Display = services.NewDisplaySynthesizer(rand.NewSource(time.Now().UnixNano()), time.Now())
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		msg = "Internal server error"
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

// New builds the fiber application with every route mounted.
func New(d Deps) (*fiber.App, error) {
	if err := d.fill(); err != nil {
		return nil, err
	}
	cfg := d.Config

	landing, err := content.LoadLanding(cfg.DocsURL, cfg.BlogURL)
	if err != nil {
		return nil, err
	}

	catalog := payments.NewCatalog(cfg.Payments)
	users := services.NewUserService(d.DB)
	apps := services.NewApplicationService(d.DB, d.Cache)
	subs := services.NewSubscriptionService(d.DB, catalog, d.Processor, cfg.ClientURL)
	contact := services.NewContactService(d.DB, d.Notifier)
	admin := services.NewAdminService(d.DB, apps)

	authHandler := handlers.NewAuthHandler(cfg, d.DB, users, d.Cache, d.Cipher)
	twoFAHandler := handlers.NewTwoFAHandler(users, d.Cipher)
	appHandler := handlers.NewApplicationHandler(apps, d.Broker)
	dashboardHandler := handlers.NewDashboardHandler(apps, d.Display)
	checkoutHandler := handlers.NewCheckoutHandler(d.DB, subs)
	webhookHandler := handlers.NewWebhookHandler(subs, cfg.Payments.WebhookSecret)
	publicHandler := handlers.NewPublicHandler(landing, catalog, contact, d.Processor.Configured())
	adminHandler := handlers.NewAdminHandler(admin)

	app := fiber.New(fiber.Config{
		AppName:      "JetSocket API",
		ServerHeader: "JetSocket",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.ClientURL))
	app.Use(middleware.NewHTTPMetrics(d.Registry).Handler())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "jetsocket-api",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Use(middleware.RateLimiter(cfg.RateLimit))

	// Public routes
	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/payments/webhook", webhookHandler.Payments)
	api.Get("/public/landing", publicHandler.Landing)
	api.Get("/public/pricing", publicHandler.Pricing)
	api.Post("/public/contact", publicHandler.Contact)

	// Protected routes
	protected := api.Group("",
		middleware.AuthRequired(cfg, d.DB, d.Cache),
		middleware.AuditLogger(d.DB),
		middleware.TrackActivity(users),
	)

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/refresh", authHandler.Refresh)
	protected.Put("/auth/password", authHandler.ChangePassword)

	protected.Get("/auth/2fa/status", twoFAHandler.Status)
	protected.Post("/auth/2fa/setup", twoFAHandler.Setup)
	protected.Post("/auth/2fa/verify", twoFAHandler.Verify)
	protected.Post("/auth/2fa/disable", twoFAHandler.Disable)

	protected.Get("/dashboard", dashboardHandler.Overview)
	protected.Get("/dashboard/apps", dashboardHandler.ConnectedApps)

	applications := protected.Group("/applications")
	applications.Get("/", appHandler.List)
	applications.Post("/", appHandler.Create)
	applications.Get("/:id", appHandler.Get)
	applications.Patch("/:id", appHandler.Update)
	applications.Put("/:id", appHandler.Update)
	applications.Delete("/:id", appHandler.Delete)
	applications.Post("/:id/test-event", appHandler.TestEvent)
	applications.Get("/:id/connection-check", appHandler.ConnectionCheck)
	applications.Get("/:id/snippets", appHandler.Snippets)

	protected.Post("/checkout", checkoutHandler.Create)

	adminRoutes := protected.Group("/admin", middleware.AdminOnly())
	adminRoutes.Get("/stats", adminHandler.Stats)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Get("/users/:id", adminHandler.GetUser)
	adminRoutes.Get("/audit", adminHandler.AuditLogs)
	adminRoutes.Get("/contact-messages", adminHandler.ContactMessages)

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
		// SPA fallback
		app.Get("/*", func(c *fiber.Ctx) error {
			return c.SendFile(cfg.StaticDir + "/index.html")
		})
	}

	return app, nil
}
