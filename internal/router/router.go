package router

import (
	"net/http"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/config"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/handler"
	mw "github.com/Uniqwrites1/vendorrPWA-backend/internal/middleware"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/service"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed. The notifier
// and payment service come from main because the background sweeper shares
// them.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, rdb *redis.Client, notifier *service.NotifyService, payments *service.PaymentService, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",           // Vite dev server
			"https://vendorr-pwa.netlify.app", // Production PWA
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Shared services. Handlers see narrow interfaces; the factory closures
	// rebind stores to the transaction a service opens.
	catalogService := service.NewCatalogService(queries, rdb)
	orderService := service.NewOrderService(
		pool,
		func(db database.DBTX) service.OrderStore {
			return database.New(db)
		},
		service.FlatRatePolicy{},
		notifier,
	)
	lifecycleService := service.NewLifecycleService(
		pool,
		queries,
		func(db database.DBTX) service.LifecycleStore {
			return database.New(db)
		},
		notifier,
	)

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	menuHandler := handler.NewMenuHandler(catalogService, queries)
	orderHandler := handler.NewOrderHandler(orderService, lifecycleService, queries)
	paymentHandler := handler.NewPaymentHandler(payments, queries)
	transferHandler := handler.NewTransferHandler(payments, queries)
	notificationHandler := handler.NewNotificationHandler(queries)
	settingsHandler := handler.NewSettingsHandler(queries)
	reviewHandler := handler.NewReviewHandler(queries)
	dashboardHandler := handler.NewDashboardHandler(queries)
	userHandler := handler.NewUserHandler(queries)
	reconcileHandler := handler.NewReconcileHandler(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler.RegisterRoutes(r)
	menuHandler.RegisterPublicRoutes(r)
	settingsHandler.RegisterPublicRoutes(r)

	// The gateway webhook authenticates with a signature, not a token. Rate
	// limiting keeps junk traffic off the verification path.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit(rate.Limit(5), 10))
		paymentHandler.RegisterPublicRoutes(r)
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Guest-or-signed-in routes. Checkout, tracking, transfer claims and
	// reviews all work without an account but attach one when present.
	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuthenticate(cfg.JWTSecret))

		orderHandler.RegisterPublicRoutes(r)
		transferHandler.RegisterPublicRoutes(r)
		reviewHandler.RegisterPublicRoutes(r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)
		orderHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)
		notificationHandler.RegisterRoutes(r)

		// Staff order board
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleStaff, enum.UserRoleKitchen, enum.UserRoleCounter, enum.UserRoleAdmin))
			orderHandler.RegisterStaffRoutes(r)
		})

		// Back-office routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleStaff, enum.UserRoleKitchen, enum.UserRoleCounter, enum.UserRoleAdmin))

			menuHandler.RegisterStaffRoutes(r)
			transferHandler.RegisterStaffRoutes(r)
			reconcileHandler.RegisterStaffRoutes(r)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))

				paymentHandler.RegisterStaffRoutes(r)
				dashboardHandler.RegisterRoutes(r)
				settingsHandler.RegisterAdminRoutes(r)
				reviewHandler.RegisterAdminRoutes(r)
				userHandler.RegisterAdminRoutes(r)
			})
		})
	})

	log.Info().Msg("router initialized")
	return r
}
