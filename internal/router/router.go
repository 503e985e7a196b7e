package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kopitiam-pos/api/internal/config"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/handler"
	mw "github.com/kopitiam-pos/api/internal/middleware"
	"github.com/kopitiam-pos/api/internal/service"
	"github.com/kopitiam-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, branch scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // POS dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	earnRate, err := decimal.NewFromString(cfg.LoyaltyEarnRate)
	if err != nil {
		log.Printf("WARN: invalid LOYALTY_EARN_RATE %q, using 1", cfg.LoyaltyEarnRate)
		earnRate = decimal.NewFromInt(1)
	}

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, earnRate)
	refundService := service.NewRefundService(pool, func(db database.DBTX) service.RefundStore {
		return database.New(db)
	})
	shiftService := service.NewShiftService(pool, func(db database.DBTX) service.ShiftStore {
		return database.New(db)
	})
	transferService := service.NewTransferService(pool, func(db database.DBTX) service.TransferStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Catalog (global, read-only)
		menuHandler := handler.NewMenuHandler(queries)
		menuHandler.RegisterRoutes(r)

		// Customers (global; any branch can attach one to an order)
		customerHandler := handler.NewCustomerHandler(queries)
		r.Route("/customers", customerHandler.RegisterRoutes)

		// Branch directory (read-only; branches are seeded out of band)
		branchHandler := handler.NewBranchHandler(queries)
		r.Get("/branches", branchHandler.List)

		// Branch-scoped routes
		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			r.Get("/", branchHandler.Get)

			orderHandler := handler.NewOrderHandler(orderService, refundService, queries, hub)
			r.Route("/orders", orderHandler.RegisterRoutes)

			shiftHandler := handler.NewShiftHandler(shiftService, queries)
			r.Route("/shifts", shiftHandler.RegisterRoutes)

			transferHandler := handler.NewTransferHandler(transferService, queries, hub)
			r.Route("/transfers", transferHandler.RegisterRoutes)

			inventoryHandler := handler.NewInventoryHandler(queries)
			r.Route("/inventory", inventoryHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
