package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authhandler "github.com/nexo/nexo-backend/internal/auth/handler"
	"github.com/nexo/nexo-backend/internal/auth/jwt"
	authrepo "github.com/nexo/nexo-backend/internal/auth/repository"
	authservice "github.com/nexo/nexo-backend/internal/auth/service"
	clienthandler "github.com/nexo/nexo-backend/internal/clients/handler"
	clientrepo "github.com/nexo/nexo-backend/internal/clients/repository"
	clientservice "github.com/nexo/nexo-backend/internal/clients/service"
	dashconsumers "github.com/nexo/nexo-backend/internal/dashboard/consumers"
	dashhandler "github.com/nexo/nexo-backend/internal/dashboard/handler"
	dashrepo "github.com/nexo/nexo-backend/internal/dashboard/repository"
	dashservice "github.com/nexo/nexo-backend/internal/dashboard/service"
	"github.com/nexo/nexo-backend/internal/gate"
	invconsumers "github.com/nexo/nexo-backend/internal/inventory/consumers"
	invevents "github.com/nexo/nexo-backend/internal/inventory/events"
	invhandler "github.com/nexo/nexo-backend/internal/inventory/handler"
	invrepo "github.com/nexo/nexo-backend/internal/inventory/repository"
	invservice "github.com/nexo/nexo-backend/internal/inventory/service"
	orghandler "github.com/nexo/nexo-backend/internal/org/handler"
	orgrepo "github.com/nexo/nexo-backend/internal/org/repository"
	orgservice "github.com/nexo/nexo-backend/internal/org/service"
	salesevents "github.com/nexo/nexo-backend/internal/sales/events"
	saleshandler "github.com/nexo/nexo-backend/internal/sales/handler"
	salesrepo "github.com/nexo/nexo-backend/internal/sales/repository"
	salesservice "github.com/nexo/nexo-backend/internal/sales/service"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/config"
	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/policy"
	"github.com/nexo/nexo-backend/pkg/switchboard"
)

func main() {
	cfg, err := config.Load("nexo-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("nexo-server", cfg.Server.Environment)
	log.Info().Msg("starting NEXO server")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Repositories
	sessions := authrepo.NewSessionRepository(db)
	profiles := authrepo.NewProfileRepository(db, log)
	orgs := orgrepo.NewOrganizationRepository(db)
	products := invrepo.NewProductRepository(db)
	alerts := invrepo.NewAlertRepository(db)
	clients := clientrepo.NewClientRepository(db)
	sales := salesrepo.NewSaleRepository(db)
	stats := dashrepo.NewStatsRepository(db)

	// Event publishers
	authPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAuthEvents, "nexo-server", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create auth publisher")
	}
	orgPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeOrgEvents, "nexo-server", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create org publisher")
	}
	inventoryPublisher, err := invevents.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create inventory publisher")
	}
	salesPublisher, err := salesevents.NewSalesEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sales publisher")
	}

	// Services
	jwtManager := jwt.NewManager(&cfg.JWT)
	switchStore := switchboard.New()
	authService := authservice.NewAuthService(sessions, profiles, orgs, jwtManager, authPublisher, cfg, log)
	orgService := orgservice.NewOrgService(orgs, switchStore, orgPublisher, log)
	inventoryService := invservice.NewInventoryService(products, alerts, inventoryPublisher, log)
	clientService := clientservice.NewClientService(clients, log)
	saleService := salesservice.NewSaleService(sales, products, salesPublisher, log)
	dashboardService := dashservice.NewDashboardService(stats, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authService, cfg, log)
	orgHandler := orghandler.NewOrgHandler(orgService, cfg, log)
	productHandler := invhandler.NewProductHandler(inventoryService, log)
	alertHandler := invhandler.NewAlertHandler(inventoryService, log)
	clientHandler := clienthandler.NewClientHandler(clientService, log)
	saleHandler := saleshandler.NewSaleHandler(saleService, log)
	dashboardHandler := dashhandler.NewDashboardHandler(dashboardService, log)

	// Session resolution and the access gate
	cookieSession := authhandler.NewCookieSession(authService, jwtManager, cfg, log)
	accessGate := gate.New(cookieSession, log)

	// Event consumers
	saleConsumer, err := invconsumers.NewSaleEventConsumer(rmq, products, alerts, inventoryPublisher, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sale event consumer")
	}
	defer saleConsumer.Close()

	statsInvalidator, err := dashconsumers.NewStatsInvalidator(rmq, dashboardService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create stats invalidator")
	}
	defer statsInvalidator.Close()

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	// An admin landing on a freshly selected org expects live numbers,
	// not a snapshot cached before their last sale elsewhere.
	switches, cancelSwitches := switchStore.Subscribe(16)
	defer cancelSwitches()
	go func() {
		for sel := range switches {
			dashboardService.Invalidate(sel.OrgID)
		}
	}()

	go func() {
		if err := saleConsumer.Start(consumerCtx); err != nil {
			log.Error().Err(err).Msg("sale event consumer stopped")
		}
	}()
	go func() {
		if err := statsInvalidator.Start(consumerCtx); err != nil {
			log.Error().Err(err).Msg("stats invalidator stopped")
		}
	}()

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.Locale)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			return strings.HasSuffix(origin, ".nexo.app") || origin == "https://nexo.app"
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Accept-Language"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(accessGate.Middleware)
	r.Use(orghandler.ResolveOrg)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "nexo-server",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Page shells. The SPA hydrates these, the gate has already decided
	// whether this principal may see the zone.
	r.Get("/login", pageShell("login"))
	for _, zone := range []policy.Zone{
		policy.ZoneDashboard, policy.ZoneInventory, policy.ZoneClients,
		policy.ZoneSales, policy.ZoneSettings,
	} {
		r.Get("/"+string(zone), pageShell(string(zone)))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/navigation", orgHandler.Navigation)

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", orgHandler.List)
			r.Post("/", orgHandler.Create)
			r.Delete("/{id}", orgHandler.Delete)
		})
		r.Post("/switchboard", orgHandler.Switch)

		// Org-scoped resources
		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireOrg)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.List)
				r.Post("/", productHandler.Create)
				r.Post("/bulk", productHandler.BulkImport)
				r.Get("/{id}", productHandler.Get)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertHandler.List)
				r.Post("/{id}/resolve", alertHandler.Resolve)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", clientHandler.List)
				r.Post("/", clientHandler.Create)
				r.Get("/{id}", clientHandler.Get)
				r.Delete("/{id}", clientHandler.Delete)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", saleHandler.List)
				r.Post("/", saleHandler.Create)
				r.Get("/{id}", saleHandler.Get)
				r.Get("/{id}/receipt", saleHandler.Receipt)
			})

			r.Get("/dashboard/stats", dashboardHandler.Stats)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopConsumers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// pageShell serves the minimal payload the frontend shell needs to
// render a zone for the signed-in principal.
func pageShell(zone string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{"zone": zone}
		if principal := actor.FromContext(r.Context()); principal != nil {
			payload["role"] = principal.Role
			payload["links"] = policy.NavLinks(principal.Role)
			payload["home"] = policy.HomePath(principal.Role)
		}
		httputil.JSON(w, http.StatusOK, payload)
	}
}
