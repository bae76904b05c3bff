package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/acme/user-service/internal/config"
	routesystem "github.com/acme/user-service/internal/plugin/route/system"
	storemetrics "github.com/acme/user-service/internal/plugin/store/metrics"
	registrymigrate "github.com/acme/user-service/internal/registry/migrate"
	registryroute "github.com/acme/user-service/internal/registry/route"
	registrystore "github.com/acme/user-service/internal/registry/store"
	"github.com/acme/user-service/internal/route/users"
	"github.com/acme/user-service/internal/service"
	"github.com/acme/user-service/internal/web"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config *config.Config
	Store  registrystore.UserStore
	Router *gin.Engine
	// Port is the actual bound port; differs from Config.Port when 0 was
	// requested (tests).
	Port int

	httpServer *http.Server
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// StartServer initializes all subsystems and starts the HTTP server.
// Use cfg.Port=0 for a random port. Actual port: Server.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting user service",
		"port", cfg.Port,
		"db", cfg.DBKind,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := web.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	web.InitMetrics(metricsLabels)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DBKind)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)

	svc := service.NewUserService(store, cfg.DefaultPageSize, cfg.MaxPageSize)

	// Set up gin. ErrorHandler comes first so it also translates failures
	// raised by the other middleware.
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(web.ErrorHandler())
	if cfg.ManagementAccessLog {
		router.Use(web.AccessLogMiddleware())
	} else {
		router.Use(web.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(web.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))

	// Mount management route plugins (health, readiness, metrics).
	for _, loader := range registryroute.Loaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}

	// Mount the user API.
	auth := web.APIKeyMiddleware(cfg.APIKeys)
	users.MountRoutes(router, svc, auth)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen failed: %w", err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		if err := httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "err", err)
		}
	}()

	port := lis.Addr().(*net.TCPAddr).Port
	log.Info("Server listening", "port", port)

	routesystem.MarkReady()
	return &Server{
		Config:     cfg,
		Store:      store,
		Router:     router,
		Port:       port,
		httpServer: httpServer,
	}, nil
}
