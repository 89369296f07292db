package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/access"
	accessPostgres "github.com/keswickschool/budget-dashboard/internal/access/postgres"
	"github.com/keswickschool/budget-dashboard/internal/auth"
	authPostgres "github.com/keswickschool/budget-dashboard/internal/auth/postgres"
	"github.com/keswickschool/budget-dashboard/internal/budget"
	budgetPostgres "github.com/keswickschool/budget-dashboard/internal/budget/postgres"
	"github.com/keswickschool/budget-dashboard/internal/cache"
	"github.com/keswickschool/budget-dashboard/internal/core/events"
	"github.com/keswickschool/budget-dashboard/internal/dashboard"
	dashboardPostgres "github.com/keswickschool/budget-dashboard/internal/dashboard/postgres"
	"github.com/keswickschool/budget-dashboard/internal/pacing"
	"github.com/keswickschool/budget-dashboard/internal/report"
	"github.com/keswickschool/budget-dashboard/internal/tac"
	tacPostgres "github.com/keswickschool/budget-dashboard/internal/tac/postgres"
	"github.com/keswickschool/budget-dashboard/internal/transport/rest"
	"github.com/keswickschool/budget-dashboard/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to serve the dashboard API`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	logger.Init(os.Getenv("APP_ENV"))

	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	log := logger.L()
	memCache := cache.New()
	bus := events.NewEventBus(log)

	// access resolution + audit trail
	directoryRepo := accessPostgres.NewDirectoryRepository(gormDB)
	accessPostgres.NewAccessLogWriter(gormDB, log).Register(bus)
	resolver := access.NewResolver(directoryRepo, memCache, bus, config.Cache.MediumTTL, log)

	// budget + pacing
	budgetRepo := budgetPostgres.NewBudgetRepository(gormDB)
	aggregator := budget.NewAggregator(budgetRepo, log)
	pacingEngine := pacing.NewEngine(config.Fiscal, log)

	// TAC fee model
	enrollmentRepo := tacPostgres.NewEnrollmentRepository(gormDB)
	tacService, err := tac.NewService(config.TAC, enrollmentRepo, budgetRepo, bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fee model: %w", err)
	}

	// enrollment edits invalidate the derived aggregates
	bus.Subscribe(events.EventEnrollmentUpdated, func(ctx context.Context, event events.Event) error {
		memCache.DeletePrefix("tac:")
		memCache.DeletePrefix("dashboard:")
		return nil
	})

	// dashboard composition behind the resilience guard
	settingsRepo := dashboardPostgres.NewSettingsRepository(gormDB, config.Dashboard.DemoModeDefault)
	composer := dashboard.NewComposer(resolver, aggregator, pacingEngine, tacService,
		settingsRepo, memCache, config.Cache, config.Dashboard, log)
	dashboardService := dashboard.NewResilienceWrapper(composer, log)

	reportService := report.NewService(budgetRepo, log)

	// auth
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
	)
	if config.Security.AccessTokenDuration > 0 {
		tokenGen.AccessTokenTTL = config.Security.AccessTokenDuration
	}
	if config.Security.RefreshTokenDuration > 0 {
		tokenGen.RefreshTokenTTL = config.Security.RefreshTokenDuration
	}
	authService := auth.NewService(authPostgres.NewCredentialRepository(gormDB), tokenGen, config.Security.BCryptCost)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterDeps{
		DB:               db.DB,
		Settings:         settingsRepo,
		Resolver:         resolver,
		AuthHandler:      auth.NewHandler(authService),
		DashboardHandler: dashboard.NewHandler(dashboardService, settingsRepo, bus),
		TACHandler:       tac.NewHandler(tacService),
		ReportHandler:    report.NewHandler(reportService),
		AllowedOrigins:   config.Server.AllowedOrigins,
		Logger:           log,
	})

	return &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
