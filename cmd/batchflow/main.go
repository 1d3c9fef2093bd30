package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/batchflow/batchflow/cmd/batchflow/cli"
	"github.com/batchflow/batchflow/internal/app"
	"github.com/batchflow/batchflow/internal/auth"
	"github.com/batchflow/batchflow/internal/delivery/distribution"
	"github.com/batchflow/batchflow/internal/hr/attendance"
	"github.com/batchflow/batchflow/internal/hr/employees"
	"github.com/batchflow/batchflow/internal/inventory/batches"
	"github.com/batchflow/batchflow/internal/inventory/ledger"
	"github.com/batchflow/batchflow/internal/masterdata/products"
	"github.com/batchflow/batchflow/internal/observability"
	"github.com/batchflow/batchflow/internal/platform/cache"
	"github.com/batchflow/batchflow/internal/platform/db"
	"github.com/batchflow/batchflow/internal/sales/clients"
	"github.com/batchflow/batchflow/internal/sales/orders"
	"github.com/batchflow/batchflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "hash-password" {
		return hashPassword(args[1:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			return migrate(cfg, logger, args[1:])
		case "jobs":
			jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
			if err != nil {
				logger.Error("init jobs cli", slog.Any("error", err))
				return 1
			}
			defer jobsCLI.Close()
			return jobsCLI.Run(ctx, args[1:], os.Stdout, os.Stderr)
		case "serve":
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (serve, migrate, jobs, hash-password)\n", args[0])
			return 2
		}
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		return 1
	}
	return 0
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if code := migrate(cfg, logger, []string{"up"}); code != 0 {
			return errors.New("migrate on start failed")
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{Timezone: cfg.DBTimezone, MaxConns: cfg.PGMaxConns})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	loc := cfg.Location()
	lateAfter, err := cfg.LateAfter()
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool), tokens))

	orderService := orders.NewService(orders.NewRepository(dbpool), loc)
	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), metrics)
	orderService.SetRemover(ledgerService)
	distributionService := distribution.NewService(distribution.NewRepository(dbpool), metrics)
	batchService := batches.NewService(batches.NewRepository(dbpool), batches.Config{
		LowStockThreshold: cfg.LowStockThreshold,
		ExpiryWarningDays: cfg.ExpiryWarningDays,
		Location:          loc,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobs.NewSummaryStore(redisClient, 0), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Tokens:              tokens,
		AuthHandler:         authHandler,
		LedgerHandler:       ledger.NewHandler(logger, ledgerService),
		OrdersHandler:       orders.NewHandler(logger, orderService),
		DistributionHandler: distribution.NewHandler(logger, distributionService),
		BatchesHandler:      batches.NewHandler(logger, batchService),
		ClientsHandler:      clients.NewHandler(logger, clients.NewService(clients.NewRepository(dbpool))),
		ProductsHandler:     products.NewHandler(logger, products.NewService(products.NewRepository(dbpool))),
		EmployeesHandler:    employees.NewHandler(logger, employees.NewService(employees.NewRepository(dbpool))),
		AttendanceHandler:   attendance.NewHandler(logger, attendance.NewService(attendance.NewRepository(dbpool), loc, lateAfter)),
		JobHandler:          jobHandler,
		Metrics:             metrics,
		Ready:               readiness(dbpool, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// readiness pings postgres and redis in parallel.
func readiness(pool *pgxpool.Pool, redisClient *redis.Client) func(*http.Request) error {
	return func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return cache.Ping(ctx, redisClient)
		})
		return g.Wait()
	}
}

func migrate(cfg *app.Config, logger *slog.Logger, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: batchflow migrate up|down|version")
		return 2
	}
	m, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		logger.Error("init migrator", slog.Any("error", err))
		return 1
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		version, dirty, verr := m.Version()
		if verr == nil {
			fmt.Fprintf(os.Stdout, "version=%d dirty=%t\n", version, dirty)
		}
		err = verr
	default:
		fmt.Fprintf(os.Stderr, "migrate: unknown direction %q\n", args[0])
		return 2
	}
	if err != nil {
		logger.Error("migrate", slog.String("direction", args[0]), slog.Any("error", err))
		return 1
	}
	return 0
}

func hashPassword(args []string) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: batchflow hash-password <password>")
		return 2
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintln(os.Stdout, hash)
	return 0
}
