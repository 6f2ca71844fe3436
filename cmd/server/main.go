package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/leave-ledger/internal/adapters/grpc/handler"
	"github.com/ogurasousui/leave-ledger/internal/adapters/repository/memory"
	"github.com/ogurasousui/leave-ledger/internal/adapters/repository/postgres"
	"github.com/ogurasousui/leave-ledger/internal/core/document"
	"github.com/ogurasousui/leave-ledger/internal/core/employee"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	"github.com/ogurasousui/leave-ledger/internal/core/leavetype"
	"github.com/ogurasousui/leave-ledger/internal/platform/config"
	pg "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
	"github.com/ogurasousui/leave-ledger/internal/platform/logging"
	"github.com/ogurasousui/leave-ledger/internal/platform/metrics"
	"github.com/ogurasousui/leave-ledger/internal/platform/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, nil)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder := metrics.New(leave.ErrorKind)

	deps, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	leaveTypes := leavetype.NewService(deps.leaveTypes, nil, deps.tx)
	directory := employee.NewDirectory(deps.employees, nil)
	documents := document.NewService(deps.documents, deps.requests, nil, deps.tx, cfg.Leave.MaxDocumentBytes, logger)

	common := []leave.Option{
		leave.WithMetrics(recorder),
		leave.WithLogger(logger),
	}
	ledger := leave.NewLedger(deps.balances, deps.leaveTypes, directory, nil, deps.tx, common...)
	workflow := leave.NewService(deps.requests, ledger, deps.leaveTypes, directory, nil, deps.tx,
		append(common,
			leave.WithNotifier(deps.notifier),
			leave.WithAttachmentPurger(documents),
			leave.WithSystemApprover(cfg.Leave.SystemApprover),
		)...,
	)

	if deps.seed != nil {
		if err := deps.seed.Apply(ctx, directory, leaveTypes); err != nil {
			return err
		}
		logger.Info("seed data applied", "employees", len(deps.seed.Employees), "leave_types", len(deps.seed.LeaveTypes))
	}

	grpcServer := server.New(cfg.Server.ListenAddr, server.Services{
		Leave:     handler.NewLeaveGrpcHandler(workflow, documents),
		LeaveType: handler.NewLeaveTypeGrpcHandler(leaveTypes),
		Employee:  handler.NewEmployeeGrpcHandler(directory),
	}, logger, recorder)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Run(gctx)
	})
	if cfg.Server.OpsAddr != "" {
		ops := server.NewOpsServer(cfg.Server.OpsAddr, server.NewOpsRouter(recorder, deps.ready), cfg.Server.ShutdownTimeout, logger)
		g.Go(func() error {
			return ops.Run(gctx)
		})
	}

	logger.Info("leave ledger started", "storage", cfg.Storage.Driver, "grpc_addr", cfg.Server.ListenAddr, "ops_addr", cfg.Server.OpsAddr)
	return g.Wait()
}

type dependencies struct {
	employees  employee.Repository
	leaveTypes leavetype.Repository
	balances   leave.BalanceRepository
	requests   leave.RequestRepository
	documents  document.Repository
	notifier   leave.Notifier
	tx         txManager
	ready      server.ReadinessFunc
	seed       *memory.Seed
	close      func()
}

// txManager はすべてのコアパッケージの TransactionManager を満たします。
type txManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

func buildDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		deps := &dependencies{
			employees:  memory.NewEmployeeRepository(store),
			leaveTypes: memory.NewLeaveTypeRepository(store),
			balances:   memory.NewBalanceRepository(store),
			requests:   memory.NewRequestRepository(store),
			documents:  memory.NewDocumentRepository(store),
			notifier:   memory.NewOutbox(store),
			tx:         store,
			close:      func() {},
		}
		if cfg.Storage.SeedFile != "" {
			seed, err := memory.LoadSeedFile(cfg.Storage.SeedFile)
			if err != nil {
				return nil, err
			}
			deps.seed = seed
		}
		return deps, nil

	case config.StorageDriverPostgres:
		pool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("initialize database pool: %w", err)
		}
		tx := pg.NewTransactionManager(pool,
			pg.WithRetry(cfg.Database.TxMaxAttempts, leave.IsRetryable),
			pg.WithLogger(logger),
		)
		return &dependencies{
			employees:  postgres.NewEmployeeRepository(pool),
			leaveTypes: postgres.NewLeaveTypeRepository(pool),
			balances:   postgres.NewBalanceRepository(pool),
			requests:   postgres.NewRequestRepository(pool),
			documents:  postgres.NewDocumentRepository(pool),
			notifier:   postgres.NewNotificationRepository(pool),
			tx:         tx,
			ready:      server.ReadinessFunc(pg.ReadinessCheck(pool)),
			close:      pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
