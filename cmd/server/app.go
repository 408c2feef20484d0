package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/config"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/reconciliation"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/lock"
	"stockledger/internal/infrastructure/numerator"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/ncr_repo"
	"stockledger/internal/infrastructure/storage/postgres/period_repo"
	"stockledger/internal/infrastructure/storage/postgres/reconciliation_repo"
	"stockledger/internal/infrastructure/storage/postgres/register_repo"
	"stockledger/pkg/logger"
)

// app holds the wired services of one server process.
type app struct {
	txManager *postgres.TxManager
	redis     *redis.Client

	catalog         *catalog_repo.CatalogRepo
	stock           *stock.Service
	periods         *period.Service
	deliveries      *delivery.Service
	issues          *issue.Service
	transfers       *transfer.Service
	ncrs            *ncr.Service
	reconciliations *reconciliation.Service
}

func buildApp(ctx context.Context, cfg *config.Config, pool *postgres.Pool) (*app, error) {
	txManager := postgres.NewTxManager(pool)
	a := &app{txManager: txManager}

	auditor, err := postgres.NewAuditService(txManager)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	publisher := postgres.NewOutboxPublisher(txManager)
	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	variancePolicy, err := cfg.Variance.Detector()
	if err != nil {
		return nil, err
	}

	var locker period.Locker
	if cfg.Redis.Enabled {
		a.redis, err = lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		locker = lock.NewRedisLocker(a.redis, lock.DefaultOptions())
	}

	// --- Repositories ---
	a.catalog = catalog_repo.NewCatalogRepo(txManager)
	periodRepo := period_repo.NewPeriodRepo(txManager)
	stockRepo := register_repo.NewStockRepo(txManager)
	ncrRepo := ncr_repo.NewNCRRepo(txManager)

	// --- Domain services ---
	a.stock = stock.NewService(stockRepo)
	a.ncrs = ncr.NewService(ncrRepo, numbers, txManager, publisher, auditor)
	a.periods = period.NewService(period.Dependencies{
		Periods:   periodRepo,
		Prices:    periodRepo,
		Approvals: periodRepo,
		Catalog:   a.catalog,
		Stock:     a.stock,
		NCRs:      a.ncrs,
		TxManager: txManager,
		Publisher: publisher,
		Audit:     auditor,
		Locker:    locker,
	})
	a.deliveries = delivery.NewService(delivery.Dependencies{
		Repo:      document_repo.NewDeliveryRepo(txManager),
		Periods:   a.periods,
		Ledger:    a.stock,
		NCRs:      a.ncrs,
		Catalog:   a.catalog,
		Numerator: numbers,
		TxManager: txManager,
		Publisher: publisher,
		Variance:  variancePolicy,
	})
	a.issues = issue.NewService(
		document_repo.NewIssueRepo(txManager),
		a.periods,
		a.stock,
		a.catalog,
		numbers,
		txManager,
	)
	a.transfers = transfer.NewService(
		document_repo.NewTransferRepo(txManager),
		a.periods,
		a.stock,
		a.catalog,
		numbers,
		txManager,
	)
	a.reconciliations = reconciliation.NewService(
		reconciliation_repo.NewReconciliationRepo(txManager),
		document_repo.NewTotalsRepo(txManager),
		a.periods,
		a.stock,
		a.ncrs,
		txManager,
	)
	return a, nil
}

// Close releases the Redis connection, if any. A failure is logged and returned.
func (a *app) Close(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Close(); err != nil {
		logger.Warn(ctx, "failed to close redis client", "error", err)
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

// redisPinger adapts the Redis client to the readiness check.
type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
