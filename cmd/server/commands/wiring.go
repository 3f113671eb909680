package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/config"
	"github.com/sheikh-saqib/peer-payments/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/peer-payments/internal/interfaces"
	"github.com/sheikh-saqib/peer-payments/internal/ledger"
	"github.com/sheikh-saqib/peer-payments/internal/storage/memory"
	"github.com/sheikh-saqib/peer-payments/internal/storage/postgres"
)

// deps holds everything built from config. close releases it in reverse order.
type deps struct {
	store   interfaces.LedgerStore
	ledger  *ledger.Ledger
	closers []func() error
}

func (d *deps) close(logger *zap.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Warn("error while closing dependency", zap.Error(err))
		}
	}
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return postgres.Open(ctx, cfg.DatabaseURL)
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		d.store = memory.NewMemoryLedgerStore()
	case config.StoreDriverPostgres:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, db.Close)
		if cfg.AutoMigrate {
			if err := postgres.Migrate(db, logger); err != nil {
				d.close(logger)
				return nil, err
			}
		}
		d.store = postgres.NewPostgresLedgerStore(db, logger.Named("store"), cfg.TxMaxRetries)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithHistoryLimit(cfg.HistoryLimit),
	}
	if cfg.PublishingEnabled() {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		d.closers = append(d.closers, publisher.Close)
		opts = append(opts, ledger.WithPublisher(publisher))
		logger.Info("publishing ledger events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	d.ledger = ledger.NewLedger(d.store, opts...)
	return d, nil
}
