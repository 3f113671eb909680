package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	interfaces "github.com/sheikh-saqib/peer-payments/internal/interfaces"
)

const (
	tracerName          = "github.com/sheikh-saqib/peer-payments/internal/ledger"
	DefaultHistoryLimit = 20
	DefaultSearchLimit  = 20
)

// Ledger moves money between accounts and drives money requests.
// All balance changes go through the store's atomic transaction.
type Ledger struct {
	store        interfaces.LedgerStore
	directory    *Directory
	publisher    interfaces.EventPublisher
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
	newID        func() string
	historyLimit int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher sets where post-commit events go. Without it nothing is published.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithLogger sets the operation logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock replaces time.Now for entry, request and resolution timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the uuid generator for transfer and request ids.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithHistoryLimit sets the page size History uses when no limit is given.
func WithHistoryLimit(limit int) Option {
	return func(l *Ledger) {
		if limit > 0 {
			l.historyLimit = limit
		}
	}
}

// NewLedger creates a Ledger on top of store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:        store,
		directory:    NewDirectory(store),
		logger:       zap.NewNop(),
		tracer:       otel.Tracer(tracerName),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Directory exposes the email lookup used by the ledger.
func (l *Ledger) Directory() *Directory {
	return l.directory
}

func (l *Ledger) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "ledger."+name)
}

// finish records err on span and turns unexpected failures into an internal
// error with a generic message. Expected kinds pass through unchanged.
func (l *Ledger) finish(span trace.Span, op string, err error, fields ...zap.Field) error {
	defer span.End()
	if err == nil {
		return nil
	}

	kind := apperr.KindOf(err)
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.code", kind.GRPCCode().String()))
	span.SetStatus(codes.Error, err.Error())

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
		l.logger.Info(op+" rejected", append(fields, zap.String("kind", string(appErr.Kind)), zap.Error(err))...)
		return err
	}

	l.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	if appErr != nil {
		return appErr
	}
	return apperr.Internal("an error occurred while processing "+op, err)
}

func (l *Ledger) publish(ctx context.Context, name, key string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, name, key, event); err != nil {
		l.logger.Warn("failed to publish event", zap.String("event", name), zap.String("key", key), zap.Error(err))
	}
}
