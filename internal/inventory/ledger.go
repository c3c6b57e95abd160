package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/bizledger/internal/domain"
	"github.com/yourorg/bizledger/internal/observability/metrics"
	"github.com/yourorg/bizledger/internal/reliability/retry"
	"github.com/yourorg/bizledger/internal/stockfeed"
)

// Publisher receives committed stock changes. Nil disables publishing.
type Publisher interface {
	Publish(ev stockfeed.StockEvent)
}

// Ledger owns the stock-quantity invariants: stock never goes negative, every
// adjustment is atomic per product, and a batch applies fully or not at all.
// All stock mutation in the system funnels through here.
type Ledger struct {
	products domain.ProductRepository
	feed     Publisher
	watchers []Publisher
	logger   *slog.Logger
	retryCfg *retry.Config
}

// NewLedger creates a ledger over the product store. maxAttempts bounds the
// retries spent on transient store conflicts before giving up with a
// retriable persistence failure.
func NewLedger(products domain.ProductRepository, feed Publisher, logger *slog.Logger, maxAttempts int) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	cfg.ShouldRetry = domain.IsRetriable
	return &Ledger{
		products: products,
		feed:     feed,
		logger:   logger,
		retryCfg: cfg,
	}
}

// Watch registers an additional receiver for committed stock changes. Not safe
// to call once adjustments are flowing; wire watchers at startup.
func (l *Ledger) Watch(p Publisher) {
	l.watchers = append(l.watchers, p)
}

// Adjust atomically adds delta to one product's stock and returns the new
// level. Fails with NotFound if the product does not exist for the business,
// and with InsufficientStock if the result would be negative.
func (l *Ledger) Adjust(ctx context.Context, scope domain.BusinessScope, productID string, delta int) (int, error) {
	levels, err := l.AdjustBatch(ctx, scope, []domain.StockDelta{{ProductID: productID, Delta: delta}})
	if err != nil {
		return 0, err
	}
	return levels[0].Stock, nil
}

// AdjustBatch applies every delta or none. Transient store conflicts are
// retried with backoff up to the configured bound; afterwards the failure is
// surfaced as a retriable persistence error rather than hanging.
func (l *Ledger) AdjustBatch(ctx context.Context, scope domain.BusinessScope, deltas []domain.StockDelta) ([]domain.StockLevel, error) {
	if len(deltas) == 0 {
		return nil, domain.NewValidationError("deltas", "at least one stock adjustment is required")
	}

	levels, err := retry.Do(ctx, l.retryCfg, l.logger, "adjust stock batch",
		func(ctx context.Context) ([]domain.StockLevel, error) {
			return l.products.AdjustStockBatch(ctx, scope, deltas)
		})
	if err != nil {
		metrics.ObserveStockAdjustment(adjustmentResult(err))
		return nil, err
	}

	metrics.ObserveStockAdjustment("applied")
	l.publish(scope, deltas, levels)
	return levels, nil
}

func (l *Ledger) publish(scope domain.BusinessScope, deltas []domain.StockDelta, levels []domain.StockLevel) {
	if l.feed == nil && len(l.watchers) == 0 {
		return
	}
	byProduct := make(map[string]int, len(deltas))
	for _, d := range deltas {
		byProduct[d.ProductID] += d.Delta
	}
	now := time.Now()
	for _, lvl := range levels {
		ev := stockfeed.StockEvent{
			BusinessID: scope.BusinessID(),
			ProductID:  lvl.ProductID,
			Delta:      byProduct[lvl.ProductID],
			Stock:      lvl.Stock,
			At:         now,
		}
		if l.feed != nil {
			l.feed.Publish(ev)
		}
		for _, w := range l.watchers {
			w.Publish(ev)
		}
	}
}

func adjustmentResult(err error) string {
	switch {
	case domain.IsInsufficientStock(err):
		return "insufficient_stock"
	case domain.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
