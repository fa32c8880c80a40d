// Package index maintains the order and subscription index: it builds rows
// from current record state, upserts them, propagates customer profile
// changes, and decides which attribute changes need a recompute.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/metrics"
	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/store"
)

// EngineConfig contains the collaborators of an Engine.
type EngineConfig struct {
	// Store holds the index tables.
	Store *store.Store

	// Source reads current record attributes.
	Source record.AttributeSource

	// Customers resolves user ids. Wrap it in a CachedResolver to cache.
	Customers record.CustomerResolver

	// Links lists subscriptions of an order (optional).
	Links record.SubscriptionLinker

	// Now is the clock used during checkout (optional, defaults to time.Now).
	Now func() time.Time

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Engine recomputes index rows and answers lookups against the index.
// Construct one per process and pass it to every consumer.
type Engine struct {
	store     *store.Store
	source    record.AttributeSource
	customers record.CustomerResolver
	links     record.SubscriptionLinker
	builder   *Builder
	logger    *slog.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, coierrors.InternalError("index engine requires a store", nil)
	}
	if cfg.Source == nil {
		return nil, coierrors.InternalError("index engine requires an attribute source", nil)
	}
	if cfg.Customers == nil {
		return nil, coierrors.InternalError("index engine requires a customer resolver", nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     cfg.Store,
		source:    cfg.Source,
		customers: cfg.Customers,
		links:     cfg.Links,
		builder:   NewBuilder(cfg.Now),
		logger:    logger,
	}, nil
}

// Recompute rebuilds every index row derived from record id: its order row,
// its subscription row when it is a subscription, and the rows of all
// subscriptions linked to it when it is an order.
//
// Failures are logged and returned; nothing is retried here.
func (e *Engine) Recompute(ctx context.Context, id int64) error {
	kind, err := e.recomputeRecord(ctx, id)
	if err != nil {
		return err
	}
	if kind != record.KindOrder || e.links == nil {
		return nil
	}

	subs, err := e.links.SubscriptionsForOrder(ctx, id)
	if err != nil {
		e.logger.Warn("subscription_links_failed",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()))
		return fmt.Errorf("list subscriptions for order %d: %w", id, err)
	}

	var errs []error
	for _, sid := range subs {
		if sid == id {
			continue
		}
		if _, err := e.recomputeRecord(ctx, sid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recomputeRecord rebuilds the rows of one record without following links.
func (e *Engine) recomputeRecord(ctx context.Context, id int64) (record.Kind, error) {
	kind, attrs, ok, err := e.source.Record(ctx, id)
	if err != nil {
		metrics.RecomputesTotal.WithLabelValues("unknown", "error").Inc()
		return "", coierrors.StoreReadError("read source record", err).
			WithDetail("record_id", fmt.Sprint(id))
	}
	if !ok {
		metrics.RecomputesTotal.WithLabelValues("unknown", "missing").Inc()
		return "", coierrors.RecordNotFound(id)
	}
	if !kind.Valid() {
		metrics.RecomputesTotal.WithLabelValues(string(kind), "skipped").Inc()
		return kind, nil
	}

	snap, err := e.snapshot(ctx, id, kind, attrs)
	if err != nil {
		metrics.RecomputesTotal.WithLabelValues(string(kind), "error").Inc()
		return kind, err
	}

	if err := e.store.UpsertOrder(ctx, e.builder.OrderRow(snap)); err != nil {
		e.logUpsertFailure(e.store.OrderTable().Name, id, err)
		metrics.RecomputesTotal.WithLabelValues(string(kind), "error").Inc()
		return kind, err
	}
	if row, ok := e.builder.SubscriptionRow(ctx, snap); ok {
		if err := e.store.UpsertSubscription(ctx, row); err != nil {
			e.logUpsertFailure(e.store.SubscriptionTable().Name, id, err)
			metrics.RecomputesTotal.WithLabelValues(string(kind), "error").Inc()
			return kind, err
		}
	}

	metrics.RecomputesTotal.WithLabelValues(string(kind), "ok").Inc()
	return kind, nil
}

func (e *Engine) snapshot(ctx context.Context, id int64, kind record.Kind, attrs record.Attributes) (record.Snapshot, error) {
	snap := record.NewSnapshot(id, kind, attrs)
	if snap.Order.CustomerID == 0 {
		return snap, nil
	}

	customer, ok, err := e.customers.Customer(ctx, snap.Order.CustomerID)
	if err != nil {
		return snap, coierrors.StoreReadError("resolve customer", err).
			WithDetail("user_id", fmt.Sprint(snap.Order.CustomerID))
	}
	if ok {
		snap.Customer = &customer
	} else {
		e.logger.Debug("customer_unresolved",
			slog.Int64("record_id", id),
			slog.Int64("user_id", snap.Order.CustomerID))
	}
	return snap, nil
}

func (e *Engine) logUpsertFailure(table string, id int64, err error) {
	e.logger.Warn("index_upsert_failed",
		slog.String("table", table),
		slog.Int64("record_id", id),
		slog.String("error", err.Error()))
}

// UpdateCustomer copies the current email and name of userID onto every
// order row the user owns. Billing and shipping columns are untouched.
// A user that cannot be resolved leaves the index as it is.
func (e *Engine) UpdateCustomer(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	if c, ok := e.customers.(interface{ Remove(int64) }); ok {
		c.Remove(userID)
	}

	customer, ok, err := e.customers.Customer(ctx, userID)
	if err != nil {
		return coierrors.StoreReadError("resolve customer", err).
			WithDetail("user_id", fmt.Sprint(userID))
	}
	if !ok {
		e.logger.Debug("customer_unresolved", slog.Int64("user_id", userID))
		return nil
	}

	n, err := e.store.UpdateCustomer(ctx, userID,
		normalize(customer.Email), fullName(customer.FirstName, customer.LastName))
	if err != nil {
		e.logger.Warn("index_customer_update_failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
		return err
	}
	e.logger.Debug("index_customer_updated",
		slog.Int64("user_id", userID),
		slog.Int64("rows", n))
	return nil
}

// OrderCustomer returns the customer of an order, 0 for guests.
func (e *Engine) OrderCustomer(ctx context.Context, orderID int64) (int64, error) {
	return e.store.OrderCustomer(ctx, orderID)
}

// CustomersOrders returns the ids of the user's records of kind, newest
// first. Guests (userID 0) always get an empty slice.
func (e *Engine) CustomersOrders(ctx context.Context, userID int64, kind record.Kind) ([]int64, error) {
	return e.store.CustomersOrders(ctx, userID, string(kind))
}

// GuestOrders returns every indexed record without a customer.
func (e *Engine) GuestOrders(ctx context.Context) ([]int64, error) {
	return e.store.GuestOrders(ctx)
}

// CustomerOrderCount returns how many orders the user placed.
func (e *Engine) CustomerOrderCount(ctx context.Context, userID int64) (int, error) {
	ids, err := e.CustomersOrders(ctx, userID, record.KindOrder)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CustomerLastOrder returns the user's most recent order id, 0 if none.
func (e *Engine) CustomerLastOrder(ctx context.Context, userID int64) (int64, error) {
	return e.store.LastOrder(ctx, userID, string(record.KindOrder))
}

// Store returns the index store.
func (e *Engine) Store() *store.Store {
	return e.store
}
