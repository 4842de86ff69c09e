// Package engine runs the periodic synchronization loops: the monitor loop
// keeps price, graduation and reserve allocation current per token, the
// audit loop checks cross-chain price drift and settles open bridge
// transfers.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/config"
	"github.com/launchforge/curve-middleware/pkg/graduation"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
	"github.com/launchforge/curve-middleware/pkg/pricesync"
	"github.com/launchforge/curve-middleware/pkg/rebalancer"
)

// Engine drives the synchronization loops over every tracked token
type Engine struct {
	store      launchstore.Store
	syncer     *pricesync.Syncer
	graduator  *graduation.Graduator
	rebalancer *rebalancer.Rebalancer
	cfg        config.EngineConfig
	logger     *zap.Logger

	locks  *keyedMutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates an engine
func New(store launchstore.Store, syncer *pricesync.Syncer, graduator *graduation.Graduator, rb *rebalancer.Rebalancer, cfg config.EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:      store,
		syncer:     syncer,
		graduator:  graduator,
		rebalancer: rb,
		cfg:        cfg,
		logger:     logger,
		locks:      newKeyedMutex(),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the monitor and audit loops
func (e *Engine) Start() {
	e.wg.Add(2)

	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.MonitorInterval)
		defer ticker.Stop()

		e.logger.Info("Started monitor loop", zap.Duration("interval", e.cfg.MonitorInterval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), e.cfg.MonitorInterval)
				if err := e.Tick(ctx); err != nil {
					e.logger.Error("Monitor tick failed", zap.Error(err))
				}
				cancel()
			case <-e.stopCh:
				e.logger.Info("Stopping monitor loop")
				return
			}
		}
	}()

	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.DeviationInterval)
		defer ticker.Stop()

		e.logger.Info("Started audit loop", zap.Duration("interval", e.cfg.DeviationInterval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DeviationInterval)
				if err := e.Audit(ctx); err != nil {
					e.logger.Error("Audit tick failed", zap.Error(err))
				}
				cancel()
			case <-e.stopCh:
				e.logger.Info("Stopping audit loop")
				return
			}
		}
	}()
}

// Stop stops both loops and waits for in-flight ticks to finish
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

// Tick runs one monitor pass over every token: price sync first so market
// caps are current, then graduation, then rebalancing. One broken token does
// not block the others.
func (e *Engine) Tick(ctx context.Context) error {
	tokens, err := e.store.ListTokens(ctx)
	if err != nil {
		return err
	}

	for _, tokenID := range tokens {
		start := time.Now()
		e.locks.Lock(tokenID)
		if err := e.tickToken(ctx, tokenID); err != nil {
			e.logger.Warn("Token tick failed",
				zap.String("token_id", tokenID),
				zap.Error(err))
			metrics.ErrorsTotal.WithLabelValues("engine", "tick").Inc()
		}
		e.locks.Unlock(tokenID)
		metrics.TickDuration.WithLabelValues("monitor").Observe(time.Since(start).Seconds())
	}
	return nil
}

func (e *Engine) tickToken(ctx context.Context, tokenID string) error {
	if _, err := e.syncer.SyncPrice(ctx, tokenID); err != nil {
		return err
	}

	deployments, err := e.store.ListDeployments(ctx, tokenID)
	if err != nil {
		return err
	}
	for _, d := range deployments {
		if d.Graduated {
			continue
		}
		if _, err := e.graduator.CheckAndGraduate(ctx, tokenID, d.Chain); err != nil {
			e.logger.Warn("Graduation check failed",
				zap.String("token_id", tokenID),
				zap.String("chain", d.Chain),
				zap.Error(err))
		}
	}

	if _, err := e.rebalancer.CheckAndRebalance(ctx, tokenID); err != nil {
		return err
	}
	return nil
}

// Audit runs one drift-and-settlement pass across all tokens
func (e *Engine) Audit(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.TickDuration.WithLabelValues("audit").Observe(time.Since(start).Seconds())
	}()

	tokens, err := e.store.ListTokens(ctx)
	if err != nil {
		return err
	}

	for _, tokenID := range tokens {
		if _, err := e.syncer.CheckDeviation(ctx, tokenID, e.cfg.DeviationTolerance); err != nil {
			e.logger.Warn("Deviation check failed",
				zap.String("token_id", tokenID),
				zap.Error(err))
		}
	}

	return e.rebalancer.SettleRequests(ctx)
}
