// Package graduation promotes a chain's deployment off the bonding curve and
// onto a DEX pool once its market cap crosses the token's threshold.
// Graduation is terminal: once marked, a deployment never comes back.
package graduation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/curve"
	"github.com/launchforge/curve-middleware/pkg/dexpool"
	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
)

// Result is the non-throwing outcome of a graduation check.
type Result struct {
	Graduated   bool
	PoolAddress string
	TxHash      string
	Message     string
}

// Graduator runs the market-cap graduation state machine
type Graduator struct {
	store       launchstore.Store
	poolCreator dexpool.PoolCreator
	logger      *zap.Logger
	maxTries    int
	retryBase   time.Duration

	mu    sync.Mutex
	tries map[string]*attemptState
}

// attemptState tracks failed pool creations per deployment. It lives in
// memory only; a restart re-attempts an idempotent transition.
type attemptState struct {
	count     int
	notBefore time.Time
}

// NewGraduator creates a graduator
func NewGraduator(store launchstore.Store, poolCreator dexpool.PoolCreator, maxTries int, retryBase time.Duration, logger *zap.Logger) *Graduator {
	return &Graduator{
		store:       store,
		poolCreator: poolCreator,
		logger:      logger,
		maxTries:    maxTries,
		retryBase:   retryBase,
		tries:       make(map[string]*attemptState),
	}
}

// CheckAndGraduate graduates the deployment if its market cap has reached
// the token's threshold. Pool creation failures are retried on later calls
// until the per-deployment attempt budget is spent; the market-cap check
// itself is free and unlimited.
func (g *Graduator) CheckAndGraduate(ctx context.Context, tokenID, chain string) (*Result, error) {
	deployment, err := g.store.GetDeployment(ctx, tokenID, chain)
	if err != nil {
		return nil, err
	}
	if deployment.Graduated {
		return &Result{Graduated: true, PoolAddress: deployment.PoolAddress, Message: "already graduated"}, nil
	}

	params, err := g.store.GetCurveParams(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !params.GraduationEnabled() {
		return &Result{Message: "graduation disabled for token"}, nil
	}
	if deployment.MarketCap.LessThan(params.GraduationThreshold) {
		return &Result{Message: fmt.Sprintf("market cap %s below threshold %s", deployment.MarketCap, params.GraduationThreshold)}, nil
	}

	key := tokenID + "/" + chain
	g.mu.Lock()
	state := g.tries[key]
	g.mu.Unlock()
	if state != nil {
		if state.count >= g.maxTries {
			metrics.ErrorsTotal.WithLabelValues("graduation", "attempts_exhausted").Inc()
			return &Result{Message: fmt.Sprintf("pool creation abandoned after %d attempts", state.count)}, nil
		}
		if time.Now().Before(state.notBefore) {
			return &Result{Message: fmt.Sprintf("pool creation backing off until %s", state.notBefore.Format(time.RFC3339))}, nil
		}
	}

	pool, err := g.poolCreator.CreatePool(ctx, chain, deployment.TokenAddress, deployment.LocalReserve, deployment.LocalSupply)
	if err != nil {
		attempt := g.recordFailedAttempt(key)

		metrics.GraduationsTotal.WithLabelValues("error").Inc()
		g.logger.Error("Pool creation failed",
			zap.String("token_id", tokenID),
			zap.String("chain", chain),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return &Result{Message: fmt.Sprintf("pool creation failed: %v", err)}, nil
	}

	if err := g.store.MarkGraduated(ctx, tokenID, chain, pool.PoolAddress, pool.TxHash); err != nil {
		return nil, err
	}

	g.mu.Lock()
	delete(g.tries, key)
	g.mu.Unlock()

	metrics.GraduationsTotal.WithLabelValues("success").Inc()
	g.logger.Info("Deployment graduated",
		zap.String("token_id", tokenID),
		zap.String("chain", chain),
		zap.String("market_cap", deployment.MarketCap.String()),
		zap.String("pool_address", pool.PoolAddress),
		zap.String("tx_hash", pool.TxHash))

	return &Result{Graduated: true, PoolAddress: pool.PoolAddress, TxHash: pool.TxHash, Message: "graduated"}, nil
}

// recordFailedAttempt bumps the deployment's failure count and pushes the
// next attempt out on the same doubling schedule the bridge retries use.
func (g *Graduator) recordFailedAttempt(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.tries[key]
	if state == nil {
		state = &attemptState{}
		g.tries[key] = state
	}
	delay := g.retryBase
	for i := 0; i < state.count; i++ {
		delay *= 2
	}
	state.count++
	state.notBefore = time.Now().Add(delay)
	return state.count
}

// CheckGraduationStatus reports how far the deployment is from graduating
func (g *Graduator) CheckGraduationStatus(ctx context.Context, tokenID, chain string) (*launch.GraduationStatus, error) {
	deployment, err := g.store.GetDeployment(ctx, tokenID, chain)
	if err != nil {
		return nil, err
	}
	params, err := g.store.GetCurveParams(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	return &launch.GraduationStatus{
		Chain:           chain,
		MarketCap:       deployment.MarketCap,
		Threshold:       params.GraduationThreshold,
		ProgressPercent: curve.GraduationProgress(deployment.MarketCap, params.GraduationThreshold),
		Eligible:        params.GraduationEnabled() && deployment.MarketCap.GreaterThanOrEqual(params.GraduationThreshold),
		Graduated:       deployment.Graduated,
		PoolAddress:     deployment.PoolAddress,
	}, nil
}
