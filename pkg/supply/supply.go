// Package supply aggregates per-chain sold supply into the global figure the
// bonding curve prices against.
package supply

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
)

// Service tracks global token supply across chains
type Service struct {
	store  launchstore.Store
	logger *zap.Logger
}

// NewService creates a supply service
func NewService(store launchstore.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// UpdateLocalSupply records a chain's reported sold supply and returns the
// recomputed global supply. The reported value is absolute, not a delta.
func (s *Service) UpdateLocalSupply(ctx context.Context, tokenID, chain string, localSupply decimal.Decimal) (decimal.Decimal, error) {
	if localSupply.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative supply %s for token %s on chain %s", localSupply, tokenID, chain)
	}

	if err := s.store.SetLocalSupply(ctx, tokenID, chain, localSupply); err != nil {
		return decimal.Zero, fmt.Errorf("failed to set local supply: %w", err)
	}

	global, err := s.GlobalSupply(ctx, tokenID)
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("Local supply updated",
		zap.String("token_id", tokenID),
		zap.String("chain", chain),
		zap.String("local_supply", localSupply.String()),
		zap.String("global_supply", global.String()))

	return global, nil
}

// GlobalSupply returns the sum of sold supply across every chain the token is
// deployed on.
func (s *Service) GlobalSupply(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	deployments, err := s.store.ListDeployments(ctx, tokenID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list deployments: %w", err)
	}

	global := decimal.Zero
	for _, d := range deployments {
		global = global.Add(d.LocalSupply)
	}

	gauge, _ := global.Float64()
	metrics.GlobalSupply.WithLabelValues(tokenID).Set(gauge)

	return global, nil
}
