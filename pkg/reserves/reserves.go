// Package reserves derives the per-chain collateral picture of a token from
// its stored deployments.
package reserves

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/curve"
	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
)

// Monitor classifies per-chain reserves against their ideal allocation
type Monitor struct {
	store  launchstore.Store
	logger *zap.Logger
}

// NewMonitor creates a reserve monitor
func NewMonitor(store launchstore.Store, logger *zap.Logger) *Monitor {
	return &Monitor{
		store:  store,
		logger: logger,
	}
}

// CheckResult reports whether a chain can cover a required amount.
type CheckResult struct {
	Sufficient     bool
	CurrentReserve decimal.Decimal
	RequiredAmount decimal.Decimal
}

// MonitorReserves returns one snapshot per chain the token is deployed on.
// Each chain's ideal reserve is proportional to its share of global supply.
func (m *Monitor) MonitorReserves(ctx context.Context, tokenID string) ([]*launch.ReserveSnapshot, error) {
	deployments, err := m.store.ListDeployments(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	totalReserve := decimal.Zero
	totalSupply := decimal.Zero
	for _, d := range deployments {
		totalReserve = totalReserve.Add(d.LocalReserve)
		totalSupply = totalSupply.Add(d.LocalSupply)
	}

	snapshots := make([]*launch.ReserveSnapshot, 0, len(deployments))
	for _, d := range deployments {
		ideal := curve.IdealReserve(totalReserve, d.LocalSupply, totalSupply, len(deployments))
		status := curve.ClassifyReserve(d.LocalReserve, ideal)

		snapshots = append(snapshots, &launch.ReserveSnapshot{
			Chain:        d.Chain,
			Reserve:      d.LocalReserve,
			IdealReserve: ideal,
			MinReserve:   curve.MinReserve(ideal),
			Status:       status,
		})

		metrics.ReserveStatus.WithLabelValues(tokenID, d.Chain).Set(metrics.ReserveStatusValue(string(status)))

		if status != launch.ReserveSufficient {
			m.logger.Warn("Chain reserve below minimum",
				zap.String("token_id", tokenID),
				zap.String("chain", d.Chain),
				zap.String("reserve", d.LocalReserve.String()),
				zap.String("ideal", ideal.String()),
				zap.String("status", string(status)))
		}
	}

	return snapshots, nil
}

// CheckReserves reports whether one chain's reserve covers a required amount
func (m *Monitor) CheckReserves(ctx context.Context, tokenID, chain string, required decimal.Decimal) (*CheckResult, error) {
	deployment, err := m.store.GetDeployment(ctx, tokenID, chain)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	return &CheckResult{
		Sufficient:     deployment.LocalReserve.GreaterThanOrEqual(required),
		CurrentReserve: deployment.LocalReserve,
		RequiredAmount: required,
	}, nil
}
