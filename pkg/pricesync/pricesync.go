// Package pricesync recomputes the global curve price and pushes the derived
// market caps back onto every chain row, then audits the result for drift.
package pricesync

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/curve"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
	"github.com/launchforge/curve-middleware/pkg/supply"
)

// Syncer synchronizes the curve price across chains
type Syncer struct {
	store  launchstore.Store
	supply *supply.Service
	logger *zap.Logger
}

// NewSyncer creates a price syncer
func NewSyncer(store launchstore.Store, supplySvc *supply.Service, logger *zap.Logger) *Syncer {
	return &Syncer{
		store:  store,
		supply: supplySvc,
		logger: logger,
	}
}

// DeviationReport is the outcome of one cross-chain price audit.
type DeviationReport struct {
	TokenID    string
	MeanPrice  float64
	Deviation  float64
	Flagged    bool
	ChainsUsed int
}

// SyncPrice recomputes the token's price from global supply and persists the
// implied market cap of every chain. A single chain failing to persist does
// not abort the sync for the others.
func (s *Syncer) SyncPrice(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	params, err := s.store.GetCurveParams(ctx, tokenID)
	if err != nil {
		metrics.PriceSyncsTotal.WithLabelValues("error").Inc()
		return decimal.Zero, fmt.Errorf("failed to get curve params: %w", err)
	}

	global, err := s.supply.GlobalSupply(ctx, tokenID)
	if err != nil {
		metrics.PriceSyncsTotal.WithLabelValues("error").Inc()
		return decimal.Zero, err
	}

	price := curve.Price(params, global)

	deployments, err := s.store.ListDeployments(ctx, tokenID)
	if err != nil {
		metrics.PriceSyncsTotal.WithLabelValues("error").Inc()
		return decimal.Zero, fmt.Errorf("failed to list deployments: %w", err)
	}

	for _, d := range deployments {
		marketCap := curve.MarketCap(price, d.LocalSupply)
		if err := s.store.SetMarketCap(ctx, tokenID, d.Chain, marketCap); err != nil {
			s.logger.Warn("Failed to persist market cap",
				zap.String("token_id", tokenID),
				zap.String("chain", d.Chain),
				zap.Error(err))
			metrics.ErrorsTotal.WithLabelValues("pricesync", "persist").Inc()
			continue
		}
	}

	s.logger.Debug("Price synchronized",
		zap.String("token_id", tokenID),
		zap.String("global_supply", global.String()),
		zap.String("price", price.String()))

	metrics.PriceSyncsTotal.WithLabelValues("success").Inc()
	return price, nil
}

// CheckDeviation computes the coefficient of variation of the per-chain
// implied prices (market cap over local supply). Chains with zero supply
// carry no price signal and are skipped. The report is flagged when the
// deviation exceeds tolerance.
func (s *Syncer) CheckDeviation(ctx context.Context, tokenID string, tolerance float64) (*DeviationReport, error) {
	deployments, err := s.store.ListDeployments(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	prices := make([]float64, 0, len(deployments))
	for _, d := range deployments {
		if !d.LocalSupply.IsPositive() {
			continue
		}
		implied, _ := d.MarketCap.Div(d.LocalSupply).Float64()
		prices = append(prices, implied)
	}

	report := &DeviationReport{TokenID: tokenID, ChainsUsed: len(prices)}
	if len(prices) < 2 {
		metrics.PriceDeviation.WithLabelValues(tokenID).Set(0)
		return report, nil
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	report.MeanPrice = mean

	if mean == 0 {
		metrics.PriceDeviation.WithLabelValues(tokenID).Set(0)
		return report, nil
	}

	var variance float64
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(prices))
	report.Deviation = math.Sqrt(variance) / mean

	metrics.PriceDeviation.WithLabelValues(tokenID).Set(report.Deviation)

	if report.Deviation > tolerance {
		report.Flagged = true
		s.logger.Warn("Cross-chain price deviation above tolerance",
			zap.String("token_id", tokenID),
			zap.Float64("deviation", report.Deviation),
			zap.Float64("tolerance", tolerance))
	}

	return report, nil
}
