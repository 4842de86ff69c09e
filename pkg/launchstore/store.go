// Package launchstore persists per-chain token deployments, bonding-curve
// parameters and cross-chain liquidity requests. It is the only shared
// mutable state between the engine's periodic loops.
package launchstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/launchforge/curve-middleware/pkg/launch"
)

var (
	ErrDeploymentNotFound  = errors.New("deployment not found")
	ErrDeploymentExists    = errors.New("deployment already exists for token and chain")
	ErrCurveParamsNotFound = errors.New("curve params not found")
	ErrRequestNotFound     = errors.New("liquidity request not found")
)

// Store defines the persistence operations consumed by the engine components.
type Store interface {
	CreateDeployment(ctx context.Context, d *launch.Deployment) error
	GetDeployment(ctx context.Context, tokenID, chain string) (*launch.Deployment, error)
	ListDeployments(ctx context.Context, tokenID string) ([]*launch.Deployment, error)
	ListTokens(ctx context.Context) ([]string, error)

	SetLocalSupply(ctx context.Context, tokenID, chain string, supply decimal.Decimal) error
	SetMarketCap(ctx context.Context, tokenID, chain string, marketCap decimal.Decimal) error
	AdjustLocalReserve(ctx context.Context, tokenID, chain string, delta decimal.Decimal) error
	MarkGraduated(ctx context.Context, tokenID, chain, poolAddress, txHash string) error

	GetCurveParams(ctx context.Context, tokenID string) (*launch.CurveParams, error)
	SetCurveParams(ctx context.Context, p *launch.CurveParams) error

	CreateLiquidityRequest(ctx context.Context, r *launch.LiquidityRequest) error
	GetLiquidityRequest(ctx context.Context, requestID string) (*launch.LiquidityRequest, error)
	ListUnsettledRequests(ctx context.Context) ([]*launch.LiquidityRequest, error)
	MarkRequestBridging(ctx context.Context, requestID, sourceTxHash string) error
	MarkRequestCompleted(ctx context.Context, requestID, destTxHash string) error
	MarkRequestFailed(ctx context.Context, requestID, message string) error
	RecordRequestAttempt(ctx context.Context, requestID string, nextAttempt time.Time, message string) error
}
