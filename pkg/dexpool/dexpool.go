// Package dexpool creates DEX liquidity pools for graduated tokens.
package dexpool

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/evm"
)

// Result identifies the pool created for a graduated token.
type Result struct {
	PoolAddress string
	TxHash      string
}

// PoolCreator creates a DEX pool on a chain, seeded with both the reserve
// and the token side of the pair. Implementations must be all-or-nothing: a
// non-nil Result means the pool exists on chain.
type PoolCreator interface {
	CreatePool(ctx context.Context, chain, tokenAddress string, reserveAmount, tokenAmount decimal.Decimal) (*Result, error)
}

type evmCreator struct {
	registry *evm.Registry
	logger   *zap.Logger
}

// NewEVMCreator returns a PoolCreator backed by the chains' pool factory
// contracts.
func NewEVMCreator(registry *evm.Registry, logger *zap.Logger) PoolCreator {
	return &evmCreator{
		registry: registry,
		logger:   logger,
	}
}

func (c *evmCreator) CreatePool(ctx context.Context, chain, tokenAddress string, reserveAmount, tokenAmount decimal.Decimal) (*Result, error) {
	client, err := c.registry.Get(chain)
	if err != nil {
		return nil, err
	}
	if !client.CanGraduate() {
		return nil, fmt.Errorf("chain %s has no pool factory or signer configured", chain)
	}

	poolAddress, txHash, err := client.CreatePool(ctx, tokenAddress, reserveAmount, tokenAmount)
	if err != nil {
		metrics.TransactionsSent.WithLabelValues(chain, "create_pool", "error").Inc()
		return nil, err
	}
	metrics.TransactionsSent.WithLabelValues(chain, "create_pool", "success").Inc()

	c.logger.Info("DEX pool created",
		zap.String("chain", chain),
		zap.String("token_address", tokenAddress),
		zap.String("pool_address", poolAddress),
		zap.String("tx_hash", txHash))

	return &Result{PoolAddress: poolAddress, TxHash: txHash}, nil
}
