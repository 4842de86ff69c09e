package rebalancer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/launchforge/curve-middleware/pkg/evm"
)

// Bridger is the chain-side surface the rebalancer needs, keyed by chain
// name. A chain that cannot bridge (no contract or signer configured) makes
// the rebalancer fall back to store-only adjustments.
type Bridger interface {
	CanBridge(chain string) bool
	RequestLiquidity(ctx context.Context, chain, tokenID, counterparty string, amount decimal.Decimal) (requestID, txHash string, err error)
	FulfillRequest(ctx context.Context, chain, requestID string, amount decimal.Decimal) (txHash string, err error)
	RequestFulfilled(ctx context.Context, chain, requestID string) (fulfilled bool, txHash string, err error)
}

type registryBridger struct {
	registry *evm.Registry
}

// NewRegistryBridger adapts a chain client registry into a Bridger.
func NewRegistryBridger(registry *evm.Registry) Bridger {
	return &registryBridger{registry: registry}
}

func (b *registryBridger) CanBridge(chain string) bool {
	client, err := b.registry.Get(chain)
	if err != nil {
		return false
	}
	return client.CanBridge()
}

func (b *registryBridger) RequestLiquidity(ctx context.Context, chain, tokenID, counterparty string, amount decimal.Decimal) (string, string, error) {
	client, err := b.registry.Get(chain)
	if err != nil {
		return "", "", err
	}
	return client.RequestLiquidity(ctx, tokenID, counterparty, amount)
}

func (b *registryBridger) FulfillRequest(ctx context.Context, chain, requestID string, amount decimal.Decimal) (string, error) {
	client, err := b.registry.Get(chain)
	if err != nil {
		return "", err
	}
	return client.FulfillRequest(ctx, requestID, amount)
}

func (b *registryBridger) RequestFulfilled(ctx context.Context, chain, requestID string) (bool, string, error) {
	client, err := b.registry.Get(chain)
	if err != nil {
		return false, "", err
	}
	return client.RequestFulfilled(ctx, requestID)
}
