package rebalancer

import (
	"context"

	"github.com/shopspring/decimal"
)

// MockBridger is a mock implementation of Bridger
type MockBridger struct {
	CanBridgeFunc        func(chain string) bool
	RequestLiquidityFunc func(ctx context.Context, chain, tokenID, counterparty string, amount decimal.Decimal) (string, string, error)
	FulfillRequestFunc   func(ctx context.Context, chain, requestID string, amount decimal.Decimal) (string, error)
	RequestFulfilledFunc func(ctx context.Context, chain, requestID string) (bool, string, error)
}

func (m *MockBridger) CanBridge(chain string) bool {
	if m.CanBridgeFunc != nil {
		return m.CanBridgeFunc(chain)
	}
	return true
}

func (m *MockBridger) RequestLiquidity(ctx context.Context, chain, tokenID, counterparty string, amount decimal.Decimal) (string, string, error) {
	if m.RequestLiquidityFunc != nil {
		return m.RequestLiquidityFunc(ctx, chain, tokenID, counterparty, amount)
	}
	return "0xreq", "0xreqtx", nil
}

func (m *MockBridger) FulfillRequest(ctx context.Context, chain, requestID string, amount decimal.Decimal) (string, error) {
	if m.FulfillRequestFunc != nil {
		return m.FulfillRequestFunc(ctx, chain, requestID, amount)
	}
	return "0xsrctx", nil
}

func (m *MockBridger) RequestFulfilled(ctx context.Context, chain, requestID string) (bool, string, error) {
	if m.RequestFulfilledFunc != nil {
		return m.RequestFulfilledFunc(ctx, chain, requestID)
	}
	return false, "", nil
}
