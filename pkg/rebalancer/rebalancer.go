// Package rebalancer moves reserve from over-collateralized chains to
// underfunded ones through the bridge handshake, falling back to store-only
// adjustments when a chain cannot bridge.
package rebalancer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/internal/metrics"
	"github.com/launchforge/curve-middleware/pkg/curve"
	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
	"github.com/launchforge/curve-middleware/pkg/reserves"
)

// Result is the non-throwing outcome of a rebalance operation. A failed
// transfer is reported here, not as an error: errors are reserved for broken
// infrastructure (store or chain registry).
type Result struct {
	Success   bool
	RequestID string
	Message   string
}

// Rebalancer orchestrates cross-chain liquidity transfers
type Rebalancer struct {
	store       launchstore.Store
	monitor     *reserves.Monitor
	bridger     Bridger
	logger      *zap.Logger
	maxAttempts int
	retryBase   time.Duration
}

// NewRebalancer creates a rebalancer
func NewRebalancer(store launchstore.Store, monitor *reserves.Monitor, bridger Bridger, maxAttempts int, retryBase time.Duration, logger *zap.Logger) *Rebalancer {
	return &Rebalancer{
		store:       store,
		monitor:     monitor,
		bridger:     bridger,
		logger:      logger,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
	}
}

// CheckAndRebalance partitions the token's chains into deficit and surplus
// sets and triggers at most one transfer per call: the first deficit chain
// whose shortfall is fully covered by some surplus chain's excess receives
// the full shortfall. A donor that cannot cover a shortfall is never tapped
// for a partial transfer; with no covering pair, nothing moves.
func (r *Rebalancer) CheckAndRebalance(ctx context.Context, tokenID string) (*Result, error) {
	snapshots, err := r.monitor.MonitorReserves(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	var deficits, surpluses []*launch.ReserveSnapshot
	for _, snap := range snapshots {
		switch {
		case snap.Status != launch.ReserveSufficient:
			deficits = append(deficits, snap)
		case curve.IsSurplus(snap.Reserve, snap.IdealReserve):
			surpluses = append(surpluses, snap)
		}
	}
	if len(deficits) == 0 {
		return &Result{Success: true, Message: "reserves balanced"}, nil
	}

	for _, needy := range deficits {
		shortfall := needy.Deficit()
		if !shortfall.IsPositive() {
			continue
		}
		for _, donor := range surpluses {
			if donor.Excess().GreaterThanOrEqual(shortfall) {
				return r.RequestLiquidity(ctx, tokenID, donor.Chain, needy.Chain, shortfall)
			}
		}
		r.logger.Warn("Underfunded chain has no covering donor",
			zap.String("token_id", tokenID),
			zap.String("chain", needy.Chain),
			zap.String("shortfall", shortfall.String()))
	}

	return &Result{Success: false, Message: "no rebalance: no surplus chain covers a shortfall"}, nil
}

// RequestLiquidity opens a liquidity transfer of amount from sourceChain to
// targetChain. When both chains can bridge, the request is raised on the
// target chain's bridge and then executed; otherwise the reserves are moved
// directly in the store.
func (r *Rebalancer) RequestLiquidity(ctx context.Context, tokenID, sourceChain, targetChain string, amount decimal.Decimal) (*Result, error) {
	if !amount.IsPositive() {
		return &Result{Success: false, Message: "transfer amount must be positive"}, nil
	}
	if sourceChain == targetChain {
		return &Result{Success: false, Message: "source and target chain are the same"}, nil
	}

	check, err := r.monitor.CheckReserves(ctx, tokenID, sourceChain, amount)
	if err != nil {
		return nil, err
	}
	if !check.Sufficient {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("source chain %s holds %s, needs %s", sourceChain, check.CurrentReserve, amount),
		}, nil
	}

	if !r.bridger.CanBridge(sourceChain) || !r.bridger.CanBridge(targetChain) {
		return r.fallbackTransfer(ctx, tokenID, sourceChain, targetChain, amount)
	}

	requestID, txHash, err := r.bridger.RequestLiquidity(ctx, targetChain, tokenID, sourceChain, amount)
	if err != nil {
		metrics.TransactionsSent.WithLabelValues(targetChain, "request_liquidity", "error").Inc()
		metrics.RebalancesTotal.WithLabelValues("bridge", "error").Inc()
		r.logger.Error("Failed to raise liquidity request",
			zap.String("token_id", tokenID),
			zap.String("target_chain", targetChain),
			zap.Error(err))
		return &Result{Success: false, Message: fmt.Sprintf("liquidity request failed: %v", err)}, nil
	}
	metrics.TransactionsSent.WithLabelValues(targetChain, "request_liquidity", "success").Inc()

	request := &launch.LiquidityRequest{
		RequestID:   requestID,
		TokenID:     tokenID,
		SourceChain: sourceChain,
		TargetChain: targetChain,
		Amount:      amount,
		Status:      launch.RequestStatusPending,
	}
	if err := r.store.CreateLiquidityRequest(ctx, request); err != nil {
		return nil, err
	}

	r.logger.Info("Liquidity request opened",
		zap.String("request_id", requestID),
		zap.String("token_id", tokenID),
		zap.String("source_chain", sourceChain),
		zap.String("target_chain", targetChain),
		zap.String("amount", amount.String()),
		zap.String("request_tx", txHash))

	return r.ExecuteBridge(ctx, request)
}

// ExecuteBridge performs the source-side fulfillment of an open request and
// applies the optimistic reserve move. The request stays bridging until the
// settlement pass observes the fulfillment on the target chain.
func (r *Rebalancer) ExecuteBridge(ctx context.Context, request *launch.LiquidityRequest) (*Result, error) {
	sourceTx, err := r.bridger.FulfillRequest(ctx, request.SourceChain, request.RequestID, request.Amount)
	if err != nil {
		metrics.TransactionsSent.WithLabelValues(request.SourceChain, "fulfill_request", "error").Inc()
		return r.recordFailedAttempt(ctx, request, err)
	}
	metrics.TransactionsSent.WithLabelValues(request.SourceChain, "fulfill_request", "success").Inc()

	if err := r.store.MarkRequestBridging(ctx, request.RequestID, sourceTx); err != nil {
		return nil, err
	}

	// Move the reserve in the store as soon as the source funds are locked,
	// so pricing and monitoring see the post-transfer allocation. The request
	// itself settles only on the target-side fulfillment log.
	if err := r.store.AdjustLocalReserve(ctx, request.TokenID, request.SourceChain, request.Amount.Neg()); err != nil {
		return nil, err
	}
	if err := r.store.AdjustLocalReserve(ctx, request.TokenID, request.TargetChain, request.Amount); err != nil {
		return nil, err
	}

	metrics.RebalancesTotal.WithLabelValues("bridge", "initiated").Inc()
	r.logger.Info("Bridge transfer initiated",
		zap.String("request_id", request.RequestID),
		zap.String("source_tx", sourceTx),
		zap.String("amount", request.Amount.String()))

	return &Result{Success: true, RequestID: request.RequestID, Message: "bridge transfer initiated"}, nil
}

// SettleRequests walks the unsettled requests: bridging requests are
// completed once the target chain shows the fulfillment log, pending ones
// are retried on their backoff schedule and failed once the attempt budget
// is spent.
func (r *Rebalancer) SettleRequests(ctx context.Context) error {
	requests, err := r.store.ListUnsettledRequests(ctx)
	if err != nil {
		return err
	}

	counts := map[launch.RequestStatus]int{}
	for _, request := range requests {
		counts[request.Status]++

		switch request.Status {
		case launch.RequestStatusBridging:
			r.settleBridging(ctx, request)
		case launch.RequestStatusPending:
			r.retryPending(ctx, request)
		}
	}

	metrics.LiquidityRequestsPending.WithLabelValues(string(launch.RequestStatusPending)).Set(float64(counts[launch.RequestStatusPending]))
	metrics.LiquidityRequestsPending.WithLabelValues(string(launch.RequestStatusBridging)).Set(float64(counts[launch.RequestStatusBridging]))
	return nil
}

func (r *Rebalancer) settleBridging(ctx context.Context, request *launch.LiquidityRequest) {
	fulfilled, destTx, err := r.bridger.RequestFulfilled(ctx, request.TargetChain, request.RequestID)
	if err != nil {
		r.logger.Warn("Failed to check fulfillment",
			zap.String("request_id", request.RequestID),
			zap.String("target_chain", request.TargetChain),
			zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("rebalancer", "settlement").Inc()
		return
	}
	if !fulfilled {
		return
	}

	if err := r.store.MarkRequestCompleted(ctx, request.RequestID, destTx); err != nil {
		r.logger.Error("Failed to complete request",
			zap.String("request_id", request.RequestID),
			zap.Error(err))
		return
	}

	metrics.RebalancesTotal.WithLabelValues("bridge", "completed").Inc()
	r.logger.Info("Liquidity request settled",
		zap.String("request_id", request.RequestID),
		zap.String("dest_tx", destTx))
}

func (r *Rebalancer) retryPending(ctx context.Context, request *launch.LiquidityRequest) {
	if request.NextAttempt != nil && time.Now().Before(*request.NextAttempt) {
		return
	}
	if request.Attempts >= r.maxAttempts {
		message := fmt.Sprintf("gave up after %d attempts: %s", request.Attempts, request.ErrorMessage)
		if err := r.store.MarkRequestFailed(ctx, request.RequestID, message); err != nil {
			r.logger.Error("Failed to mark request failed",
				zap.String("request_id", request.RequestID),
				zap.Error(err))
			return
		}
		metrics.RebalancesTotal.WithLabelValues("bridge", "failed").Inc()
		r.logger.Error("Liquidity request failed permanently",
			zap.String("request_id", request.RequestID),
			zap.Int("attempts", request.Attempts))
		return
	}

	if _, err := r.ExecuteBridge(ctx, request); err != nil {
		r.logger.Error("Retry of liquidity request errored",
			zap.String("request_id", request.RequestID),
			zap.Error(err))
	}
}

func (r *Rebalancer) recordFailedAttempt(ctx context.Context, request *launch.LiquidityRequest, cause error) (*Result, error) {
	// Exponential backoff keyed on how many attempts the request has burned.
	delay := r.retryBase
	for i := 0; i < request.Attempts; i++ {
		delay *= 2
	}
	nextAttempt := time.Now().Add(delay)

	if err := r.store.RecordRequestAttempt(ctx, request.RequestID, nextAttempt, cause.Error()); err != nil {
		return nil, err
	}

	metrics.ErrorsTotal.WithLabelValues("rebalancer", "fulfillment").Inc()
	r.logger.Warn("Bridge fulfillment failed, will retry",
		zap.String("request_id", request.RequestID),
		zap.Int("attempt", request.Attempts+1),
		zap.Time("next_attempt", nextAttempt),
		zap.Error(cause))

	return &Result{
		Success:   false,
		RequestID: request.RequestID,
		Message:   fmt.Sprintf("bridge fulfillment failed: %v", cause),
	}, nil
}

// fallbackTransfer moves reserve directly in the store when one of the
// chains has no bridge wired up. The request row is still written so the
// transfer shows up in the audit trail.
func (r *Rebalancer) fallbackTransfer(ctx context.Context, tokenID, sourceChain, targetChain string, amount decimal.Decimal) (*Result, error) {
	requestID := uuid.NewString()

	request := &launch.LiquidityRequest{
		RequestID:   requestID,
		TokenID:     tokenID,
		SourceChain: sourceChain,
		TargetChain: targetChain,
		Amount:      amount,
		Status:      launch.RequestStatusPending,
	}
	if err := r.store.CreateLiquidityRequest(ctx, request); err != nil {
		return nil, err
	}

	if err := r.store.AdjustLocalReserve(ctx, tokenID, sourceChain, amount.Neg()); err != nil {
		return nil, err
	}
	if err := r.store.AdjustLocalReserve(ctx, tokenID, targetChain, amount); err != nil {
		return nil, err
	}
	if err := r.store.MarkRequestCompleted(ctx, requestID, ""); err != nil {
		return nil, err
	}

	metrics.RebalancesTotal.WithLabelValues("fallback", "completed").Inc()
	r.logger.Info("Fallback reserve transfer applied",
		zap.String("request_id", requestID),
		zap.String("token_id", tokenID),
		zap.String("source_chain", sourceChain),
		zap.String("target_chain", targetChain),
		zap.String("amount", amount.String()))

	return &Result{Success: true, RequestID: requestID, Message: "fallback transfer applied"}, nil
}
