package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/config"
	"github.com/launchforge/curve-middleware/pkg/dexpool"
	"github.com/launchforge/curve-middleware/pkg/graduation"
	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
	"github.com/launchforge/curve-middleware/pkg/pricesync"
	"github.com/launchforge/curve-middleware/pkg/rebalancer"
	"github.com/launchforge/curve-middleware/pkg/reserves"
	"github.com/launchforge/curve-middleware/pkg/supply"
)

type stubBridger struct {
	fulfilled bool
}

func (s *stubBridger) CanBridge(string) bool { return true }

func (s *stubBridger) RequestLiquidity(context.Context, string, string, string, decimal.Decimal) (string, string, error) {
	return "0xreq", "0xreqtx", nil
}

func (s *stubBridger) FulfillRequest(context.Context, string, string, decimal.Decimal) (string, error) {
	return "0xsrctx", nil
}

func (s *stubBridger) RequestFulfilled(context.Context, string, string) (bool, string, error) {
	return s.fulfilled, "0xdesttx", nil
}

type stubPoolCreator struct{}

func (stubPoolCreator) CreatePool(context.Context, string, string, decimal.Decimal, decimal.Decimal) (*dexpool.Result, error) {
	return &dexpool.Result{PoolAddress: "0xpool", TxHash: "0xgradtx"}, nil
}

func setupEngine(t *testing.T, bridger rebalancer.Bridger) (context.Context, *launchstore.MemStore, *Engine) {
	t.Helper()
	logger := zap.NewNop()
	store := launchstore.NewMemStore()

	supplySvc := supply.NewService(store, logger)
	syncer := pricesync.NewSyncer(store, supplySvc, logger)
	monitor := reserves.NewMonitor(store, logger)
	rb := rebalancer.NewRebalancer(store, monitor, bridger, 3, time.Minute, logger)
	graduator := graduation.NewGraduator(store, stubPoolCreator{}, 3, time.Minute, logger)

	cfg := config.EngineConfig{
		MonitorInterval:    10 * time.Millisecond,
		DeviationInterval:  10 * time.Millisecond,
		DeviationTolerance: 0.005,
		MaxBridgeAttempts:  3,
		RetryBaseDelay:     time.Minute,
	}

	return context.Background(), store, New(store, syncer, graduator, rb, cfg, logger)
}

func seedEngineToken(t *testing.T, store launchstore.Store, threshold string) {
	t.Helper()
	ctx := context.Background()

	err := store.SetCurveParams(ctx, &launch.CurveParams{
		TokenID:             "tok-1",
		BasePrice:           decimal.RequireFromString("0.001"),
		Slope:               decimal.RequireFromString("0.001"),
		GraduationThreshold: decimal.RequireFromString(threshold),
	})
	if err != nil {
		t.Fatalf("SetCurveParams failed: %v", err)
	}

	for _, chain := range []string{"base", "arbitrum"} {
		err := store.CreateDeployment(ctx, &launch.Deployment{
			TokenID:      "tok-1",
			Chain:        chain,
			TokenAddress: "0xtoken",
			Status:       launch.DeploymentStatusDeployed,
			LocalSupply:  decimal.NewFromInt(500),
			LocalReserve: decimal.NewFromInt(100),
		})
		if err != nil {
			t.Fatalf("CreateDeployment(%s) failed: %v", chain, err)
		}
	}
}

func TestTick_SyncsPriceBeforeGraduation(t *testing.T) {
	// Price 0.001 + 0.001*1000 = 1.001, market cap 500.5 per chain. The
	// tick must graduate off the freshly synced cap, not the stale zero.
	ctx, store, eng := setupEngine(t, &stubBridger{})
	seedEngineToken(t, store, "500")

	if err := eng.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	d, err := store.GetDeployment(ctx, "tok-1", "base")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if !d.MarketCap.Equal(decimal.RequireFromString("500.5")) {
		t.Errorf("expected market cap 500.5, got %s", d.MarketCap)
	}
	if !d.Graduated {
		t.Error("expected deployment graduated in the same tick")
	}
}

func TestTick_RebalancesUnderfundedChain(t *testing.T) {
	ctx, store, eng := setupEngine(t, &stubBridger{})
	seedEngineToken(t, store, "0")

	// Skew the reserves: base critical, arbitrum surplus
	if err := store.AdjustLocalReserve(ctx, "tok-1", "base", decimal.NewFromInt(-95)); err != nil {
		t.Fatalf("AdjustLocalReserve failed: %v", err)
	}
	if err := store.AdjustLocalReserve(ctx, "tok-1", "arbitrum", decimal.NewFromInt(95)); err != nil {
		t.Fatalf("AdjustLocalReserve failed: %v", err)
	}

	if err := eng.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	base, _ := store.GetDeployment(ctx, "tok-1", "base")
	if !base.LocalReserve.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected base refilled to 100, got %s", base.LocalReserve)
	}

	requests, err := store.ListUnsettledRequests(ctx)
	if err != nil {
		t.Fatalf("ListUnsettledRequests failed: %v", err)
	}
	if len(requests) != 1 || requests[0].Status != launch.RequestStatusBridging {
		t.Fatalf("expected one bridging request, got %+v", requests)
	}
}

func TestAudit_SettlesBridgingRequests(t *testing.T) {
	bridger := &stubBridger{}
	ctx, store, eng := setupEngine(t, bridger)
	seedEngineToken(t, store, "0")

	if err := store.AdjustLocalReserve(ctx, "tok-1", "base", decimal.NewFromInt(-95)); err != nil {
		t.Fatalf("AdjustLocalReserve failed: %v", err)
	}
	if err := store.AdjustLocalReserve(ctx, "tok-1", "arbitrum", decimal.NewFromInt(95)); err != nil {
		t.Fatalf("AdjustLocalReserve failed: %v", err)
	}
	if err := eng.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	bridger.fulfilled = true
	if err := eng.Audit(ctx); err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	requests, err := store.ListUnsettledRequests(ctx)
	if err != nil {
		t.Fatalf("ListUnsettledRequests failed: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("expected all requests settled, %d still open", len(requests))
	}
}

func TestStartStop(t *testing.T) {
	_, store, eng := setupEngine(t, &stubBridger{})
	seedEngineToken(t, store, "0")

	eng.Start()
	time.Sleep(50 * time.Millisecond)
	eng.Stop()

	d, err := store.GetDeployment(context.Background(), "tok-1", "base")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if d.MarketCap.IsZero() {
		t.Error("expected at least one monitor tick to sync market caps")
	}
}
