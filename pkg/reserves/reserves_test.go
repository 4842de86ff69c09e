package reserves

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
)

type seed struct {
	chain   string
	supply  int64
	reserve string
}

func setupMonitor(t *testing.T, seeds []seed) (context.Context, *Monitor) {
	t.Helper()
	ctx := context.Background()
	store := launchstore.NewMemStore()

	for _, s := range seeds {
		err := store.CreateDeployment(ctx, &launch.Deployment{
			TokenID:      "tok-1",
			Chain:        s.chain,
			Status:       launch.DeploymentStatusDeployed,
			LocalSupply:  decimal.NewFromInt(s.supply),
			LocalReserve: decimal.RequireFromString(s.reserve),
		})
		if err != nil {
			t.Fatalf("CreateDeployment(%s) failed: %v", s.chain, err)
		}
	}
	return ctx, NewMonitor(store, zap.NewNop())
}

func findSnapshot(t *testing.T, snaps []*launch.ReserveSnapshot, chain string) *launch.ReserveSnapshot {
	t.Helper()
	for _, s := range snaps {
		if s.Chain == chain {
			return s
		}
	}
	t.Fatalf("no snapshot for chain %s", chain)
	return nil
}

func TestMonitorReserves_ProportionalIdeal(t *testing.T) {
	// 750 + 250 supply, 200 total reserve: ideals 150 and 50
	ctx, monitor := setupMonitor(t, []seed{
		{chain: "base", supply: 750, reserve: "120"},
		{chain: "arbitrum", supply: 250, reserve: "80"},
	})

	snaps, err := monitor.MonitorReserves(ctx, "tok-1")
	if err != nil {
		t.Fatalf("MonitorReserves failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}

	base := findSnapshot(t, snaps, "base")
	if !base.IdealReserve.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected base ideal 150, got %s", base.IdealReserve)
	}
	if !base.MinReserve.Equal(decimal.NewFromInt(45)) {
		t.Errorf("expected base min 45, got %s", base.MinReserve)
	}
	if base.Status != launch.ReserveSufficient {
		t.Errorf("expected base sufficient, got %s", base.Status)
	}
	if !base.Deficit().Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected base deficit 30, got %s", base.Deficit())
	}

	arb := findSnapshot(t, snaps, "arbitrum")
	if !arb.IdealReserve.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected arbitrum ideal 50, got %s", arb.IdealReserve)
	}
	if !arb.Excess().Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected arbitrum excess 30, got %s", arb.Excess())
	}
}

func TestMonitorReserves_Classification(t *testing.T) {
	// Equal supply, 200 total reserve: ideal 100 each, min 30, critical < 15
	ctx, monitor := setupMonitor(t, []seed{
		{chain: "base", supply: 500, reserve: "10"},
		{chain: "arbitrum", supply: 500, reserve: "190"},
	})

	snaps, err := monitor.MonitorReserves(ctx, "tok-1")
	if err != nil {
		t.Fatalf("MonitorReserves failed: %v", err)
	}

	if got := findSnapshot(t, snaps, "base").Status; got != launch.ReserveCritical {
		t.Errorf("expected base critical, got %s", got)
	}
	if got := findSnapshot(t, snaps, "arbitrum").Status; got != launch.ReserveSufficient {
		t.Errorf("expected arbitrum sufficient, got %s", got)
	}
}

func TestMonitorReserves_ZeroSupplySplitsEqually(t *testing.T) {
	ctx, monitor := setupMonitor(t, []seed{
		{chain: "base", supply: 0, reserve: "90"},
		{chain: "arbitrum", supply: 0, reserve: "30"},
	})

	snaps, err := monitor.MonitorReserves(ctx, "tok-1")
	if err != nil {
		t.Fatalf("MonitorReserves failed: %v", err)
	}

	for _, snap := range snaps {
		if !snap.IdealReserve.Equal(decimal.NewFromInt(60)) {
			t.Errorf("chain %s: expected equal-split ideal 60, got %s", snap.Chain, snap.IdealReserve)
		}
	}
}

func TestCheckReserves(t *testing.T) {
	ctx, monitor := setupMonitor(t, []seed{
		{chain: "base", supply: 100, reserve: "50"},
	})

	res, err := monitor.CheckReserves(ctx, "tok-1", "base", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("CheckReserves failed: %v", err)
	}
	if !res.Sufficient {
		t.Error("expected reserve of 50 to cover requirement of 50")
	}

	res, err = monitor.CheckReserves(ctx, "tok-1", "base", decimal.RequireFromString("50.01"))
	if err != nil {
		t.Fatalf("CheckReserves failed: %v", err)
	}
	if res.Sufficient {
		t.Error("expected reserve of 50 to miss requirement of 50.01")
	}

	if _, err := monitor.CheckReserves(ctx, "tok-1", "solana", decimal.NewFromInt(1)); err == nil {
		t.Error("expected unknown chain to fail")
	}
}
