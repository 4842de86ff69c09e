package pricesync

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
	"github.com/launchforge/curve-middleware/pkg/supply"
)

func setupSyncer(t *testing.T) (context.Context, *launchstore.MemStore, *Syncer) {
	t.Helper()
	store := launchstore.NewMemStore()
	svc := supply.NewService(store, zap.NewNop())
	return context.Background(), store, NewSyncer(store, svc, zap.NewNop())
}

func seedToken(t *testing.T, store launchstore.Store, supplies map[string]int64) {
	t.Helper()
	ctx := context.Background()

	err := store.SetCurveParams(ctx, &launch.CurveParams{
		TokenID:   "tok-1",
		BasePrice: decimal.RequireFromString("0.0001"),
		Slope:     decimal.RequireFromString("0.00001"),
	})
	if err != nil {
		t.Fatalf("SetCurveParams failed: %v", err)
	}

	for chain, sold := range supplies {
		err := store.CreateDeployment(ctx, &launch.Deployment{
			TokenID:     "tok-1",
			Chain:       chain,
			Status:      launch.DeploymentStatusDeployed,
			LocalSupply: decimal.NewFromInt(sold),
		})
		if err != nil {
			t.Fatalf("CreateDeployment(%s) failed: %v", chain, err)
		}
	}
}

func TestSyncPrice_UsesGlobalSupply(t *testing.T) {
	ctx, store, syncer := setupSyncer(t)
	seedToken(t, store, map[string]int64{"base": 600, "arbitrum": 400})

	price, err := syncer.SyncPrice(ctx, "tok-1")
	if err != nil {
		t.Fatalf("SyncPrice failed: %v", err)
	}

	// 0.0001 + 0.00001 * 1000
	if !price.Equal(decimal.RequireFromString("0.0101")) {
		t.Errorf("expected price 0.0101, got %s", price)
	}

	base, err := store.GetDeployment(ctx, "tok-1", "base")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if !base.MarketCap.Equal(decimal.RequireFromString("6.06")) {
		t.Errorf("expected base market cap 6.06, got %s", base.MarketCap)
	}

	arb, err := store.GetDeployment(ctx, "tok-1", "arbitrum")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if !arb.MarketCap.Equal(decimal.RequireFromString("4.04")) {
		t.Errorf("expected arbitrum market cap 4.04, got %s", arb.MarketCap)
	}
}

func TestSyncPrice_MissingParams(t *testing.T) {
	ctx, _, syncer := setupSyncer(t)

	if _, err := syncer.SyncPrice(ctx, "ghost"); err == nil {
		t.Fatal("expected missing curve params to fail")
	}
}

func TestCheckDeviation_AlignedChains(t *testing.T) {
	ctx, store, syncer := setupSyncer(t)
	seedToken(t, store, map[string]int64{"base": 600, "arbitrum": 400})

	if _, err := syncer.SyncPrice(ctx, "tok-1"); err != nil {
		t.Fatalf("SyncPrice failed: %v", err)
	}

	report, err := syncer.CheckDeviation(ctx, "tok-1", 0.005)
	if err != nil {
		t.Fatalf("CheckDeviation failed: %v", err)
	}
	if report.Flagged {
		t.Errorf("expected no flag after sync, deviation %f", report.Deviation)
	}
	if report.ChainsUsed != 2 {
		t.Errorf("expected 2 chains used, got %d", report.ChainsUsed)
	}
}

func TestCheckDeviation_FlagsDrift(t *testing.T) {
	ctx, store, syncer := setupSyncer(t)
	seedToken(t, store, map[string]int64{"base": 100, "arbitrum": 100})

	// Implied prices 1.0 vs 2.0: far beyond any sane tolerance
	if err := store.SetMarketCap(ctx, "tok-1", "base", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("SetMarketCap failed: %v", err)
	}
	if err := store.SetMarketCap(ctx, "tok-1", "arbitrum", decimal.NewFromInt(200)); err != nil {
		t.Fatalf("SetMarketCap failed: %v", err)
	}

	report, err := syncer.CheckDeviation(ctx, "tok-1", 0.005)
	if err != nil {
		t.Fatalf("CheckDeviation failed: %v", err)
	}
	if !report.Flagged {
		t.Errorf("expected drift to be flagged, deviation %f", report.Deviation)
	}
}

func TestCheckDeviation_SkipsZeroSupplyChains(t *testing.T) {
	ctx, store, syncer := setupSyncer(t)
	seedToken(t, store, map[string]int64{"base": 100, "arbitrum": 0})

	report, err := syncer.CheckDeviation(ctx, "tok-1", 0.005)
	if err != nil {
		t.Fatalf("CheckDeviation failed: %v", err)
	}
	if report.ChainsUsed != 1 {
		t.Errorf("expected 1 chain used, got %d", report.ChainsUsed)
	}
	if report.Flagged {
		t.Error("a single chain cannot drift against itself")
	}
}
