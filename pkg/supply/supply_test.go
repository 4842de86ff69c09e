package supply

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/launch"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
)

func seedDeployments(t *testing.T, store launchstore.Store, tokenID string, chains ...string) {
	t.Helper()
	for _, chain := range chains {
		err := store.CreateDeployment(context.Background(), &launch.Deployment{
			TokenID: tokenID,
			Chain:   chain,
			Status:  launch.DeploymentStatusDeployed,
		})
		if err != nil {
			t.Fatalf("CreateDeployment(%s) failed: %v", chain, err)
		}
	}
}

func TestUpdateLocalSupply_RecomputesGlobal(t *testing.T) {
	ctx := context.Background()
	store := launchstore.NewMemStore()
	svc := NewService(store, zap.NewNop())
	seedDeployments(t, store, "tok-1", "base", "arbitrum", "optimism")

	if _, err := svc.UpdateLocalSupply(ctx, "tok-1", "base", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("UpdateLocalSupply failed: %v", err)
	}
	global, err := svc.UpdateLocalSupply(ctx, "tok-1", "arbitrum", decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("UpdateLocalSupply failed: %v", err)
	}
	if !global.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("expected global supply 1250, got %s", global)
	}

	// Absolute semantics: a re-report replaces, it does not accumulate
	global, err = svc.UpdateLocalSupply(ctx, "tok-1", "base", decimal.NewFromInt(400))
	if err != nil {
		t.Fatalf("UpdateLocalSupply failed: %v", err)
	}
	if !global.Equal(decimal.NewFromInt(650)) {
		t.Errorf("expected global supply 650 after re-report, got %s", global)
	}
}

func TestUpdateLocalSupply_RejectsNegative(t *testing.T) {
	store := launchstore.NewMemStore()
	svc := NewService(store, zap.NewNop())
	seedDeployments(t, store, "tok-1", "base")

	if _, err := svc.UpdateLocalSupply(context.Background(), "tok-1", "base", decimal.NewFromInt(-5)); err == nil {
		t.Fatal("expected negative supply to be rejected")
	}

	d, err := store.GetDeployment(context.Background(), "tok-1", "base")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if !d.LocalSupply.IsZero() {
		t.Errorf("expected stored supply untouched, got %s", d.LocalSupply)
	}
}

func TestUpdateLocalSupply_UnknownChain(t *testing.T) {
	store := launchstore.NewMemStore()
	svc := NewService(store, zap.NewNop())
	seedDeployments(t, store, "tok-1", "base")

	if _, err := svc.UpdateLocalSupply(context.Background(), "tok-1", "solana", decimal.NewFromInt(10)); err == nil {
		t.Fatal("expected unknown chain to fail")
	}
}

func TestGlobalSupply_EmptyToken(t *testing.T) {
	svc := NewService(launchstore.NewMemStore(), zap.NewNop())

	global, err := svc.GlobalSupply(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GlobalSupply failed: %v", err)
	}
	if !global.IsZero() {
		t.Errorf("expected zero global supply, got %s", global)
	}
}
