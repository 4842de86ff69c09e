package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const validConfig = `
database:
  host: localhost
  user: engine
  password: secret

chains:
  - name: base
    rpc_url: http://localhost:8545
    chain_id: 8453
  - name: arbitrum
    rpc_url: http://localhost:8546
    chain_id: 42161
    call_timeout: 10s
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine.MonitorInterval != 30*time.Second {
		t.Errorf("expected default monitor interval 30s, got %s", cfg.Engine.MonitorInterval)
	}
	if cfg.Engine.DeviationTolerance != 0.005 {
		t.Errorf("expected default tolerance 0.005, got %f", cfg.Engine.DeviationTolerance)
	}

	base, ok := cfg.Chain("base")
	if !ok {
		t.Fatal("expected base chain present")
	}
	if base.GasLimit != 300000 {
		t.Errorf("expected default gas limit 300000, got %d", base.GasLimit)
	}
	if base.CallTimeout != 30*time.Second {
		t.Errorf("expected default call timeout 30s, got %s", base.CallTimeout)
	}

	arb, _ := cfg.Chain("arbitrum")
	if arb.CallTimeout != 10*time.Second {
		t.Errorf("explicit call timeout overridden: %s", arb.CallTimeout)
	}

	if _, ok := cfg.Chain("solana"); ok {
		t.Error("unknown chain must not resolve")
	}
}

func TestLoad_RejectsMissingChains(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
chains: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected empty chain list to fail validation")
	}
}

func TestLoad_RejectsDuplicateChainNames(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
chains:
  - name: base
    rpc_url: http://localhost:8545
    chain_id: 8453
  - name: base
    rpc_url: http://localhost:8546
    chain_id: 8453
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate chain names to fail validation")
	}
}

func TestGetConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "engine",
		Password: "secret",
		Database: "curve_engine",
		SSLMode:  "disable",
	}
	want := "host=db port=5432 user=engine password=secret dbname=curve_engine sslmode=disable"
	if got := cfg.GetConnectionString(); got != want {
		t.Errorf("unexpected connection string: %s", got)
	}
}
