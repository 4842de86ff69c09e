package evm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/config"
)

// Registry holds one connected client per configured chain. It is resolved
// once at startup so an unknown chain name fails fast instead of surfacing
// mid-rebalance.
type Registry struct {
	clients map[string]*Client
}

// NewRegistry dials every configured chain
func NewRegistry(chains []config.ChainConfig, logger *zap.Logger) (*Registry, error) {
	clients := make(map[string]*Client, len(chains))
	for i := range chains {
		client, err := NewClient(&chains[i], logger)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("failed to create client for chain %s: %w", chains[i].Name, err)
		}
		clients[chains[i].Name] = client
	}
	return &Registry{clients: clients}, nil
}

// Get returns the client of the named chain
func (r *Registry) Get(chain string) (*Client, error) {
	client, ok := r.clients[chain]
	if !ok {
		return nil, fmt.Errorf("unknown chain %q", chain)
	}
	return client, nil
}

// Names returns all registered chain names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Close closes all chain connections
func (r *Registry) Close() {
	for _, client := range r.clients {
		client.Close()
	}
}
