package launchstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/launchforge/curve-middleware/pkg/launch"
)

// MemStore is an in-memory Store implementation used in tests and local
// development. It mirrors the Postgres semantics, including the graduated
// guard and request-id idempotency.
type MemStore struct {
	mu          sync.RWMutex
	deployments map[string]*launch.Deployment // key: tokenID + "/" + chain
	params      map[string]*launch.CurveParams
	requests    map[string]*launch.LiquidityRequest
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		deployments: make(map[string]*launch.Deployment),
		params:      make(map[string]*launch.CurveParams),
		requests:    make(map[string]*launch.LiquidityRequest),
	}
}

func depKey(tokenID, chain string) string {
	return tokenID + "/" + chain
}

func (s *MemStore) CreateDeployment(_ context.Context, d *launch.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deployments[depKey(d.TokenID, d.Chain)]; ok {
		return ErrDeploymentExists
	}
	cp := *d
	s.deployments[depKey(d.TokenID, d.Chain)] = &cp
	return nil
}

func (s *MemStore) GetDeployment(_ context.Context, tokenID, chain string) (*launch.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deployments[depKey(tokenID, chain)]
	if !ok {
		return nil, ErrDeploymentNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemStore) ListDeployments(_ context.Context, tokenID string) ([]*launch.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*launch.Deployment
	for _, d := range s.deployments {
		if d.TokenID == tokenID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out, nil
}

func (s *MemStore) ListTokens(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var tokens []string
	for _, d := range s.deployments {
		if _, ok := seen[d.TokenID]; !ok {
			seen[d.TokenID] = struct{}{}
			tokens = append(tokens, d.TokenID)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (s *MemStore) SetLocalSupply(_ context.Context, tokenID, chain string, supply decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deployments[depKey(tokenID, chain)]
	if !ok {
		return ErrDeploymentNotFound
	}
	d.LocalSupply = supply
	d.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SetMarketCap(_ context.Context, tokenID, chain string, marketCap decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deployments[depKey(tokenID, chain)]
	if !ok {
		return ErrDeploymentNotFound
	}
	d.MarketCap = marketCap
	d.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) AdjustLocalReserve(_ context.Context, tokenID, chain string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deployments[depKey(tokenID, chain)]
	if !ok {
		return ErrDeploymentNotFound
	}
	d.LocalReserve = d.LocalReserve.Add(delta)
	d.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) MarkGraduated(_ context.Context, tokenID, chain, poolAddress, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deployments[depKey(tokenID, chain)]
	if !ok {
		return ErrDeploymentNotFound
	}
	if d.Graduated {
		return nil
	}
	now := time.Now()
	d.Graduated = true
	d.GraduatedAt = &now
	d.PoolAddress = poolAddress
	d.GraduationTxHash = txHash
	d.UpdatedAt = now
	return nil
}

func (s *MemStore) GetCurveParams(_ context.Context, tokenID string) (*launch.CurveParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.params[tokenID]
	if !ok {
		return nil, ErrCurveParamsNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) SetCurveParams(_ context.Context, p *launch.CurveParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.params[p.TokenID] = &cp
	return nil
}

func (s *MemStore) CreateLiquidityRequest(_ context.Context, r *launch.LiquidityRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[r.RequestID]; ok {
		return nil
	}
	cp := *r
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.requests[r.RequestID] = &cp
	return nil
}

func (s *MemStore) GetLiquidityRequest(_ context.Context, requestID string) (*launch.LiquidityRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) ListUnsettledRequests(_ context.Context) ([]*launch.LiquidityRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*launch.LiquidityRequest
	for _, r := range s.requests {
		if r.Status == launch.RequestStatusPending || r.Status == launch.RequestStatusBridging {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) MarkRequestBridging(_ context.Context, requestID, sourceTxHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	r.Status = launch.RequestStatusBridging
	r.SourceTxHash = sourceTxHash
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) MarkRequestCompleted(_ context.Context, requestID, destTxHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	now := time.Now()
	r.Status = launch.RequestStatusCompleted
	r.DestTxHash = destTxHash
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

func (s *MemStore) MarkRequestFailed(_ context.Context, requestID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	r.Status = launch.RequestStatusFailed
	r.ErrorMessage = message
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) RecordRequestAttempt(_ context.Context, requestID string, nextAttempt time.Time, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	r.Attempts++
	na := nextAttempt
	r.NextAttempt = &na
	r.ErrorMessage = message
	r.UpdatedAt = time.Now()
	return nil
}
