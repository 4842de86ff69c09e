package launch

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeploymentStatus represents the lifecycle state of a per-chain deployment
type DeploymentStatus string

const (
	DeploymentStatusPending  DeploymentStatus = "pending"
	DeploymentStatusDeployed DeploymentStatus = "deployed"
)

// RequestStatus represents the current state of a cross-chain liquidity request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusBridging  RequestStatus = "bridging"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
)

// ReserveStatus classifies a chain's collateral against its ideal allocation
type ReserveStatus string

const (
	ReserveSufficient ReserveStatus = "sufficient"
	ReserveLow        ReserveStatus = "low"
	ReserveCritical   ReserveStatus = "critical"
)

// Deployment is one token deployment on one chain. LocalSupply is the
// cumulative number of units sold on that chain's bonding curve; LocalReserve
// is the native-currency collateral held by the curve contract.
type Deployment struct {
	TokenID          string
	Chain            string
	TokenAddress     string
	CurveAddress     string
	BridgeAddress    string
	Status           DeploymentStatus
	LocalSupply      decimal.Decimal
	LocalReserve     decimal.Decimal
	MarketCap        decimal.Decimal
	Graduated        bool
	GraduatedAt      *time.Time
	PoolAddress      string
	GraduationTxHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CurveParams are the chain-independent bonding-curve parameters of a token.
// A zero GraduationThreshold disables graduation for the token.
type CurveParams struct {
	TokenID             string
	BasePrice           decimal.Decimal
	Slope               decimal.Decimal
	GraduationThreshold decimal.Decimal
}

// GraduationEnabled reports whether the token can ever graduate.
func (p *CurveParams) GraduationEnabled() bool {
	return p.GraduationThreshold.IsPositive()
}

// LiquidityRequest is one cross-chain collateral transfer, keyed by the
// request id issued on the target chain's bridge (or the request tx hash when
// the bridge emits no id). Completed and failed are terminal.
type LiquidityRequest struct {
	RequestID    string
	TokenID      string
	SourceChain  string
	TargetChain  string
	Amount       decimal.Decimal
	Status       RequestStatus
	SourceTxHash string
	DestTxHash   string
	Attempts     int
	NextAttempt  *time.Time
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// ReserveSnapshot is the derived collateral picture of one chain at one
// instant. Ideal is proportional to the chain's share of global supply
// (equal split when global supply is zero), Min is 30% of Ideal.
type ReserveSnapshot struct {
	Chain        string
	Reserve      decimal.Decimal
	IdealReserve decimal.Decimal
	MinReserve   decimal.Decimal
	Status       ReserveStatus
}

// Deficit returns how much the chain is short of its ideal allocation.
// Zero or negative means the chain holds at least its ideal share.
func (s *ReserveSnapshot) Deficit() decimal.Decimal {
	return s.IdealReserve.Sub(s.Reserve)
}

// Excess returns how much the chain holds above its ideal allocation.
func (s *ReserveSnapshot) Excess() decimal.Decimal {
	return s.Reserve.Sub(s.IdealReserve)
}

// GraduationStatus is the read-only progress report of one chain toward the
// market-cap threshold.
type GraduationStatus struct {
	Chain           string
	MarketCap       decimal.Decimal
	Threshold       decimal.Decimal
	ProgressPercent decimal.Decimal
	Eligible        bool
	Graduated       bool
	PoolAddress     string
}
