package launchstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/launchforge/curve-middleware/pkg/launch"
)

// DeploymentDao is a data access object that maps directly to the
// 'deployments' table in PostgreSQL.
type DeploymentDao struct {
	bun.BaseModel    `bun:"table:deployments,alias:d"`
	ID               int64      `bun:"id,pk,autoincrement"`
	TokenID          string     `bun:"token_id,notnull,type:varchar(128)"`
	Chain            string     `bun:"chain,notnull,type:varchar(32)"`
	TokenAddress     string     `bun:"token_address,notnull,type:varchar(42)"`
	CurveAddress     string     `bun:"curve_address,notnull,type:varchar(42)"`
	BridgeAddress    *string    `bun:"bridge_address,type:varchar(42)"`
	Status           string     `bun:"status,notnull,type:varchar(20)"`
	LocalSupply      string     `bun:"local_supply,notnull,type:numeric(38,18),default:'0'"`
	LocalReserve     string     `bun:"local_reserve,notnull,type:numeric(38,18),default:'0'"`
	MarketCap        string     `bun:"market_cap,notnull,type:numeric(38,18),default:'0'"`
	Graduated        bool       `bun:"graduated,notnull,default:false"`
	GraduatedAt      *time.Time `bun:"graduated_at"`
	PoolAddress      *string    `bun:"pool_address,type:varchar(42)"`
	GraduationTxHash *string    `bun:"graduation_tx_hash,type:varchar(66)"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,default:current_timestamp"`
}

// toDeploymentDao converts a launch.Deployment to DeploymentDao.
func toDeploymentDao(d *launch.Deployment) *DeploymentDao {
	dao := &DeploymentDao{
		TokenID:      d.TokenID,
		Chain:        d.Chain,
		TokenAddress: d.TokenAddress,
		CurveAddress: d.CurveAddress,
		Status:       string(d.Status),
		LocalSupply:  d.LocalSupply.String(),
		LocalReserve: d.LocalReserve.String(),
		MarketCap:    d.MarketCap.String(),
		Graduated:    d.Graduated,
		GraduatedAt:  d.GraduatedAt,
	}
	if d.BridgeAddress != "" {
		dao.BridgeAddress = &d.BridgeAddress
	}
	if d.PoolAddress != "" {
		dao.PoolAddress = &d.PoolAddress
	}
	if d.GraduationTxHash != "" {
		dao.GraduationTxHash = &d.GraduationTxHash
	}
	return dao
}

// toDeployment converts a DeploymentDao to launch.Deployment. Numeric columns
// are rejected, not coerced, when they fail to parse: a corrupt reserve or
// supply figure must never silently become zero.
func toDeployment(dao *DeploymentDao) (*launch.Deployment, error) {
	supply, err := decimal.NewFromString(dao.LocalSupply)
	if err != nil {
		return nil, fmt.Errorf("corrupt local_supply %q for %s/%s: %w", dao.LocalSupply, dao.TokenID, dao.Chain, err)
	}
	reserve, err := decimal.NewFromString(dao.LocalReserve)
	if err != nil {
		return nil, fmt.Errorf("corrupt local_reserve %q for %s/%s: %w", dao.LocalReserve, dao.TokenID, dao.Chain, err)
	}
	marketCap, err := decimal.NewFromString(dao.MarketCap)
	if err != nil {
		return nil, fmt.Errorf("corrupt market_cap %q for %s/%s: %w", dao.MarketCap, dao.TokenID, dao.Chain, err)
	}

	d := &launch.Deployment{
		TokenID:      dao.TokenID,
		Chain:        dao.Chain,
		TokenAddress: dao.TokenAddress,
		CurveAddress: dao.CurveAddress,
		Status:       launch.DeploymentStatus(dao.Status),
		LocalSupply:  supply,
		LocalReserve: reserve,
		MarketCap:    marketCap,
		Graduated:    dao.Graduated,
		GraduatedAt:  dao.GraduatedAt,
		CreatedAt:    dao.CreatedAt,
		UpdatedAt:    dao.UpdatedAt,
	}
	if dao.BridgeAddress != nil {
		d.BridgeAddress = *dao.BridgeAddress
	}
	if dao.PoolAddress != nil {
		d.PoolAddress = *dao.PoolAddress
	}
	if dao.GraduationTxHash != nil {
		d.GraduationTxHash = *dao.GraduationTxHash
	}
	return d, nil
}

// CurveParamsDao is a data access object that maps directly to the
// 'curve_params' table in PostgreSQL.
type CurveParamsDao struct {
	bun.BaseModel       `bun:"table:curve_params,alias:cp"`
	TokenID             string    `bun:"token_id,pk,type:varchar(128)"`
	BasePrice           string    `bun:"base_price,notnull,type:numeric(38,18)"`
	Slope               string    `bun:"slope,notnull,type:numeric(38,18)"`
	GraduationThreshold string    `bun:"graduation_threshold,notnull,type:numeric(38,18),default:'0'"`
	CreatedAt           time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt           time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

func toCurveParamsDao(p *launch.CurveParams) *CurveParamsDao {
	return &CurveParamsDao{
		TokenID:             p.TokenID,
		BasePrice:           p.BasePrice.String(),
		Slope:               p.Slope.String(),
		GraduationThreshold: p.GraduationThreshold.String(),
	}
}

func toCurveParams(dao *CurveParamsDao) (*launch.CurveParams, error) {
	basePrice, err := decimal.NewFromString(dao.BasePrice)
	if err != nil {
		return nil, fmt.Errorf("corrupt base_price %q for %s: %w", dao.BasePrice, dao.TokenID, err)
	}
	slope, err := decimal.NewFromString(dao.Slope)
	if err != nil {
		return nil, fmt.Errorf("corrupt slope %q for %s: %w", dao.Slope, dao.TokenID, err)
	}
	threshold, err := decimal.NewFromString(dao.GraduationThreshold)
	if err != nil {
		return nil, fmt.Errorf("corrupt graduation_threshold %q for %s: %w", dao.GraduationThreshold, dao.TokenID, err)
	}
	return &launch.CurveParams{
		TokenID:             dao.TokenID,
		BasePrice:           basePrice,
		Slope:               slope,
		GraduationThreshold: threshold,
	}, nil
}

// LiquidityRequestDao is a data access object that maps directly to the
// 'liquidity_requests' table in PostgreSQL.
type LiquidityRequestDao struct {
	bun.BaseModel `bun:"table:liquidity_requests,alias:lr"`
	RequestID     string     `bun:"request_id,pk,type:varchar(128)"`
	TokenID       string     `bun:"token_id,notnull,type:varchar(128)"`
	SourceChain   string     `bun:"source_chain,notnull,type:varchar(32)"`
	TargetChain   string     `bun:"target_chain,notnull,type:varchar(32)"`
	Amount        string     `bun:"amount,notnull,type:numeric(38,18)"`
	Status        string     `bun:"status,notnull,type:varchar(20)"`
	SourceTxHash  *string    `bun:"source_tx_hash,type:varchar(66)"`
	DestTxHash    *string    `bun:"dest_tx_hash,type:varchar(66)"`
	Attempts      int        `bun:"attempts,notnull,use_zero,default:0"`
	NextAttempt   *time.Time `bun:"next_attempt"`
	ErrorMessage  *string    `bun:"error_message,type:text"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,default:current_timestamp"`
	CompletedAt   *time.Time `bun:"completed_at"`
}

func toLiquidityRequestDao(r *launch.LiquidityRequest) *LiquidityRequestDao {
	dao := &LiquidityRequestDao{
		RequestID:   r.RequestID,
		TokenID:     r.TokenID,
		SourceChain: r.SourceChain,
		TargetChain: r.TargetChain,
		Amount:      r.Amount.String(),
		Status:      string(r.Status),
		Attempts:    r.Attempts,
		NextAttempt: r.NextAttempt,
		CompletedAt: r.CompletedAt,
	}
	if r.SourceTxHash != "" {
		dao.SourceTxHash = &r.SourceTxHash
	}
	if r.DestTxHash != "" {
		dao.DestTxHash = &r.DestTxHash
	}
	if r.ErrorMessage != "" {
		dao.ErrorMessage = &r.ErrorMessage
	}
	return dao
}

func toLiquidityRequest(dao *LiquidityRequestDao) (*launch.LiquidityRequest, error) {
	amount, err := decimal.NewFromString(dao.Amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for request %s: %w", dao.Amount, dao.RequestID, err)
	}

	r := &launch.LiquidityRequest{
		RequestID:   dao.RequestID,
		TokenID:     dao.TokenID,
		SourceChain: dao.SourceChain,
		TargetChain: dao.TargetChain,
		Amount:      amount,
		Status:      launch.RequestStatus(dao.Status),
		Attempts:    dao.Attempts,
		NextAttempt: dao.NextAttempt,
		CreatedAt:   dao.CreatedAt,
		UpdatedAt:   dao.UpdatedAt,
		CompletedAt: dao.CompletedAt,
	}
	if dao.SourceTxHash != nil {
		r.SourceTxHash = *dao.SourceTxHash
	}
	if dao.DestTxHash != nil {
		r.DestTxHash = *dao.DestTxHash
	}
	if dao.ErrorMessage != nil {
		r.ErrorMessage = *dao.ErrorMessage
	}
	return r, nil
}
