package launchstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/launchforge/curve-middleware/pkg/launch"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the deployment store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) CreateDeployment(ctx context.Context, d *launch.Deployment) error {
	dao := toDeploymentDao(d)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return ErrDeploymentExists
		}
		return fmt.Errorf("failed to create deployment: %w", err)
	}
	return nil
}

func (s *pgStore) GetDeployment(ctx context.Context, tokenID, chain string) (*launch.Deployment, error) {
	dao := new(DeploymentDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("token_id = ?", tokenID).
		Where("chain = ?", chain).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	return toDeployment(dao)
}

func (s *pgStore) ListDeployments(ctx context.Context, tokenID string) ([]*launch.Deployment, error) {
	var daos []DeploymentDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("token_id = ?", tokenID).
		Order("chain ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	deployments := make([]*launch.Deployment, len(daos))
	for i := range daos {
		d, err := toDeployment(&daos[i])
		if err != nil {
			return nil, err
		}
		deployments[i] = d
	}
	return deployments, nil
}

func (s *pgStore) ListTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	err := s.db.NewSelect().
		Model((*DeploymentDao)(nil)).
		ColumnExpr("DISTINCT token_id").
		Order("token_id ASC").
		Scan(ctx, &tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

func (s *pgStore) SetLocalSupply(ctx context.Context, tokenID, chain string, supply decimal.Decimal) error {
	res, err := s.db.NewUpdate().
		Model((*DeploymentDao)(nil)).
		Set("local_supply = ?", supply.String()).
		Set("updated_at = NOW()").
		Where("token_id = ?", tokenID).
		Where("chain = ?", chain).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set local supply: %w", err)
	}
	return requireAffected(res, ErrDeploymentNotFound)
}

func (s *pgStore) SetMarketCap(ctx context.Context, tokenID, chain string, marketCap decimal.Decimal) error {
	res, err := s.db.NewUpdate().
		Model((*DeploymentDao)(nil)).
		Set("market_cap = ?", marketCap.String()).
		Set("updated_at = NOW()").
		Where("token_id = ?", tokenID).
		Where("chain = ?", chain).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set market cap: %w", err)
	}
	return requireAffected(res, ErrDeploymentNotFound)
}

func (s *pgStore) AdjustLocalReserve(ctx context.Context, tokenID, chain string, delta decimal.Decimal) error {
	res, err := s.db.NewUpdate().
		Model((*DeploymentDao)(nil)).
		Set("local_reserve = COALESCE(local_reserve, 0) + ?::DECIMAL", delta.String()).
		Set("updated_at = NOW()").
		Where("token_id = ?", tokenID).
		Where("chain = ?", chain).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to adjust local reserve: %w", err)
	}
	return requireAffected(res, ErrDeploymentNotFound)
}

// MarkGraduated commits the terminal transition and its evidence in one
// update. The graduated guard makes replays no-ops.
func (s *pgStore) MarkGraduated(ctx context.Context, tokenID, chain, poolAddress, txHash string) error {
	_, err := s.db.NewUpdate().
		Model((*DeploymentDao)(nil)).
		Set("graduated = TRUE").
		Set("graduated_at = NOW()").
		Set("pool_address = ?", poolAddress).
		Set("graduation_tx_hash = ?", txHash).
		Set("updated_at = NOW()").
		Where("token_id = ?", tokenID).
		Where("chain = ?", chain).
		Where("graduated = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark graduated: %w", err)
	}
	return nil
}

func (s *pgStore) GetCurveParams(ctx context.Context, tokenID string) (*launch.CurveParams, error) {
	dao := new(CurveParamsDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("token_id = ?", tokenID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCurveParamsNotFound
		}
		return nil, fmt.Errorf("failed to get curve params: %w", err)
	}
	return toCurveParams(dao)
}

func (s *pgStore) SetCurveParams(ctx context.Context, p *launch.CurveParams) error {
	dao := toCurveParamsDao(p)

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (token_id) DO UPDATE").
		Set("base_price = EXCLUDED.base_price").
		Set("slope = EXCLUDED.slope").
		Set("graduation_threshold = EXCLUDED.graduation_threshold").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set curve params: %w", err)
	}
	return nil
}

// CreateLiquidityRequest inserts a request row. A replay with an already
// known request id is a no-op, which makes the bridge handshake idempotent.
func (s *pgStore) CreateLiquidityRequest(ctx context.Context, r *launch.LiquidityRequest) error {
	dao := toLiquidityRequestDao(r)

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (request_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create liquidity request: %w", err)
	}
	return nil
}

func (s *pgStore) GetLiquidityRequest(ctx context.Context, requestID string) (*launch.LiquidityRequest, error) {
	dao := new(LiquidityRequestDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("request_id = ?", requestID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get liquidity request: %w", err)
	}
	return toLiquidityRequest(dao)
}

func (s *pgStore) ListUnsettledRequests(ctx context.Context) ([]*launch.LiquidityRequest, error) {
	var daos []LiquidityRequestDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("status IN (?)", bun.In([]string{
			string(launch.RequestStatusPending),
			string(launch.RequestStatusBridging),
		})).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled requests: %w", err)
	}

	requests := make([]*launch.LiquidityRequest, len(daos))
	for i := range daos {
		r, err := toLiquidityRequest(&daos[i])
		if err != nil {
			return nil, err
		}
		requests[i] = r
	}
	return requests, nil
}

func (s *pgStore) MarkRequestBridging(ctx context.Context, requestID, sourceTxHash string) error {
	res, err := s.db.NewUpdate().
		Model((*LiquidityRequestDao)(nil)).
		Set("status = ?", string(launch.RequestStatusBridging)).
		Set("source_tx_hash = ?", sourceTxHash).
		Set("updated_at = NOW()").
		Where("request_id = ?", requestID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark request bridging: %w", err)
	}
	return requireAffected(res, ErrRequestNotFound)
}

func (s *pgStore) MarkRequestCompleted(ctx context.Context, requestID, destTxHash string) error {
	res, err := s.db.NewUpdate().
		Model((*LiquidityRequestDao)(nil)).
		Set("status = ?", string(launch.RequestStatusCompleted)).
		Set("dest_tx_hash = ?", destTxHash).
		Set("completed_at = NOW()").
		Set("updated_at = NOW()").
		Where("request_id = ?", requestID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark request completed: %w", err)
	}
	return requireAffected(res, ErrRequestNotFound)
}

func (s *pgStore) MarkRequestFailed(ctx context.Context, requestID, message string) error {
	res, err := s.db.NewUpdate().
		Model((*LiquidityRequestDao)(nil)).
		Set("status = ?", string(launch.RequestStatusFailed)).
		Set("error_message = ?", message).
		Set("updated_at = NOW()").
		Where("request_id = ?", requestID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark request failed: %w", err)
	}
	return requireAffected(res, ErrRequestNotFound)
}

func (s *pgStore) RecordRequestAttempt(ctx context.Context, requestID string, nextAttempt time.Time, message string) error {
	res, err := s.db.NewUpdate().
		Model((*LiquidityRequestDao)(nil)).
		Set("attempts = attempts + 1").
		Set("next_attempt = ?", nextAttempt).
		Set("error_message = ?", message).
		Set("updated_at = NOW()").
		Where("request_id = ?", requestID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record request attempt: %w", err)
	}
	return requireAffected(res, ErrRequestNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
