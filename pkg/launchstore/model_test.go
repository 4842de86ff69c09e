package launchstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/launchforge/curve-middleware/pkg/launch"
)

func TestDeploymentConversionRoundTrip(t *testing.T) {
	d := &launch.Deployment{
		TokenID:      "tok-1",
		Chain:        "base",
		TokenAddress: "0xtoken",
		CurveAddress: "0xcurve",
		Status:       launch.DeploymentStatusDeployed,
		LocalSupply:  decimal.RequireFromString("1234.5"),
		LocalReserve: decimal.RequireFromString("0.000000000000000001"),
		MarketCap:    decimal.RequireFromString("42"),
		PoolAddress:  "0xpool",
	}

	got, err := toDeployment(toDeploymentDao(d))
	require.NoError(t, err)
	require.Equal(t, d.TokenID, got.TokenID)
	require.Equal(t, d.Status, got.Status)
	require.True(t, got.LocalSupply.Equal(d.LocalSupply))
	require.True(t, got.LocalReserve.Equal(d.LocalReserve))
	require.Equal(t, "0xpool", got.PoolAddress)
	require.Empty(t, got.BridgeAddress)
}

func TestDeploymentConversionRejectsCorruptNumerics(t *testing.T) {
	dao := toDeploymentDao(&launch.Deployment{TokenID: "tok-1", Chain: "base"})
	dao.LocalReserve = "not-a-number"

	_, err := toDeployment(dao)
	require.Error(t, err)
	require.Contains(t, err.Error(), "local_reserve")
}

func TestCurveParamsConversionRejectsCorruptNumerics(t *testing.T) {
	dao := toCurveParamsDao(&launch.CurveParams{
		TokenID:   "tok-1",
		BasePrice: decimal.RequireFromString("0.0001"),
	})
	dao.Slope = ""

	_, err := toCurveParams(dao)
	require.Error(t, err)
	require.Contains(t, err.Error(), "slope")
}

func TestMemStoreRejectsDuplicateDeployment(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	d := &launch.Deployment{TokenID: "tok-1", Chain: "base", LocalReserve: decimal.NewFromInt(10)}
	require.NoError(t, store.CreateDeployment(ctx, d))

	err := store.CreateDeployment(ctx, &launch.Deployment{TokenID: "tok-1", Chain: "base"})
	require.ErrorIs(t, err, ErrDeploymentExists)

	// The original row survives the rejected insert
	got, err := store.GetDeployment(ctx, "tok-1", "base")
	require.NoError(t, err)
	require.True(t, got.LocalReserve.Equal(decimal.NewFromInt(10)))
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestRequireAffected(t *testing.T) {
	require.NoError(t, requireAffected(fakeResult{rows: 1}, ErrRequestNotFound))
	require.ErrorIs(t, requireAffected(fakeResult{rows: 0}, ErrRequestNotFound), ErrRequestNotFound)

	driverErr := errors.New("driver gave no row count")
	require.ErrorIs(t, requireAffected(fakeResult{err: driverErr}, ErrRequestNotFound), driverErr)
}

func TestLiquidityRequestConversionRoundTrip(t *testing.T) {
	r := &launch.LiquidityRequest{
		RequestID:    "0xreq",
		TokenID:      "tok-1",
		SourceChain:  "arbitrum",
		TargetChain:  "base",
		Amount:       decimal.RequireFromString("90.25"),
		Status:       launch.RequestStatusBridging,
		SourceTxHash: "0xsrctx",
		Attempts:     2,
	}

	got, err := toLiquidityRequest(toLiquidityRequestDao(r))
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(r.Amount))
	require.Equal(t, launch.RequestStatusBridging, got.Status)
	require.Equal(t, "0xsrctx", got.SourceTxHash)
	require.Empty(t, got.DestTxHash)
	require.Equal(t, 2, got.Attempts)
}
