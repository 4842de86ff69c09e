// Package curve implements the bonding-curve arithmetic shared by every
// chain. The spot price is a pure function of the token's global supply, so
// all chains quote the same price as soon as it is recomputed.
package curve

import (
	"github.com/shopspring/decimal"

	"github.com/launchforge/curve-middleware/pkg/launch"
)

var (
	minReserveRatio = decimal.RequireFromString("0.3")
	criticalRatio   = decimal.RequireFromString("0.5")
	surplusRatio    = decimal.RequireFromString("1.5")
	hundred         = decimal.NewFromInt(100)
)

// Price returns basePrice + slope * globalSupply.
func Price(params *launch.CurveParams, globalSupply decimal.Decimal) decimal.Decimal {
	return params.BasePrice.Add(params.Slope.Mul(globalSupply))
}

// MarketCap returns the market-cap projection of one chain: the global price
// weighted by that chain's own sold supply.
func MarketCap(price, localSupply decimal.Decimal) decimal.Decimal {
	return price.Mul(localSupply)
}

// IdealReserve returns the share of the token's total reserve a chain should
// hold, proportional to its share of total supply. When total supply is zero
// the total reserve is split equally across chainCount chains.
func IdealReserve(totalReserve, chainSupply, totalSupply decimal.Decimal, chainCount int) decimal.Decimal {
	if totalSupply.IsZero() {
		if chainCount == 0 {
			return decimal.Zero
		}
		return totalReserve.Div(decimal.NewFromInt(int64(chainCount)))
	}
	return totalReserve.Mul(chainSupply).Div(totalSupply)
}

// MinReserve returns the floor below which a chain is underfunded: 30% of
// its ideal allocation.
func MinReserve(idealReserve decimal.Decimal) decimal.Decimal {
	return idealReserve.Mul(minReserveRatio)
}

// ClassifyReserve maps a chain's reserve against its ideal allocation:
// critical below half the minimum, low below the minimum, sufficient
// otherwise.
func ClassifyReserve(reserve, idealReserve decimal.Decimal) launch.ReserveStatus {
	min := MinReserve(idealReserve)
	switch {
	case reserve.LessThan(min.Mul(criticalRatio)):
		return launch.ReserveCritical
	case reserve.LessThan(min):
		return launch.ReserveLow
	default:
		return launch.ReserveSufficient
	}
}

// IsSurplus reports whether a chain holds enough above its ideal allocation
// to be a rebalance donor.
func IsSurplus(reserve, idealReserve decimal.Decimal) bool {
	return reserve.GreaterThan(idealReserve.Mul(surplusRatio))
}

// GraduationProgress returns marketCap/threshold as a percentage, capped at
// 100. A non-positive threshold yields zero progress.
func GraduationProgress(marketCap, threshold decimal.Decimal) decimal.Decimal {
	if !threshold.IsPositive() {
		return decimal.Zero
	}
	progress := marketCap.Div(threshold).Mul(hundred)
	if progress.GreaterThan(hundred) {
		return hundred
	}
	return progress
}
