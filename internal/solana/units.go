package solana

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// ToSOL converts lamports to SOL.
func ToSOL(lamports uint64) decimal.Decimal {
	return FromBaseUnits(lamports, 9)
}

// FromBaseUnits scales an on-chain integer amount by the token's decimals.
func FromBaseUnits(amount uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals)
}

// ToLamports converts SOL to lamports, rounding to the nearest lamport.
// Negative amounts convert to zero.
func ToLamports(sol decimal.Decimal) uint64 {
	if sol.IsNegative() {
		return 0
	}
	return uint64(sol.Shift(9).Round(0).IntPart())
}
