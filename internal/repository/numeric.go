package repository

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// Amounts and memos use the full uint64 range, which BIGINT cannot hold, so
// they are stored as NUMERIC(20,0).

func toNumeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func fromNumeric(n pgtype.Numeric) (uint64, error) {
	if !n.Valid || n.Int == nil {
		return 0, fmt.Errorf("numeric is null")
	}
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	} else if n.Exp < 0 {
		div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)
		var rem big.Int
		v.QuoRem(v, div, &rem)
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("numeric %s is not an integer", n.Int)
		}
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("numeric out of uint64 range")
	}
	return v.Uint64(), nil
}
