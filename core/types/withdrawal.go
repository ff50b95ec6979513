package types

import (
	"github.com/ethcore/execevm/common"
	"github.com/holiman/uint256"
)

// Withdrawal is a validator withdrawal credited to an execution-layer
// account at the end of a block (EIP-4895), amounts given in gwei.
type Withdrawal struct {
	Index     uint64
	Validator uint64
	Address   common.Address
	Amount    uint64 // gwei
}

// AmountWei converts the withdrawal amount from gwei to wei, the unit the
// block executor credits balances in (§4.6 step 4).
func (w *Withdrawal) AmountWei() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(w.Amount), uint256.NewInt(1_000_000_000))
}
