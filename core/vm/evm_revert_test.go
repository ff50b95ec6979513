package vm

import (
	"testing"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// sstoreThenRevertCode writes 1 to slot 0, then REVERTs with no return
// data: PUSH1 1; PUSH1 0; SSTORE; PUSH1 0; PUSH1 0; REVERT.
var sstoreThenRevertCode = []byte{
	byte(PUSH1), 0x01,
	byte(PUSH1), 0x00,
	byte(SSTORE),
	byte(PUSH1), 0x00,
	byte(PUSH1), 0x00,
	byte(REVERT),
}

// seedContract installs code under addr in both view and an account
// record, so StateDB.GetCode resolves it the way a deployed contract
// would.
func seedContract(view *memStateView, addr common.Address, code []byte) {
	hash := common.Hash(types.Code(code).Hash())
	view.accounts[addr] = &types.Account{
		Balance:  new(uint256.Int),
		CodeHash: hash.Bytes(),
	}
	view.code[hash] = types.Code(code)
}

// TestCallRevertRestoresState exercises §4.2/§4.4/§4.8's call-frame
// revert contract: a CALL whose code writes storage and then REVERTs
// must leave the callee's storage exactly as it was, and must preserve
// the frame's leftover gas (ErrExecutionReverted is the one error that
// does not consume the rest of the frame's gas, per Call's doc comment).
func TestCallRevertRestoresState(t *testing.T) {
	caller := common.HexToAddress("0x01")
	callee := common.HexToAddress("0x02")
	slot := common.HexToHash("0x00")

	view := newMemStateView()
	view.accounts[caller] = &types.Account{Balance: uint256.NewInt(1_000_000)}
	seedContract(view, callee, sstoreThenRevertCode)

	evm, sdb := newTestEVM(t, view)

	const gasGiven = 100_000
	ret, leftover, err := evm.Call(AccountRef(caller), callee, nil, gasGiven, new(uint256.Int))
	if err != ErrExecutionReverted {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
	if len(ret) != 0 {
		t.Fatalf("ret = %x, want empty (REVERT with zero-length data)", ret)
	}
	if leftover == 0 || leftover >= gasGiven {
		t.Fatalf("leftover gas = %d, want a nonzero amount less than %d (REVERT must not zero out the frame's gas)", leftover, gasGiven)
	}

	if got := sdb.GetStorage(callee, slot); got != (common.Hash{}) {
		t.Errorf("callee storage after revert = %x, want zero value (write must be rolled back)", got)
	}
}

// TestCreateRevertLeavesNoCodeOrNonce mirrors the CALL case for CREATE:
// init code that reverts must leave the target address with no code and
// no nonce bump, while the caller's nonce increment, made in create
// before the frame is entered, stays.
func TestCreateRevertLeavesNoCodeOrNonce(t *testing.T) {
	caller := common.HexToAddress("0x10")

	view := newMemStateView()
	view.accounts[caller] = &types.Account{Balance: uint256.NewInt(1_000_000)}

	evm, sdb := newTestEVM(t, view)

	ret, addr, _, err := evm.Create(AccountRef(caller), sstoreThenRevertCode, 200_000, new(uint256.Int))
	if err != ErrExecutionReverted {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
	if len(ret) != 0 {
		t.Fatalf("ret = %x, want empty", ret)
	}

	deployed := sdb.GetAccount(addr)
	if deployed.Nonce != 0 {
		t.Errorf("deployed address nonce = %d, want 0 (CREATE's own nonce bump must roll back on revert)", deployed.Nonce)
	}
	if code := sdb.GetCode(addr); len(code) != 0 {
		t.Errorf("deployed address code = %x, want none (failed deployment must not install code)", code)
	}

	callerNonce := sdb.GetAccount(caller).Nonce
	if callerNonce != 1 {
		t.Errorf("caller nonce = %d, want 1 (the sender's nonce bump happens before the frame opens and is never reverted)", callerNonce)
	}
}
