package vm

import (
	"testing"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// findAccountChanges returns addr's entry from a built BlockAccessList, if
// any.
func findAccountChanges(list types.BlockAccessList, addr common.Address) (types.AccountChanges, bool) {
	for _, ac := range list {
		if ac.Address == addr {
			return ac, true
		}
	}
	return types.AccountChanges{}, false
}

// TestBALRevertIsNetZero exercises §4.8's checkpoint/restore contract: a
// storage write made and then rolled back inside a reverted call frame
// must not appear as a storage change in the finalized Block Access
// List; the slot was still accessed, so the reverted write is demoted
// into a storage read.
func TestBALRevertIsNetZero(t *testing.T) {
	caller := common.HexToAddress("0x01")
	callee := common.HexToAddress("0x02")
	slot := common.HexToHash("0x00")

	view := newMemStateView()
	view.accounts[caller] = &types.Account{Balance: uint256.NewInt(1_000_000)}
	seedContract(view, callee, sstoreThenRevertCode)

	evm, sdb := newTestEVM(t, view)
	sdb.EnableBALRecording()
	sdb.SetBALIndex(1)

	_, _, err := evm.Call(AccountRef(caller), callee, nil, 100_000, new(uint256.Int))
	if err != ErrExecutionReverted {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}

	list := sdb.TakeBAL()
	ac, found := findAccountChanges(list, callee)
	if !found {
		t.Fatalf("callee %s missing from BAL (RecordTouchedAddress touches survive restore)", callee)
	}
	for _, sc := range ac.StorageChanges {
		if sc.Slot == slot {
			t.Errorf("slot %s has a recorded write %+v after a full revert, want none", slot, sc.Changes)
		}
	}
	read := false
	for _, r := range ac.StorageReads {
		if r == slot {
			read = true
		}
	}
	if !read {
		t.Errorf("slot %s missing from storage reads after a full revert, want the reverted write demoted to a read", slot)
	}
}

// sstoreOnlyCode writes 1 to slot 0 and STOPs (no revert), the positive
// control for TestBALRevertIsNetZero: a committed write must survive into
// the BAL exactly as made.
var sstoreOnlyCode = []byte{
	byte(PUSH1), 0x01,
	byte(PUSH1), 0x00,
	byte(SSTORE),
	byte(STOP),
}

func TestBALCommittedWriteSurvives(t *testing.T) {
	caller := common.HexToAddress("0x01")
	callee := common.HexToAddress("0x02")
	slot := common.HexToHash("0x00")

	view := newMemStateView()
	view.accounts[caller] = &types.Account{Balance: uint256.NewInt(1_000_000)}
	seedContract(view, callee, sstoreOnlyCode)

	evm, sdb := newTestEVM(t, view)
	sdb.EnableBALRecording()
	sdb.SetBALIndex(1)

	_, _, err := evm.Call(AccountRef(caller), callee, nil, 100_000, new(uint256.Int))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list := sdb.TakeBAL()
	ac, found := findAccountChanges(list, callee)
	if !found {
		t.Fatalf("callee %s missing from BAL", callee)
	}
	var got []types.StorageChange
	for _, sc := range ac.StorageChanges {
		if sc.Slot == slot {
			got = sc.Changes
		}
	}
	if len(got) != 1 || got[0].TxIndex != 1 || got[0].NewValue != common.HexToHash("0x01") {
		t.Errorf("slot %s changes = %+v, want one write of 1 at tx index 1", slot, got)
	}
}
