package state

import (
	"testing"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	accounts map[common.Address]*types.Account
	storage  map[common.Address]map[common.Hash]common.Hash
}

func newFakeView() *fakeView {
	return &fakeView{
		accounts: make(map[common.Address]*types.Account),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (v *fakeView) GetAccount(addr common.Address) (*types.Account, error) {
	if a, ok := v.accounts[addr]; ok {
		return a.Copy(), nil
	}
	return nil, nil
}

func (v *fakeView) GetStorage(addr common.Address, key common.Hash) (common.Hash, error) {
	return v.storage[addr][key], nil
}

func (v *fakeView) GetCode(hash common.Hash) (types.Code, error) { return nil, nil }

func TestSetBalanceJournalsAndReverts(t *testing.T) {
	s := New(newFakeView(), common.Address{})
	addr := common.HexToAddress("0x01")

	snap := s.Snapshot()
	s.SetBalance(addr, uint256.NewInt(100))
	require.True(t, s.GetAccount(addr).Balance.Eq(uint256.NewInt(100)))

	s.RevertToSnapshot(snap)
	require.True(t, s.GetAccount(addr).Balance.IsZero())
}

func TestSetStorageRevert(t *testing.T) {
	s := New(newFakeView(), common.Address{})
	addr := common.HexToAddress("0x01")
	key := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")

	snap := s.Snapshot()
	s.SetStorage(addr, key, val)
	require.Equal(t, val, s.GetStorage(addr, key))

	s.RevertToSnapshot(snap)
	require.Equal(t, common.Hash{}, s.GetStorage(addr, key))
}

func TestUndoLastTransaction(t *testing.T) {
	s := New(newFakeView(), common.Address{})
	addr := common.HexToAddress("0x01")

	s.BeginTx()
	s.SetNonce(addr, 1)
	require.EqualValues(t, 1, s.GetAccount(addr).Nonce)

	s.UndoLastTransaction()
	require.EqualValues(t, 0, s.GetAccount(addr).Nonce)
}

func TestSelfDestructTracked(t *testing.T) {
	s := New(newFakeView(), common.Address{})
	addr := common.HexToAddress("0x01")
	require.False(t, s.HasSelfDestructed(addr))
	s.SelfDestruct(addr)
	require.True(t, s.HasSelfDestructed(addr))
}

func TestGetStateTransitionsReflectsWrites(t *testing.T) {
	s := New(newFakeView(), common.Address{})
	addr := common.HexToAddress("0x01")
	key := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")

	s.SetBalance(addr, uint256.NewInt(7))
	s.SetStorage(addr, key, val)

	updates := s.GetStateTransitions()
	require.Len(t, updates, 1)
	require.Equal(t, addr, updates[0].Address)
	require.True(t, updates[0].Balance.Eq(uint256.NewInt(7)))
	require.Equal(t, val, updates[0].Storage[key])
}

func TestBALRecordingRequiresEnable(t *testing.T) {
	s := New(newFakeView(), common.Address{})
	addr := common.HexToAddress("0x01")
	s.SetBalance(addr, uint256.NewInt(1))
	require.Nil(t, s.TakeBAL())

	s2 := New(newFakeView(), common.Address{})
	s2.EnableBALRecording()
	s2.SetBalance(addr, uint256.NewInt(1))
	bal := s2.TakeBAL()
	require.Len(t, bal, 1)
	require.Equal(t, addr, bal[0].Address)
}
