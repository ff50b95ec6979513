package substate

import (
	"testing"

	"github.com/ethcore/execevm/common"
	"github.com/stretchr/testify/require"
)

func TestAddAccessedAddressWarmth(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x01")
	require.False(t, s.AddAccessedAddress(addr))
	require.True(t, s.AddAccessedAddress(addr))
}

func TestPushRevertIsNoop(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x01")
	s.AddAccessedAddress(addr)
	s.AddRefund(100)

	s.PushBackup()
	other := common.HexToAddress("0x02")
	s.AddAccessedAddress(other)
	s.AddRefund(50)
	s.RevertBackup()

	require.True(t, s.AddressInAccessList(addr))
	require.False(t, s.AddressInAccessList(other))
	require.EqualValues(t, 100, s.RefundGas())
}

func TestCommitMergesChildIntoParent(t *testing.T) {
	s := New()
	s.PushBackup()
	addr := common.HexToAddress("0x03")
	s.AddAccessedAddress(addr)
	s.AddRefund(10)
	s.CommitBackup()

	require.Equal(t, 1, s.Depth())
	require.True(t, s.AddressInAccessList(addr))
	require.EqualValues(t, 10, s.RefundGas())
}

func TestMakeAccessListSorted(t *testing.T) {
	s := New()
	a2 := common.HexToAddress("0x02")
	a1 := common.HexToAddress("0x01")
	s.AddAccessedAddress(a2)
	s.AddAccessedAddress(a1)
	k2 := common.HexToHash("0x02")
	k1 := common.HexToHash("0x01")
	s.AddAccessedSlot(a1, k2)
	s.AddAccessedSlot(a1, k1)

	al := s.MakeAccessList()
	require.Len(t, al, 2)
	require.Equal(t, a1, al[0].Address)
	require.Equal(t, a2, al[1].Address)
	require.Equal(t, []common.Hash{k1, k2}, al[0].StorageKeys)
}

func TestTransientStorageSetGet(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x01")
	key := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")
	s.SetTransient(addr, key, val)
	require.Equal(t, val, s.GetTransient(addr, key))
}
