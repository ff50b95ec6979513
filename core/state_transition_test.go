package core

import (
	"testing"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/substate"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/core/vm"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

// emptyStateView is a StateView with nothing in it: every account, slot
// and code lookup reports "not found" rather than erroring, the shape
// StateDB.getOrLoad expects for a fresh chain.
type emptyStateView struct{}

func (emptyStateView) GetAccount(common.Address) (*types.Account, error)      { return nil, nil }
func (emptyStateView) GetStorage(common.Address, common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}
func (emptyStateView) GetCode(common.Hash) (types.Code, error) { return nil, nil }

func newTestEVM(statedb *state.StateDB, origin common.Address) *vm.EVM {
	header := &types.Header{
		Number:   new(uint256.Int).SetUint64(1),
		GasLimit: 30_000_000,
		BaseFee:  new(uint256.Int),
		Time:     1,
	}
	blockCtx := vm.BlockContext{
		CanTransfer: CanTransfer,
		Transfer:    Transfer,
		GetHash:     GetHashFn(header, nil),
		Coinbase:    common.Address{},
		GasLimit:    header.GasLimit,
		BlockNumber: header.Number,
		Time:        header.Time,
		BaseFee:     header.BaseFee,
	}
	txCtx := vm.TxContext{Origin: origin, GasPrice: new(uint256.Int)}
	return vm.NewEVM(blockCtx, txCtx, statedb, substate.New(), params.AllForksEnabledChainConfig, vm.Config{})
}

func TestIntrinsicGas(t *testing.T) {
	tests := []struct {
		name               string
		data               []byte
		accessList         types.AccessList
		authList           []types.Authorization
		isContractCreation bool
		isHomestead        bool
		isEIP2028          bool
		isEIP3860          bool
		want               uint64
	}{
		{
			name: "NoData",
			data: []byte{},
			want: params.TxGas,
		},
		{
			name: "NonZeroData",
			data: []byte{1, 2, 3, 4, 5},
			want: params.TxGas + 5*params.TxDataNonZeroGasFrontier,
		},
		{
			name: "ZeroAndNonZeroData",
			data: []byte{0, 1, 0, 2, 0, 3},
			want: params.TxGas + 3*params.TxDataZeroGas + 3*params.TxDataNonZeroGasFrontier,
		},
		{
			name:               "ContractCreation",
			data:               []byte{},
			isContractCreation: true,
			isHomestead:        true,
			want:               params.TxGasContractCreation,
		},
		{
			name:       "AccessList",
			data:       []byte{},
			accessList: types.AccessList{{Address: common.Address{1}, StorageKeys: []common.Hash{{2}, {3}}}},
			want:       params.TxGas + params.TxAccessListAddressGas + 2*params.TxAccessListStorageKeyGas,
		},
		{
			name:     "AuthList",
			data:     []byte{},
			authList: []types.Authorization{{}},
			want:     params.TxGas + params.PerEmptyAccountCost,
		},
		{
			name:      "EIP2028",
			data:      []byte{1, 2, 3, 4, 5},
			isEIP2028: true,
			want:      params.TxGas + 5*params.TxDataNonZeroGasEIP2028,
		},
		{
			name:               "EIP3860",
			data:               []byte{1, 2, 3, 4, 5},
			isContractCreation: true,
			isEIP3860:          true,
			want:               params.TxGas + 5*params.TxDataNonZeroGasFrontier + toWordSize(5)*params.InitCodeWordGas,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntrinsicGas(tt.data, tt.accessList, tt.authList, tt.isContractCreation, tt.isHomestead, tt.isEIP2028, tt.isEIP3860)
			if err != nil {
				t.Fatalf("unexpected IntrinsicGas() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("wrong IntrinsicGas() result: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFloorDataGas(t *testing.T) {
	got, err := FloorDataGas([]byte{0, 1, 0, 2})
	if err != nil {
		t.Fatalf("unexpected FloorDataGas() error: %v", err)
	}
	want := params.TxGas + (2*1+2*4)*params.TxTotalCostFloorPerTokenEIP7623
	if got != want {
		t.Errorf("wrong FloorDataGas() result: got %d, want %d", got, want)
	}
}

func TestApplyMessageSimpleTransfer(t *testing.T) {
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")

	statedb := state.New(emptyStateView{}, common.HexToAddress(params.SystemAddress))
	statedb.SetBalance(sender, uint256.NewInt(1_000_000_000_000))

	evm := newTestEVM(statedb, sender)

	msg := &Message{
		From:      sender,
		To:        &recipient,
		Value:     uint256.NewInt(1000),
		GasLimit:  params.TxGas,
		GasPrice:  new(uint256.Int),
		GasFeeCap: new(uint256.Int),
		GasTipCap: new(uint256.Int),
	}

	gp := new(GasPool).AddGas(params.TxGas)
	res, err := ApplyMessage(evm, msg, gp)
	if err != nil {
		t.Fatalf("ApplyMessage failed: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected execution error: %v", res.Err)
	}
	if res.UsedGas != params.TxGas {
		t.Errorf("wrong gas used: got %d, want %d", res.UsedGas, params.TxGas)
	}
	if got := statedb.GetAccount(recipient).Balance.Uint64(); got != 1000 {
		t.Errorf("recipient balance = %d, want 1000", got)
	}
	if got := statedb.GetAccount(sender).Nonce; got != 1 {
		t.Errorf("sender nonce = %d, want 1", got)
	}
}

func TestApplyMessageInsufficientFunds(t *testing.T) {
	sender := common.HexToAddress("0x3333333333333333333333333333333333333333")
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")

	statedb := state.New(emptyStateView{}, common.HexToAddress(params.SystemAddress))
	evm := newTestEVM(statedb, sender)

	msg := &Message{
		From:      sender,
		To:        &recipient,
		Value:     uint256.NewInt(1),
		GasLimit:  params.TxGas,
		GasPrice:  uint256.NewInt(1),
		GasFeeCap: uint256.NewInt(1),
		GasTipCap: new(uint256.Int),
	}

	gp := new(GasPool).AddGas(params.TxGas)
	if _, err := ApplyMessage(evm, msg, gp); err == nil {
		t.Fatal("expected insufficient-funds error, got nil")
	}
}
