package core

import (
	"errors"
	"fmt"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/core/vm"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

// systemCallGasLimit is the gas every synthetic system-contract invocation
// is granted; system calls never draw from the block's own gas pool and
// are exempt from block-gas-limit enforcement (§4.7).
const systemCallGasLimit = 30_000_000

// ErrMissingSystemContract reports that a fork mandates a system contract
// whose code is absent from state, invalidating the block (§4.7).
var ErrMissingSystemContract = errors.New("core: mandated system contract has no code")

var systemCaller = common.HexToAddress(params.SystemAddress)

// runSystemCall invokes the contract at addr as the synthetic system
// address, with zero value, zero gas price and no nonce/balance checks.
// It flags the BAL recorder so the system address's own touch never
// leaks into the block access list, while writes to other addresses are
// recorded normally (§4.7, §4.8). A contract with no code is either a
// hard block-invalidating error (mandatory) or a silent no-op.
func runSystemCall(evm *vm.EVM, addr common.Address, input []byte, mandatory bool) ([]byte, error) {
	if len(evm.StateDB.GetCode(addr)) == 0 {
		if mandatory {
			return nil, fmt.Errorf("%w: %s", ErrMissingSystemContract, addr.String())
		}
		return nil, nil
	}
	recorder := evm.StateDB.BALRecorderMut()
	recorder.SetInSystemCall(true)
	defer recorder.SetInSystemCall(false)

	ret, _, err := evm.Call(vm.AccountRef(systemCaller), addr, input, systemCallGasLimit, new(uint256.Int))
	return ret, err
}

// ApplyBeaconRootsSystemCall invokes the EIP-4788 beacon-roots contract
// with the parent beacon block root, run before any user transaction on
// every Cancun+ block (§4.6 step 1, §4.7).
func ApplyBeaconRootsSystemCall(evm *vm.EVM, beaconRoot common.Hash) error {
	_, err := runSystemCall(evm, common.HexToAddress(params.BeaconRootsAddress), beaconRoot.Bytes(), true)
	return err
}

// ApplyHistoryStorageSystemCall invokes the EIP-2935 history-storage
// contract with the parent hash, run before any user transaction on
// every Prague+ block (§4.6 step 1, §4.7).
func ApplyHistoryStorageSystemCall(evm *vm.EVM, parentHash common.Hash) error {
	_, err := runSystemCall(evm, common.HexToAddress(params.HistoryStorageAddress), parentHash.Bytes(), true)
	return err
}

// withdrawalRequestRecordSize is source_address(20) + validator_pubkey(48)
// + amount(8), the withdrawal-request predeploy's flat output layout.
const withdrawalRequestRecordSize = 20 + 48 + 8

// consolidationRequestRecordSize is source_address(20) + source_pubkey(48)
// + target_pubkey(48), the consolidation predeploy's flat output layout.
const consolidationRequestRecordSize = 20 + 48 + 48

// ProcessWithdrawalRequests calls the withdrawal-request predeploy after
// every user transaction has run and decodes its output into EIP-7685
// request records (Prague+, §4.6 step 5, §4.7). A missing contract is
// non-fatal here: the predeploy not existing just means no requests.
func ProcessWithdrawalRequests(evm *vm.EVM) ([]types.EncodedRequests, error) {
	ret, err := runSystemCall(evm, common.HexToAddress(params.WithdrawalRequestAddress), nil, false)
	if err != nil {
		return nil, err
	}
	return decodeFixedRecords(types.WithdrawalRequestType, ret, withdrawalRequestRecordSize), nil
}

// ProcessConsolidationRequests calls the consolidation-request predeploy
// the same way ProcessWithdrawalRequests does (Prague+, §4.7).
func ProcessConsolidationRequests(evm *vm.EVM) ([]types.EncodedRequests, error) {
	ret, err := runSystemCall(evm, common.HexToAddress(params.ConsolidationRequestAddress), nil, false)
	if err != nil {
		return nil, err
	}
	return decodeFixedRecords(types.ConsolidationRequestType, ret, consolidationRequestRecordSize), nil
}

// decodeFixedRecords splits a predeploy's flat output into recordSize
// chunks, each wrapped as one EIP-7685 encoded request of typ. A trailing
// partial record (malformed predeploy output) is dropped.
func decodeFixedRecords(typ byte, data []byte, recordSize int) []types.EncodedRequests {
	if len(data) == 0 || recordSize <= 0 {
		return nil
	}
	var out []types.EncodedRequests
	for off := 0; off+recordSize <= len(data); off += recordSize {
		out = append(out, types.EncodedRequests{Type: typ, Data: data[off : off+recordSize]})
	}
	return out
}
