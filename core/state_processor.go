package core

import (
	"context"
	"fmt"
	"time"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/substate"
	"github.com/ethcore/execevm/core/types"
	"github.com/ethcore/execevm/core/vm"
	"github.com/ethcore/execevm/crypto"
	"github.com/ethcore/execevm/log"
	"github.com/ethcore/execevm/metrics"
	"github.com/ethcore/execevm/params"
	"github.com/holiman/uint256"
)

var (
	blockExecutionTimer = metrics.NewRegisteredTimer("core/block/execution", nil)
	blockGasUsedMeter    = metrics.NewRegisteredMeter("core/block/gasused", nil)
	txAppliedMeter       = metrics.NewRegisteredMeter("core/tx/applied", nil)
	txFailedMeter        = metrics.NewRegisteredMeter("core/tx/failed", nil)
	blockInvalidMeter    = metrics.NewRegisteredMeter("core/block/invalid", nil)
)

// BlockInput is the minimal executor-relevant view of a block: its header
// plus the transactions and withdrawals it carries. Header validation,
// trie-root assembly and block-hash sealing are outside this component's
// scope (§8) and live in the caller that drives BlockProcessor.
type BlockInput struct {
	Header       *types.Header
	Transactions []*types.Transaction
	Withdrawals  []*types.Withdrawal
}

// BlockExecutionResult is everything §4.6/§6 says the block executor
// produces: receipts, the flattened log list, EIP-7685 requests, total
// gas used, and — Amsterdam+ — the recorded Block Access List.
type BlockExecutionResult struct {
	Receipts        types.Receipts
	Logs            []*types.Log
	Requests        []types.EncodedRequests
	GasUsed         uint64
	BlockAccessList types.BlockAccessList
}

// BlockProcessor executes a block's transactions against a StateDB. It is
// grounded on the teacher's StateProcessor (core/state_processor.go),
// generalized away from its concrete BlockChain/consensus.Engine/deepmind
// dependencies to the chain-agnostic ChainContext this package already
// uses for BLOCKHASH resolution (core/evm.go).
type BlockProcessor struct {
	config   *params.ChainConfig
	chain    ChainContext
	vmConfig vm.Config
}

// NewBlockProcessor returns a processor bound to config and chain.
func NewBlockProcessor(config *params.ChainConfig, chain ChainContext, vmConfig vm.Config) *BlockProcessor {
	return &BlockProcessor{config: config, chain: chain, vmConfig: vmConfig}
}

// Process executes every transaction in blk against statedb, in order,
// running the pre-execution system contracts first and the post-
// execution request extraction last, exactly as §4.6 sequences them. Any
// consensus-level failure (bad nonce, insufficient funds, gas pool
// exhaustion, a Prague-mandated system contract with no code) aborts with
// a non-nil error: the block itself is invalid, not just one transaction.
func (p *BlockProcessor) Process(blk *BlockInput, statedb *state.StateDB) (*BlockExecutionResult, error) {
	defer func(start time.Time) { blockExecutionTimer.Update(time.Since(start).Nanoseconds()) }(time.Now())

	header := blk.Header
	rules := p.config.Rules(header.Number.ToBig(), header.IsMerge(), header.Time)
	log.Debug("processing block", "number", header.Number, "txs", len(blk.Transactions))

	if rules.IsAmsterdam {
		statedb.EnableBALRecording()
	}
	statedb.SetBALIndex(0)

	blockCtx := NewEVMBlockContext(header, p.chain, nil)

	if err := p.runPreExecutionSystemCalls(rules, header, blockCtx, statedb); err != nil {
		blockInvalidMeter.Mark(1)
		log.Error("block rejected: pre-execution system call failed", "number", header.Number, "err", err)
		return nil, err
	}

	var (
		receipts      = make(types.Receipts, 0, len(blk.Transactions))
		allLogs       []*types.Log
		gp            = new(GasPool).AddGas(header.GasLimit)
		cumulativeGas uint64
		blockGasUsed  uint64
	)

	var baseFee *uint256.Int
	if rules.IsLondon {
		baseFee = header.BaseFee
	}

	if err := PrewarmTransactions(context.Background(), statedb.View(), p.config.ChainID.Uint64(), baseFee, blk.Transactions); err != nil {
		log.Debug("prewarm pass failed, continuing without it", "number", header.Number, "err", err)
	}

	for i, tx := range blk.Transactions {
		statedb.SetBALIndex(uint16(i + 1))

		msg, err := TransactionToMessage(tx, p.config.ChainID.Uint64(), baseFee)
		if err != nil {
			blockInvalidMeter.Mark(1)
			log.Error("block rejected: transaction message decode failed", "number", header.Number, "txIndex", i, "err", err)
			return nil, fmt.Errorf("core: transaction %d: %w", i, err)
		}
		statedb.BALRecorderMut().RecordTouchedAddress(msg.From)
		if msg.To != nil {
			statedb.BALRecorderMut().RecordTouchedAddress(*msg.To)
		}

		txEVM := vm.NewEVM(blockCtx, NewEVMTxContext(msg), statedb, substate.New(), p.config, p.vmConfig)
		result, err := ApplyMessage(txEVM, msg, gp)
		if err != nil {
			blockInvalidMeter.Mark(1)
			log.Error("block rejected: transaction failed to apply", "number", header.Number, "txIndex", i, "from", msg.From, "err", err)
			return nil, fmt.Errorf("core: transaction %d: %w", i, err)
		}
		if result.Err != nil {
			txFailedMeter.Mark(1)
			log.Debug("transaction reverted", "number", header.Number, "txIndex", i, "err", result.Err)
		} else {
			txAppliedMeter.Mark(1)
		}
		log.Trace("applied transaction", "number", header.Number, "txIndex", i, "gasUsed", result.UsedGas)

		// Receipts always cumulate post-refund gas. EIP-7778 (Amsterdam+):
		// the block's gas used sums the pre-refund amount instead; before
		// Amsterdam both figures are the post-refund amount.
		postRefundGas := result.UsedGas
		preRefundGas := result.UsedGas + result.RefundedGas
		cumulativeGas += postRefundGas
		if rules.IsAmsterdam {
			blockGasUsed += preRefundGas
		} else {
			blockGasUsed += postRefundGas
		}

		txHash, err := tx.Hash()
		if err != nil {
			return nil, fmt.Errorf("core: transaction %d: %w", i, err)
		}
		logs := txEVM.Substate.Logs()
		for _, l := range logs {
			l.BlockNumber = header.Number.Uint64()
			l.TxHash = txHash
			l.TxIndex = uint(i)
		}
		allLogs = append(allLogs, logs...)

		receipt := &types.Receipt{
			Type:              tx.Type(),
			CumulativeGasUsed: cumulativeGas,
			Logs:              logs,
			TxHash:            txHash,
			GasUsed:           postRefundGas,
			EffectiveGasPrice: msg.GasPrice,
			BlockNumber:       new(uint256.Int).Set(header.Number),
			TransactionIndex:  uint(i),
		}
		if result.Err == nil {
			receipt.Status = types.ReceiptStatusSuccessful
			if msg.To == nil {
				receipt.ContractAddress = crypto.CreateAddress(msg.From, msg.Nonce)
			}
		} else {
			receipt.Status = types.ReceiptStatusFailed
		}
		receipt.Bloom = types.CreateBloom(logs)
		receipts = append(receipts, receipt)
	}

	n := uint16(len(blk.Transactions))
	for _, w := range blk.Withdrawals {
		statedb.SetBALIndex(n + 1)
		prev := statedb.GetAccount(w.Address).Balance
		statedb.SetBalance(w.Address, new(uint256.Int).Add(prev, w.AmountWei()))
	}

	for i, l := range allLogs {
		l.Index = uint(i)
	}

	requests, err := p.collectRequests(rules, blockCtx, statedb, receipts)
	if err != nil {
		blockInvalidMeter.Mark(1)
		log.Error("block rejected: request extraction failed", "number", header.Number, "err", err)
		return nil, err
	}

	result := &BlockExecutionResult{
		Receipts: receipts,
		Logs:     allLogs,
		Requests: requests,
		GasUsed:  blockGasUsed,
	}
	if rules.IsAmsterdam {
		result.BlockAccessList = statedb.TakeBAL()
	}
	blockGasUsedMeter.Mark(int64(blockGasUsed))
	log.Debug("processed block", "number", header.Number, "gasUsed", blockGasUsed, "receipts", len(receipts))
	return result, nil
}

// runPreExecutionSystemCalls invokes the beacon-roots (Cancun+) and
// history-storage (Prague+) predeploys before any user transaction, both
// at BAL index 0 (§4.6 step 1, §4.7).
func (p *BlockProcessor) runPreExecutionSystemCalls(rules params.Rules, header *types.Header, blockCtx vm.BlockContext, statedb *state.StateDB) error {
	if rules.IsCancun {
		if header.ParentBeaconBlockRoot == nil {
			log.Warn("header missing required parent beacon block root", "number", header.Number)
			return ErrMissingBeaconRoot
		}
		evm := vm.NewEVM(blockCtx, vm.TxContext{}, statedb, substate.New(), p.config, p.vmConfig)
		if err := ApplyBeaconRootsSystemCall(evm, *header.ParentBeaconBlockRoot); err != nil {
			return err
		}
	}
	if rules.IsPrague {
		evm := vm.NewEVM(blockCtx, vm.TxContext{}, statedb, substate.New(), p.config, p.vmConfig)
		if err := ApplyHistoryStorageSystemCall(evm, header.ParentHash); err != nil {
			return err
		}
	}
	return nil
}

// collectRequests extracts the block's EIP-7685 requests (Prague+):
// deposit requests from the deposit contract's logs, then withdrawal and
// consolidation requests from their respective predeploys, in that order
// (§4.6 step 5, §4.7).
func (p *BlockProcessor) collectRequests(rules params.Rules, blockCtx vm.BlockContext, statedb *state.StateDB, receipts types.Receipts) ([]types.EncodedRequests, error) {
	if !rules.IsPrague {
		return nil, nil
	}
	var requests []types.EncodedRequests
	if depositAddr := p.config.DepositContractAddress; depositAddr != (common.Address{}) {
		for _, r := range receipts {
			for _, l := range r.Logs {
				if l.Address != depositAddr {
					continue
				}
				req, err := ParseDepositLog(l)
				if err != nil {
					continue
				}
				requests = append(requests, types.EncodedRequests{Type: types.DepositRequestType, Data: EncodeDepositRequest(req)})
			}
		}
	}

	evm := vm.NewEVM(blockCtx, vm.TxContext{}, statedb, substate.New(), p.config, p.vmConfig)
	wr, err := ProcessWithdrawalRequests(evm)
	if err != nil {
		return nil, err
	}
	requests = append(requests, wr...)

	cr, err := ProcessConsolidationRequests(evm)
	if err != nil {
		return nil, err
	}
	requests = append(requests, cr...)

	return requests, nil
}
