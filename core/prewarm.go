package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// PrewarmTransactions concurrently resolves every account and code hash
// blk's transactions are about to touch (sender, recipient, and each
// access-list entry) against the block's read-only state view before the
// sequential execution loop in Process runs (§4.6). The fetched accounts
// and code are discarded: only caching done inside the view itself
// carries over, and the state package's code cache is not filled. It
// never mutates statedb — only
// concurrent reads against view, safe to race with nothing since
// execution hasn't started yet.
func PrewarmTransactions(ctx context.Context, view state.StateView, chainID uint64, baseFee *uint256.Int, txs []*types.Transaction) error {
	g, ctx := errgroup.WithContext(ctx)

	seen := make(map[common.Address]bool, len(txs)*2)
	warm := func(addr common.Address) {
		if seen[addr] {
			return
		}
		seen[addr] = true
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			acct, err := view.GetAccount(addr)
			if err != nil {
				return err
			}
			if acct == nil || len(acct.CodeHash) == 0 {
				return nil
			}
			hash := common.BytesToHash(acct.CodeHash)
			if hash == types.EmptyCodeHash {
				return nil
			}
			_, err = view.GetCode(hash)
			return err
		})
	}

	for _, tx := range txs {
		msg, err := TransactionToMessage(tx, chainID, baseFee)
		if err != nil {
			// Malformed transactions are reported by Process itself;
			// prewarming just skips what it can't decode.
			continue
		}
		warm(msg.From)
		if msg.To != nil {
			warm(*msg.To)
		}
		for _, entry := range msg.AccessList {
			warm(entry.Address)
		}
	}

	return g.Wait()
}
