package state

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// journalEntry is a single reversible change to the working account cache,
// following the same revert/dirtied shape as journal_arbitrum.go's
// wasmActivation entry, generalized to every mutation kind the generalized
// database (§4.1) can make.
type journalEntry interface {
	revert(s *StateDB)
	dirtied() *common.Address
}

// journal is the undo log backing StateDB.Snapshot/RevertToSnapshot, and by
// extension UndoLastTransaction.
type journal struct {
	entries []journalEntry
	dirties map[common.Address]int
}

func newJournal() *journal {
	return &journal{dirties: make(map[common.Address]int)}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
	if addr := entry.dirtied(); addr != nil {
		j.dirties[*addr]++
	}
}

func (j *journal) length() int { return len(j.entries) }

// revertTo replays entries newest-first back down to snapshot index id.
func (j *journal) revertTo(s *StateDB, id int) {
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i].revert(s)
		if addr := j.entries[i].dirtied(); addr != nil {
			if j.dirties[*addr]--; j.dirties[*addr] == 0 {
				delete(j.dirties, *addr)
			}
		}
	}
	j.entries = j.entries[:id]
}

type createAccountChange struct {
	addr common.Address
}

func (c createAccountChange) revert(s *StateDB) {
	delete(s.accounts, c.addr)
}
func (c createAccountChange) dirtied() *common.Address { return &c.addr }

type balanceChange struct {
	addr common.Address
	prev *uint256.Int
}

func (c balanceChange) revert(s *StateDB) {
	s.accounts[c.addr].account.Balance = c.prev
}
func (c balanceChange) dirtied() *common.Address { return &c.addr }

type nonceChange struct {
	addr common.Address
	prev uint64
}

func (c nonceChange) revert(s *StateDB) {
	s.accounts[c.addr].account.Nonce = c.prev
}
func (c nonceChange) dirtied() *common.Address { return &c.addr }

type codeChange struct {
	addr     common.Address
	prevHash []byte
	prevCode types.Code
}

func (c codeChange) revert(s *StateDB) {
	obj := s.accounts[c.addr]
	obj.account.CodeHash = c.prevHash
	obj.code = c.prevCode
}
func (c codeChange) dirtied() *common.Address { return &c.addr }

type storageChange struct {
	addr common.Address
	key  common.Hash
	prev common.Hash
	had  bool
}

func (c storageChange) revert(s *StateDB) {
	obj := s.accounts[c.addr]
	if c.had {
		obj.dirtyStorage[c.key] = c.prev
	} else {
		delete(obj.dirtyStorage, c.key)
	}
}
func (c storageChange) dirtied() *common.Address { return &c.addr }

type destructChange struct {
	addr common.Address
	prev bool
}

func (c destructChange) revert(s *StateDB) {
	s.accounts[c.addr].destructed = c.prev
}
func (c destructChange) dirtied() *common.Address { return &c.addr }
