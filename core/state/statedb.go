// Package state implements the generalized database of spec §4.1: a
// mutable, journaled overlay of accounts, code, and storage layered over
// an immutable read-only state view, with Block Access List recording
// wired through every mutating entry point.
//
// The overlay and its undo log are grounded directly on go-ethereum's
// StateDB/journal split, as extended by the teacher's own
// journal_arbitrum.go (wasmActivation as a journalEntry) and
// statedb_arbitrum.go (arbExtraData side-channel, GetSelfDestructs via the
// journal's dirty set) — generalized here to the spec's account model
// instead of Arbitrum's Stylus bookkeeping.
package state

import (
	"fmt"
	"sort"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/bal"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

// codeCache holds content-addressed bytecode shared across every StateDB
// in the process: the same code hash recurs constantly (proxy/factory
// deployments, popular token implementations), and code is immutable once
// hashed, so a process-wide cache never needs per-instance invalidation.
var codeCache = fastcache.New(16 * 1024 * 1024)

// StateView is the immutable, read-only view of chain state that the
// overlay is layered on top of (§4.1).
type StateView interface {
	GetAccount(addr common.Address) (*types.Account, error)
	GetStorage(addr common.Address, key common.Hash) (common.Hash, error)
	GetCode(hash common.Hash) (types.Code, error)
}

type accountState struct {
	account *types.Account
	exists  bool

	code types.Code

	originalStorage map[common.Hash]common.Hash
	dirtyStorage    map[common.Hash]common.Hash

	destructed bool
}

func newAccountState() *accountState {
	return &accountState{
		originalStorage: make(map[common.Hash]common.Hash),
		dirtyStorage:    make(map[common.Hash]common.Hash),
	}
}

// AccountUpdate is one account's diff against StateView, as drained by
// GetStateTransitions for the trie engine to merkleize (§4.1).
type AccountUpdate struct {
	Address   common.Address
	Destroyed bool
	Nonce     *uint64
	Balance   *uint256.Int
	CodeHash  []byte
	Code      types.Code
	Storage   map[common.Hash]common.Hash
}

// StateDB is the mutable overlay: a lazily-populated cache of accounts and
// storage backed by a StateView, with a reversible journal and an optional
// BAL recorder.
type StateDB struct {
	db StateView

	accounts map[common.Address]*accountState

	journal *journal

	txStart int // journal length at the start of the current transaction

	balRecorder    *bal.Recorder
	balRecordingOn bool

	err error
}

// New constructs a StateDB over the given read-only view. systemAddress is
// the synthetic caller used for system contract invocations (§4.7), and is
// filtered out of BAL recording per Enable/§4.7.
func New(db StateView, systemAddress common.Address) *StateDB {
	return &StateDB{
		db:          db,
		accounts:    make(map[common.Address]*accountState),
		journal:     newJournal(),
		balRecorder: bal.NewRecorder(systemAddress),
	}
}

func (s *StateDB) setError(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first I/O or encoding error encountered, if any (§4.1
// error conditions: underlying state-view I/O error, invalid encoding).
func (s *StateDB) Err() error { return s.err }

// View returns the read-only state view this overlay is layered on, for
// callers that want to warm its caches without going through the
// journaled overlay (e.g. a block's concurrent prewarm pass).
func (s *StateDB) View() StateView { return s.db }

func (s *StateDB) getOrLoad(addr common.Address) *accountState {
	if obj, ok := s.accounts[addr]; ok {
		return obj
	}
	obj := newAccountState()
	acc, err := s.db.GetAccount(addr)
	if err != nil {
		s.setError(fmt.Errorf("state: load account %x: %w", addr, err))
		acc = types.NewEmptyAccount()
	}
	if acc != nil {
		obj.account = acc
		obj.exists = true
	} else {
		obj.account = types.NewEmptyAccount()
	}
	s.accounts[addr] = obj
	return obj
}

// GetAccount returns the current in-memory view of addr, lazily loading it
// from the underlying state view on first access (§4.1).
func (s *StateDB) GetAccount(addr common.Address) *types.Account {
	s.balRecorder.RecordTouchedAddress(addr)
	obj := s.getOrLoad(addr)
	return obj.account
}

// GetAccountMut ensures addr is loaded and returns a live handle whose
// field mutations are directly visible; creating-by-mutation is permitted
// (§4.1). Callers must route balance/nonce/code changes through the
// Set* helpers below instead of mutating fields directly, so the journal
// and BAL recorder stay consistent.
func (s *StateDB) GetAccountMut(addr common.Address) *types.Account {
	s.balRecorder.RecordTouchedAddress(addr)
	obj := s.getOrLoad(addr)
	if !obj.exists {
		s.journal.append(createAccountChange{addr: addr})
		obj.exists = true
	}
	return obj.account
}

// Exists reports whether addr's account exists and is non-empty (EIP-161);
// an account created this session that is still empty reports false.
func (s *StateDB) Exists(addr common.Address) bool {
	obj := s.getOrLoad(addr)
	return obj.exists && !obj.account.Empty()
}

// Empty reports whether addr has zero nonce, zero balance and no code
// (EIP-161), the test CALL-family value transfers use to decide whether
// the CallNewAccountGas surcharge applies.
func (s *StateDB) Empty(addr common.Address) bool {
	return s.GetAccount(addr).Empty()
}

// SetBalance updates addr's balance, journaling the previous value and
// notifying the BAL recorder of the post-state (§4.1, §4.8).
func (s *StateDB) SetBalance(addr common.Address, balance *uint256.Int) {
	obj := s.GetAccountMut(addr)
	s.journal.append(balanceChange{addr: addr, prev: obj.Balance})
	obj.Balance = balance
	s.balRecorder.RecordBalanceChange(addr, balance)
}

// SetInitialBalance records the pre-transaction balance for BAL round-trip
// detection without mutating state (§4.8).
func (s *StateDB) SetInitialBalance(addr common.Address, balance *uint256.Int) {
	s.balRecorder.SetInitialBalance(addr, balance)
}

// SetNonce updates addr's nonce.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	obj := s.GetAccountMut(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.Nonce})
	obj.Nonce = nonce
	s.balRecorder.RecordNonceChange(addr, nonce)
}

// GetAccountCode returns the code stored under hash, consulting the
// overlay first and falling back to the state view (§4.1).
func (s *StateDB) GetAccountCode(hash common.Hash) (types.Code, error) {
	for _, obj := range s.accounts {
		if obj.code != nil && common.Hash(obj.code.Hash()) == hash {
			return obj.code, nil
		}
	}
	return s.loadCode(hash)
}

// loadCode resolves hash through codeCache before falling back to the
// state view, populating the cache on a miss.
func (s *StateDB) loadCode(hash common.Hash) (types.Code, error) {
	if cached := codeCache.Get(nil, hash[:]); cached != nil {
		return types.Code(cached), nil
	}
	code, err := s.db.GetCode(hash)
	if err != nil {
		return nil, err
	}
	if len(code) > 0 {
		codeCache.Set(hash[:], code)
	}
	return code, nil
}

// GetCode returns the code currently associated with addr's account,
// resolving its code hash and consulting the overlay/state view for the
// bytes (§4.1). Accounts with no code return a nil slice.
func (s *StateDB) GetCode(addr common.Address) types.Code {
	obj := s.getOrLoad(addr)
	if obj.code != nil {
		return obj.code
	}
	if len(obj.account.CodeHash) == 0 || common.BytesToHash(obj.account.CodeHash) == types.EmptyCodeHash {
		return nil
	}
	code, err := s.loadCode(common.BytesToHash(obj.account.CodeHash))
	if err != nil {
		s.setError(err)
		return nil
	}
	obj.code = code
	return code
}

// AddAccountCode installs code on addr, journaling the prior code hash and
// recording the change for the BAL (§4.1, §4.8).
func (s *StateDB) AddAccountCode(addr common.Address, code types.Code) {
	obj := s.GetAccountMut(addr)
	hash := code.Hash()
	s.journal.append(codeChange{addr: addr, prevHash: obj.CodeHash, prevCode: s.accounts[addr].code})
	obj.CodeHash = hash[:]
	s.accounts[addr].code = code
	s.balRecorder.RecordCodeChange(addr, code)
}

// CaptureInitialCodePresence and SetInitialCode thread through to the BAL
// recorder for code-change net-zero detection (§4.8); they make no state
// change of their own.
func (s *StateDB) CaptureInitialCodePresence(addr common.Address, hadCode bool) {
	s.balRecorder.CaptureInitialCodePresence(addr, hadCode)
}
func (s *StateDB) SetInitialCode(addr common.Address, code []byte) {
	s.balRecorder.SetInitialCode(addr, code)
}

// GetStorage returns the current value of (addr, key), capturing the
// original (pre-transaction) value on first access for SSTORE gas
// accounting (§4.1, §4.3).
func (s *StateDB) GetStorage(addr common.Address, key common.Hash) common.Hash {
	obj := s.getOrLoad(addr)
	if v, ok := obj.dirtyStorage[key]; ok {
		s.balRecorder.RecordStorageRead(addr, key)
		return v
	}
	if v, ok := obj.originalStorage[key]; ok {
		s.balRecorder.RecordStorageRead(addr, key)
		return v
	}
	v, err := s.db.GetStorage(addr, key)
	if err != nil {
		s.setError(fmt.Errorf("state: load storage %x/%x: %w", addr, key, err))
	}
	obj.originalStorage[key] = v
	s.balRecorder.CapturePreStorage(addr, key, v)
	s.balRecorder.RecordStorageRead(addr, key)
	return v
}

// GetCommittedStorage returns the original (pre-transaction) value without
// recording a fresh access, used by the EIP-2200 gas matrix.
func (s *StateDB) GetCommittedStorage(addr common.Address, key common.Hash) common.Hash {
	obj := s.getOrLoad(addr)
	if v, ok := obj.originalStorage[key]; ok {
		return v
	}
	v, err := s.db.GetStorage(addr, key)
	if err != nil {
		s.setError(fmt.Errorf("state: load storage %x/%x: %w", addr, key, err))
	}
	obj.originalStorage[key] = v
	s.balRecorder.CapturePreStorage(addr, key, v)
	return v
}

// SetStorage records a write to (addr, key), journaling the previous
// dirty value (if any) for revert (§4.1, §4.8).
func (s *StateDB) SetStorage(addr common.Address, key, value common.Hash) {
	s.GetAccountMut(addr)
	st := s.accounts[addr]
	prev, had := st.dirtyStorage[key]
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, had: had})
	st.dirtyStorage[key] = value
	s.balRecorder.RecordStorageWrite(addr, key, value)
}

// SelfDestruct marks addr for destruction at transaction end.
func (s *StateDB) SelfDestruct(addr common.Address) {
	obj := s.getOrLoad(addr)
	s.journal.append(destructChange{addr: addr, prev: obj.destructed})
	obj.destructed = true
}

// HasSelfDestructed reports whether addr is marked for destruction.
func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	obj := s.getOrLoad(addr)
	return obj.destructed
}

// Snapshot returns a journal index call frames can later revert or discard
// to, the DB-level counterpart to substate.PushBackup (§4.2's call-frame
// checkpoint, mirrored here for account/storage mutations).
func (s *StateDB) Snapshot() int { return s.journal.length() }

// RevertToSnapshot undoes every mutation recorded since id.
func (s *StateDB) RevertToSnapshot(id int) { s.journal.revertTo(s, id) }

// BeginTx marks the start of a new top-level transaction, the undo point
// UndoLastTransaction restores to.
func (s *StateDB) BeginTx() { s.txStart = s.journal.length() }

// UndoLastTransaction restores the cache to the state before the last
// transaction, used by stateless simulation and failed top-level
// executions (§4.1).
func (s *StateDB) UndoLastTransaction() { s.journal.revertTo(s, s.txStart) }

// CurrentAccountsState returns the working cache for the active
// transaction (§4.1); callers must not mutate the returned map.
func (s *StateDB) CurrentAccountsState() map[common.Address]*types.Account {
	out := make(map[common.Address]*types.Account, len(s.accounts))
	for addr, obj := range s.accounts {
		out[addr] = obj.account
	}
	return out
}

func (s *StateDB) drain(addrs []common.Address) []AccountUpdate {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })
	out := make([]AccountUpdate, 0, len(addrs))
	for _, addr := range addrs {
		obj := s.accounts[addr]
		if obj == nil {
			continue
		}
		u := AccountUpdate{Address: addr, Destroyed: obj.destructed}
		if obj.account != nil {
			nonce := obj.account.Nonce
			u.Nonce = &nonce
			u.Balance = obj.account.Balance
			u.CodeHash = obj.account.CodeHash
		}
		if obj.code != nil {
			u.Code = obj.code
		}
		if len(obj.dirtyStorage) > 0 {
			u.Storage = make(map[common.Hash]common.Hash, len(obj.dirtyStorage))
			for k, v := range obj.dirtyStorage {
				u.Storage[k] = v
			}
		}
		out = append(out, u)
	}
	return out
}

// GetStateTransitions drains the entire cache into a flat list of account
// updates suitable for trie merkleization (§4.1).
func (s *StateDB) GetStateTransitions() []AccountUpdate {
	addrs := make([]common.Address, 0, len(s.accounts))
	for addr := range s.accounts {
		addrs = append(addrs, addr)
	}
	return s.drain(addrs)
}

// GetStateTransitionsTx drains only the addresses in touched, which the
// caller tracks, for pipelined per-transaction merkleization (§4.1). It does not clear the cache itself — callers that want the
// overlay reset between transactions should construct a fresh StateDB
// layered over the same view, or track flushed addresses externally.
func (s *StateDB) GetStateTransitionsTx(touched []common.Address) []AccountUpdate {
	return s.drain(touched)
}

// EnableBALRecording turns on Block Access List recording (§4.1, §4.8).
func (s *StateDB) EnableBALRecording() { s.balRecorder.Enable() }

// SetBALIndex sets the current block_access_index (§4.1).
func (s *StateDB) SetBALIndex(idx uint16) { s.balRecorder.SetIndex(idx) }

// BALRecorderMut exposes the recorder directly for VM-level bookkeeping
// (selfdestruct interplay, system-call scoping) that the StateDB's own
// mutators don't cover.
func (s *StateDB) BALRecorderMut() *bal.Recorder { return s.balRecorder }

// TakeBAL finalizes and returns the recorded Block Access List (§4.1).
func (s *StateDB) TakeBAL() types.BlockAccessList {
	if !s.balRecorder.Enabled() {
		return nil
	}
	return s.balRecorder.Build()
}
