// Package bal implements the Block Access List recorder of spec §4.8:
// a checkpointable, append-only ledger of every account touch, storage
// read/write, balance/nonce/code change observed during block execution,
// with the net-zero filtering and length-snapshot checkpointing EIP-7928
// requires. It is grounded on the teacher's core/state/journal_arbitrum.go
// pattern of an independently-checkpointed side ledger layered on top of
// the ordinary state journal, generalized to the BAL's own restore rules.
package bal

import (
	"sort"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	"github.com/holiman/uint256"
)

type storageWrite struct {
	index uint16
	value common.Hash
}

type storageRead struct {
	index uint16
}

type balanceEntry struct {
	index   uint16
	balance *uint256.Int
}

type nonceEntry struct {
	index uint16
	nonce uint64
}

type codeEntry struct {
	index uint16
	code  []byte
}

type slotRecord struct {
	writes []storageWrite
	reads  []storageRead
	// preValue is first-write-wins, keyed by the index it was captured at.
	preValue map[uint16]common.Hash
}

type accountRecord struct {
	slots map[common.Hash]*slotRecord

	balanceChanges []balanceEntry
	initialBalance map[uint16]*uint256.Int

	nonceChanges []nonceEntry

	codeChanges         []codeEntry
	initialCodePresence map[uint16]bool
	initialCode         map[uint16][]byte
}

func newAccountRecord() *accountRecord {
	return &accountRecord{
		slots:               make(map[common.Hash]*slotRecord),
		initialBalance:      make(map[uint16]*uint256.Int),
		initialCodePresence: make(map[uint16]bool),
		initialCode:         make(map[uint16][]byte),
	}
}

func (a *accountRecord) slot(key common.Hash) *slotRecord {
	s, ok := a.slots[key]
	if !ok {
		s = &slotRecord{preValue: make(map[uint16]common.Hash)}
		a.slots[key] = s
	}
	return s
}

// accountCheckpoint is a length snapshot of one account's vectors, taken
// so restore can truncate without cloning (§4.8, §9 BAL checkpoint design).
type accountCheckpoint struct {
	slotWriteLen map[common.Hash]int
	slotReadLen  map[common.Hash]int
	balanceLen   int
	nonceLen     int
	codeLen      int
}

// Checkpoint is a snapshot of every currently-tracked account's lengths.
type Checkpoint struct {
	accounts map[common.Address]accountCheckpoint
}

// Recorder is the BAL ledger attached to the database for one block.
type Recorder struct {
	enabled      bool
	inSystemCall bool
	index        uint16

	touchedOrder []common.Address
	touched      map[common.Address]bool

	accounts map[common.Address]*accountRecord

	systemAddress common.Address
}

// NewRecorder returns a disabled recorder; Enable turns it on.
func NewRecorder(systemAddress common.Address) *Recorder {
	return &Recorder{
		touched:       make(map[common.Address]bool),
		accounts:      make(map[common.Address]*accountRecord),
		systemAddress: systemAddress,
	}
}

// Enable turns recording on (§4.1 enable_bal_recording).
func (r *Recorder) Enable() { r.enabled = true }

// Enabled reports whether this recorder is active.
func (r *Recorder) Enabled() bool { return r.enabled }

// SetIndex sets the current block_access_index (§4.1 set_bal_index).
func (r *Recorder) SetIndex(idx uint16) { r.index = idx }

// CurrentIndex returns the current block_access_index, the value the
// SLOTNUMBER opcode exposes to running contracts (§4.4 SLOTNUMBER).
func (r *Recorder) CurrentIndex() uint64 { return uint64(r.index) }

// SetInSystemCall flags whether the current call is a synthetic system
// call, so system-address touches are filtered out of the BAL (§4.7).
func (r *Recorder) SetInSystemCall(v bool) { r.inSystemCall = v }

func (r *Recorder) filtered(addr common.Address) bool {
	return !r.enabled || (r.inSystemCall && addr == r.systemAddress)
}

func (r *Recorder) account(addr common.Address) *accountRecord {
	a, ok := r.accounts[addr]
	if !ok {
		a = newAccountRecord()
		r.accounts[addr] = a
	}
	return a
}

// RecordTouchedAddress marks addr as touched; touched addresses are never
// removed by restore, even though their other records may be truncated.
func (r *Recorder) RecordTouchedAddress(addr common.Address) {
	if r.filtered(addr) {
		return
	}
	if !r.touched[addr] {
		r.touched[addr] = true
		r.touchedOrder = append(r.touchedOrder, addr)
	}
	r.account(addr)
}

// ExtendTouchedAddresses marks every address in addrs as touched.
func (r *Recorder) ExtendTouchedAddresses(addrs []common.Address) {
	for _, a := range addrs {
		r.RecordTouchedAddress(a)
	}
}

// RecordStorageRead records a slot observed without modification; a no-op
// if the slot was already written at the current index (§4.8).
func (r *Recorder) RecordStorageRead(addr common.Address, slot common.Hash) {
	if r.filtered(addr) {
		return
	}
	r.RecordTouchedAddress(addr)
	s := r.account(addr).slot(slot)
	for _, w := range s.writes {
		if w.index == r.index {
			return
		}
	}
	for _, rd := range s.reads {
		if rd.index == r.index {
			return
		}
	}
	s.reads = append(s.reads, storageRead{index: r.index})
}

// CapturePreStorage records the value observed at (addr, slot, index) the
// first time it is seen, for later net-zero comparison.
func (r *Recorder) CapturePreStorage(addr common.Address, slot, value common.Hash) {
	if r.filtered(addr) {
		return
	}
	s := r.account(addr).slot(slot)
	if _, ok := s.preValue[r.index]; !ok {
		s.preValue[r.index] = value
	}
}

// RecordStorageWrite always appends a new (index, value) write entry.
func (r *Recorder) RecordStorageWrite(addr common.Address, slot common.Hash, post common.Hash) {
	if r.filtered(addr) {
		return
	}
	r.RecordTouchedAddress(addr)
	s := r.account(addr).slot(slot)
	s.writes = append(s.writes, storageWrite{index: r.index, value: post})
}

// RecordBalanceChange appends a (index, post_balance) entry.
func (r *Recorder) RecordBalanceChange(addr common.Address, post *uint256.Int) {
	if r.filtered(addr) {
		return
	}
	r.RecordTouchedAddress(addr)
	a := r.account(addr)
	a.balanceChanges = append(a.balanceChanges, balanceEntry{index: r.index, balance: new(uint256.Int).Set(post)})
}

// SetInitialBalance captures the pre-transaction balance for round-trip
// detection, first-write-wins per index.
func (r *Recorder) SetInitialBalance(addr common.Address, bal *uint256.Int) {
	if r.filtered(addr) {
		return
	}
	a := r.account(addr)
	if _, ok := a.initialBalance[r.index]; !ok {
		a.initialBalance[r.index] = new(uint256.Int).Set(bal)
	}
}

// RecordNonceChange appends a (index, post_nonce) entry.
func (r *Recorder) RecordNonceChange(addr common.Address, post uint64) {
	if r.filtered(addr) {
		return
	}
	r.RecordTouchedAddress(addr)
	a := r.account(addr)
	a.nonceChanges = append(a.nonceChanges, nonceEntry{index: r.index, nonce: post})
}

// RecordCodeChange appends a (index, new_code) entry.
func (r *Recorder) RecordCodeChange(addr common.Address, code []byte) {
	if r.filtered(addr) {
		return
	}
	r.RecordTouchedAddress(addr)
	a := r.account(addr)
	a.codeChanges = append(a.codeChanges, codeEntry{index: r.index, code: common.CopyBytes(code)})
}

// CaptureInitialCodePresence and SetInitialCode record whether/what code
// existed before the transaction, first-write-wins per index.
func (r *Recorder) CaptureInitialCodePresence(addr common.Address, hadCode bool) {
	if r.filtered(addr) {
		return
	}
	a := r.account(addr)
	if _, ok := a.initialCodePresence[r.index]; !ok {
		a.initialCodePresence[r.index] = hadCode
	}
}

func (r *Recorder) SetInitialCode(addr common.Address, code []byte) {
	if r.filtered(addr) {
		return
	}
	a := r.account(addr)
	if _, ok := a.initialCode[r.index]; !ok {
		a.initialCode[r.index] = common.CopyBytes(code)
	}
}

// Checkpoint snapshots the lengths of every tracked account's vectors.
func (r *Recorder) Checkpoint() Checkpoint {
	cp := Checkpoint{accounts: make(map[common.Address]accountCheckpoint, len(r.accounts))}
	for addr, a := range r.accounts {
		ac := accountCheckpoint{
			slotWriteLen: make(map[common.Hash]int, len(a.slots)),
			slotReadLen:  make(map[common.Hash]int, len(a.slots)),
			balanceLen:   len(a.balanceChanges),
			nonceLen:     len(a.nonceChanges),
			codeLen:      len(a.codeChanges),
		}
		for slot, s := range a.slots {
			ac.slotWriteLen[slot] = len(s.writes)
			ac.slotReadLen[slot] = len(s.reads)
		}
		cp.accounts[addr] = ac
	}
	return cp
}

// Restore truncates every account's vectors back to the checkpointed
// lengths. Storage writes made after the checkpoint are demoted into a
// read at the index they were made at (the access happened; the change
// did not), unless a write for that (slot, index) still survives after
// truncation. Touched addresses are never restored (§4.8).
func (r *Recorder) Restore(cp Checkpoint) {
	for addr, a := range r.accounts {
		ac, known := cp.accounts[addr]
		if !known {
			ac = accountCheckpoint{}
		}
		if ac.balanceLen < len(a.balanceChanges) {
			a.balanceChanges = a.balanceChanges[:ac.balanceLen]
		}
		if ac.nonceLen < len(a.nonceChanges) {
			a.nonceChanges = a.nonceChanges[:ac.nonceLen]
		}
		if ac.codeLen < len(a.codeChanges) {
			a.codeChanges = a.codeChanges[:ac.codeLen]
		}
		for slot, s := range a.slots {
			wantWrite := ac.slotWriteLen[slot]
			wantRead := ac.slotReadLen[slot]
			if wantRead < len(s.reads) {
				s.reads = s.reads[:wantRead]
			}
			if wantWrite < len(s.writes) {
				demoted := s.writes[wantWrite:]
				s.writes = s.writes[:wantWrite]
				for _, w := range demoted {
					stillWritten := false
					for _, rem := range s.writes {
						if rem.index == w.index {
							stillWritten = true
							break
						}
					}
					if stillWritten {
						continue
					}
					alreadyRead := false
					for _, rd := range s.reads {
						if rd.index == w.index {
							alreadyRead = true
							break
						}
					}
					if !alreadyRead {
						s.reads = append(s.reads, storageRead{index: w.index})
					}
				}
			}
		}
	}
}

// TrackSelfDestruct strips the current transaction's nonce/code/storage
// write entries for addr after a same-tx destroy, demoting storage writes
// to reads and dropping the balance change if the initial balance was
// zero (round-trip 0→x→0), per §4.8.
func (r *Recorder) TrackSelfDestruct(addr common.Address) {
	a, ok := r.accounts[addr]
	if !ok {
		return
	}
	idx := r.index
	a.nonceChanges = filterNonceIndex(a.nonceChanges, idx)
	a.codeChanges = filterCodeIndex(a.codeChanges, idx)
	for _, s := range a.slots {
		var kept []storageWrite
		var demotedAtIdx bool
		for _, w := range s.writes {
			if w.index == idx {
				demotedAtIdx = true
				continue
			}
			kept = append(kept, w)
		}
		s.writes = kept
		if demotedAtIdx {
			already := false
			for _, rd := range s.reads {
				if rd.index == idx {
					already = true
					break
				}
			}
			if !already {
				s.reads = append(s.reads, storageRead{index: idx})
			}
		}
	}
	if init, ok := a.initialBalance[idx]; ok && init.IsZero() {
		a.balanceChanges = filterBalanceIndex(a.balanceChanges, idx)
	}
}

func filterNonceIndex(entries []nonceEntry, idx uint16) []nonceEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.index != idx {
			out = append(out, e)
		}
	}
	return out
}

func filterCodeIndex(entries []codeEntry, idx uint16) []codeEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.index != idx {
			out = append(out, e)
		}
	}
	return out
}

func filterBalanceIndex(entries []balanceEntry, idx uint16) []balanceEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.index != idx {
			out = append(out, e)
		}
	}
	return out
}

// lastWritePerIndex keeps only the last-seen value for each distinct index,
// preserving the order of first occurrence (used for writes/balance/
// nonce/code dedup at build time per §4.8's "only the final ... per
// transaction is retained").
func lastWritePerIndex(writes []storageWrite) []storageWrite {
	last := make(map[uint16]common.Hash, len(writes))
	order := make([]uint16, 0, len(writes))
	for _, w := range writes {
		if _, ok := last[w.index]; !ok {
			order = append(order, w.index)
		}
		last[w.index] = w.value
	}
	out := make([]storageWrite, len(order))
	for i, idx := range order {
		out[i] = storageWrite{index: idx, value: last[idx]}
	}
	return out
}

func lastBalancePerIndex(entries []balanceEntry) []balanceEntry {
	last := make(map[uint16]*uint256.Int, len(entries))
	order := make([]uint16, 0, len(entries))
	for _, e := range entries {
		if _, ok := last[e.index]; !ok {
			order = append(order, e.index)
		}
		last[e.index] = e.balance
	}
	out := make([]balanceEntry, len(order))
	for i, idx := range order {
		out[i] = balanceEntry{index: idx, balance: last[idx]}
	}
	return out
}

func lastNoncePerIndex(entries []nonceEntry) []nonceEntry {
	last := make(map[uint16]uint64, len(entries))
	order := make([]uint16, 0, len(entries))
	for _, e := range entries {
		if _, ok := last[e.index]; !ok {
			order = append(order, e.index)
		}
		last[e.index] = e.nonce
	}
	out := make([]nonceEntry, len(order))
	for i, idx := range order {
		out[i] = nonceEntry{index: idx, nonce: last[idx]}
	}
	return out
}

func lastCodePerIndex(entries []codeEntry) []codeEntry {
	last := make(map[uint16][]byte, len(entries))
	order := make([]uint16, 0, len(entries))
	for _, e := range entries {
		if _, ok := last[e.index]; !ok {
			order = append(order, e.index)
		}
		last[e.index] = e.code
	}
	out := make([]codeEntry, len(order))
	for i, idx := range order {
		out[i] = codeEntry{index: idx, code: last[idx]}
	}
	return out
}

// Build consumes the recorder and emits the final BlockAccessList, sorted
// by address, with storage writes sorted by slot-then-index within each
// address, net-zero writes demoted to reads, net-zero code changes
// dropped, and round-trip balance changes dropped (§4.8).
func (r *Recorder) Build() types.BlockAccessList {
	addrs := make([]common.Address, len(r.touchedOrder))
	copy(addrs, r.touchedOrder)
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })

	out := make(types.BlockAccessList, 0, len(addrs))
	for _, addr := range addrs {
		a := r.accounts[addr]
		if a == nil {
			out = append(out, types.AccountChanges{Address: addr})
			continue
		}
		ac := types.AccountChanges{Address: addr}

		slots := make([]common.Hash, 0, len(a.slots))
		for slot := range a.slots {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Cmp(slots[j]) < 0 })

		readSet := make(map[common.Hash]bool)
		for _, slot := range slots {
			s := a.slots[slot]
			writes := lastWritePerIndex(s.writes)
			var surviving []storageWrite
			netZeroSeen := false
			for _, w := range writes {
				if pre, ok := s.preValue[w.index]; ok && pre == w.value {
					netZeroSeen = true
					continue
				}
				surviving = append(surviving, w)
			}
			if len(surviving) > 0 {
				sort.Slice(surviving, func(i, j int) bool { return surviving[i].index < surviving[j].index })
				changes := make([]types.StorageChange, len(surviving))
				for i, w := range surviving {
					changes[i] = types.StorageChange{TxIndex: w.index, NewValue: w.value}
				}
				ac.StorageChanges = append(ac.StorageChanges, types.StorageSlotChanges{Slot: slot, Changes: changes})
			} else if netZeroSeen || len(s.reads) > 0 {
				readSet[slot] = true
			}
		}
		reads := make([]common.Hash, 0, len(readSet))
		for slot := range readSet {
			reads = append(reads, slot)
		}
		sort.Slice(reads, func(i, j int) bool { return reads[i].Cmp(reads[j]) < 0 })
		ac.StorageReads = reads

		for _, e := range lastBalancePerIndex(a.balanceChanges) {
			if init, ok := a.initialBalance[e.index]; ok && init.Eq(e.balance) {
				continue
			}
			ac.BalanceChanges = append(ac.BalanceChanges, types.BalanceChange{TxIndex: e.index, PostBalance: e.balance})
		}
		sort.Slice(ac.BalanceChanges, func(i, j int) bool { return ac.BalanceChanges[i].TxIndex < ac.BalanceChanges[j].TxIndex })

		for _, e := range lastNoncePerIndex(a.nonceChanges) {
			ac.NonceChanges = append(ac.NonceChanges, types.NonceChange{TxIndex: e.index, NewNonce: e.nonce})
		}
		sort.Slice(ac.NonceChanges, func(i, j int) bool { return ac.NonceChanges[i].TxIndex < ac.NonceChanges[j].TxIndex })

		for _, e := range lastCodePerIndex(a.codeChanges) {
			if init, ok := a.initialCode[e.index]; ok && string(init) == string(e.code) {
				continue
			}
			ac.CodeChanges = append(ac.CodeChanges, types.CodeChange{TxIndex: e.index, NewCode: e.code})
		}
		sort.Slice(ac.CodeChanges, func(i, j int) bool { return ac.CodeChanges[i].TxIndex < ac.CodeChanges[j].TxIndex })

		out = append(out, ac)
	}
	return out
}
