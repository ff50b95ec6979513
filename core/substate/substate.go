// Package substate implements the per-transaction execution metadata
// described in spec §3/§4.2: accessed-address and accessed-slot warm
// sets, created accounts, the self-destruct set, the refund counter,
// EIP-1153 transient storage, and emitted logs, all organized as a stack
// of deltas so that call-frame reverts are cheap and allocation-light.
//
// This mirrors the teacher's core/state/journal_arbitrum.go pattern of
// layering new bookkeeping on top of go-ethereum's existing journal
// concept, generalized here into its own package because the spec treats
// substate as a first-class component distinct from the DB mutation cache.
package substate

import (
	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core/types"
	mapset "github.com/deckarep/golang-set/v2"
)

type slotKey struct {
	addr common.Address
	key  common.Hash
}

type transientKey struct {
	addr common.Address
	key  common.Hash
}

// delta is one layer of the substate stack: everything a single call frame
// (or the top-level transaction) has accumulated since it was pushed.
type delta struct {
	accessedAddresses mapset.Set[common.Address]
	accessedSlots     mapset.Set[slotKey]
	createdAccounts   mapset.Set[common.Address]
	selfDestructSet   mapset.Set[common.Address]
	refundedGas       uint64
	transient         map[transientKey]common.Hash
	logs              []*types.Log
}

func newDelta() *delta {
	return &delta{
		accessedAddresses: mapset.NewThreadUnsafeSet[common.Address](),
		accessedSlots:     mapset.NewThreadUnsafeSet[slotKey](),
		createdAccounts:   mapset.NewThreadUnsafeSet[common.Address](),
		selfDestructSet:   mapset.NewThreadUnsafeSet[common.Address](),
		transient:         make(map[transientKey]common.Hash),
	}
}

// Substate is the full stack of deltas for one transaction; index 0 is the
// top-level (transaction-wide) delta, and each push adds one more layer
// for the call frame currently executing.
type Substate struct {
	stack []*delta
}

// New returns an empty Substate with a single top-level delta.
func New() *Substate {
	return &Substate{stack: []*delta{newDelta()}}
}

func (s *Substate) top() *delta { return s.stack[len(s.stack)-1] }

// AddAccessedAddress marks addr as warm in the current delta and reports
// whether it was already warm in this delta or any ancestor (§4.2).
func (s *Substate) AddAccessedAddress(addr common.Address) (wasWarm bool) {
	if s.isWarmAddress(addr) {
		return true
	}
	s.top().accessedAddresses.Add(addr)
	return false
}

func (s *Substate) isWarmAddress(addr common.Address) bool {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].accessedAddresses.Contains(addr) {
			return true
		}
	}
	return false
}

// AddAccessedSlot marks (addr, key) as warm and reports its prior state.
func (s *Substate) AddAccessedSlot(addr common.Address, key common.Hash) (wasWarm bool) {
	k := slotKey{addr, key}
	if s.isWarmSlot(k) {
		return true
	}
	s.top().accessedSlots.Add(k)
	return false
}

func (s *Substate) isWarmSlot(k slotKey) bool {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].accessedSlots.Contains(k) {
			return true
		}
	}
	return false
}

// AddressInAccessList reports whether addr is warm without marking it.
func (s *Substate) AddressInAccessList(addr common.Address) bool {
	return s.isWarmAddress(addr)
}

// SlotInAccessList reports whether (addr, key) is warm without marking it.
func (s *Substate) SlotInAccessList(addr common.Address, key common.Hash) bool {
	return s.isWarmSlot(slotKey{addr, key})
}

// MarkCreated records that addr was created (by CREATE/CREATE2) within the
// current transaction, used by post-Cancun SELFDESTRUCT semantics.
func (s *Substate) MarkCreated(addr common.Address) { s.top().createdAccounts.Add(addr) }

// WasCreatedThisTx reports whether addr is in the created-accounts set of
// any delta on the stack (creation survives nested call reverts only via
// commit; a reverted CREATE never reaches this set because its delta is
// discarded rather than committed).
func (s *Substate) WasCreatedThisTx(addr common.Address) bool {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].createdAccounts.Contains(addr) {
			return true
		}
	}
	return false
}

// MarkSelfDestructed adds addr to the self-destruct set.
func (s *Substate) MarkSelfDestructed(addr common.Address) { s.top().selfDestructSet.Add(addr) }

// HasSelfDestructed reports whether addr has self-destructed.
func (s *Substate) HasSelfDestructed(addr common.Address) bool {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].selfDestructSet.Contains(addr) {
			return true
		}
	}
	return false
}

// SelfDestructSet returns every address marked for destruction across the
// whole stack (used by the DB at transaction finalization).
func (s *Substate) SelfDestructSet() []common.Address {
	seen := mapset.NewThreadUnsafeSet[common.Address]()
	for _, d := range s.stack {
		seen = seen.Union(d.selfDestructSet)
	}
	return seen.ToSlice()
}

// AddRefund increases the refund counter of the current delta.
func (s *Substate) AddRefund(gas uint64) { s.top().refundedGas += gas }

// SubRefund decreases the refund counter, floored at zero defensively
// (callers are expected to never underflow it).
func (s *Substate) SubRefund(gas uint64) {
	if gas > s.top().refundedGas {
		s.top().refundedGas = 0
		return
	}
	s.top().refundedGas -= gas
}

// RefundGas returns the total refund accumulated across the whole stack.
func (s *Substate) RefundGas() uint64 {
	var total uint64
	for _, d := range s.stack {
		total += d.refundedGas
	}
	return total
}

// SetTransient sets transient storage (EIP-1153). The write goes into the
// top delta: CommitBackup carries it into the parent frame, and
// RevertBackup drops it with the reverted frame's delta, so a revert
// rolls back transient writes made inside the reverted frame.
func (s *Substate) SetTransient(addr common.Address, key, val common.Hash) {
	s.top().transient[transientKey{addr, key}] = val
}

// GetTransient reads transient storage, searching from the innermost delta
// outward so the most recent write in any active frame wins.
func (s *Substate) GetTransient(addr common.Address, key common.Hash) common.Hash {
	k := transientKey{addr, key}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if v, ok := s.stack[i].transient[k]; ok {
			return v
		}
	}
	return common.Hash{}
}

// AddLog appends a log to the current delta.
func (s *Substate) AddLog(l *types.Log) { s.top().logs = append(s.top().logs, l) }

// Logs returns every log accumulated across the whole stack, in order.
func (s *Substate) Logs() []*types.Log {
	var out []*types.Log
	for _, d := range s.stack {
		out = append(out, d.logs...)
	}
	return out
}

// PushBackup starts a new nested delta for a child call frame (§4.2).
func (s *Substate) PushBackup() {
	s.stack = append(s.stack, newDelta())
}

// CommitBackup merges the top delta into its parent and pops it: union of
// address/slot/created/selfdestruct sets, concatenation of logs, sum of
// refunded gas, and extension of transient storage.
func (s *Substate) CommitBackup() {
	if len(s.stack) < 2 {
		return
	}
	child := s.stack[len(s.stack)-1]
	parent := s.stack[len(s.stack)-2]
	parent.accessedAddresses = parent.accessedAddresses.Union(child.accessedAddresses)
	parent.accessedSlots = parent.accessedSlots.Union(child.accessedSlots)
	parent.createdAccounts = parent.createdAccounts.Union(child.createdAccounts)
	parent.selfDestructSet = parent.selfDestructSet.Union(child.selfDestructSet)
	parent.refundedGas += child.refundedGas
	for k, v := range child.transient {
		parent.transient[k] = v
	}
	parent.logs = append(parent.logs, child.logs...)
	s.stack = s.stack[:len(s.stack)-1]
}

// RevertBackup discards the top delta entirely. refunded_gas accumulated
// in the reverted frame is dropped with it, per §4.2's commit/revert rule
// (a revert never contributes its refund to the parent).
func (s *Substate) RevertBackup() {
	if len(s.stack) < 2 {
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// Depth reports the number of deltas on the stack (1 means top-level,
// no nested frame currently open).
func (s *Substate) Depth() int { return len(s.stack) }

// MakeAccessList emits a deterministic, address-sorted, slot-sorted access
// list from the accumulated warm set across the whole stack (§4.2).
func (s *Substate) MakeAccessList() types.AccessList {
	addrSlots := make(map[common.Address]mapset.Set[common.Hash])
	addrs := mapset.NewThreadUnsafeSet[common.Address]()
	for _, d := range s.stack {
		for _, a := range d.accessedAddresses.ToSlice() {
			addrs.Add(a)
		}
	}
	for _, d := range s.stack {
		for sk := range iterSlots(d.accessedSlots) {
			addrs.Add(sk.addr)
			if addrSlots[sk.addr] == nil {
				addrSlots[sk.addr] = mapset.NewThreadUnsafeSet[common.Hash]()
			}
			addrSlots[sk.addr].Add(sk.key)
		}
	}
	sorted := addrs.ToSlice()
	sortAddresses(sorted)
	out := make(types.AccessList, 0, len(sorted))
	for _, a := range sorted {
		keys := addrSlots[a]
		var tuple types.AccessTuple
		tuple.Address = a
		if keys != nil {
			ks := keys.ToSlice()
			sortHashes(ks)
			tuple.StorageKeys = ks
		}
		out = append(out, tuple)
	}
	return out
}

func iterSlots(set mapset.Set[slotKey]) map[slotKey]struct{} {
	out := make(map[slotKey]struct{}, set.Cardinality())
	for _, k := range set.ToSlice() {
		out[k] = struct{}{}
	}
	return out
}

func sortAddresses(a []common.Address) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1].Cmp(a[j]) > 0; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

func sortHashes(a []common.Hash) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1].Cmp(a[j]) > 0; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}
