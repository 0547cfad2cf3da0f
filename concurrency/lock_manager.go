package concurrency

import "github.com/jobala/petro/record"

// LockManager is a no-op stand-in: the single-threaded core never contends
// over a row, so every call trivially succeeds and records the lock on the
// transaction's own lock set rather than arbitrating between callers.
// Declared so callers written against a lock manager interface compile
// against this core without modification later.
type LockManager struct{}

func NewLockManager() *LockManager { return &LockManager{} }

func (lm *LockManager) LockShared(txn *Txn, rid record.RowId) bool {
	if txn == nil {
		return true
	}
	txn.sharedLocks[rid] = struct{}{}
	return true
}

func (lm *LockManager) LockExclusive(txn *Txn, rid record.RowId) bool {
	if txn == nil {
		return true
	}
	txn.exclusiveLocks[rid] = struct{}{}
	return true
}

func (lm *LockManager) Unlock(txn *Txn, rid record.RowId) bool {
	if txn == nil {
		return true
	}
	delete(txn.sharedLocks, rid)
	delete(txn.exclusiveLocks, rid)
	return true
}
