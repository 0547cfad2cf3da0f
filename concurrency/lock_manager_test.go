package concurrency

import (
	"testing"

	"github.com/jobala/petro/record"
)

func TestLockManager(t *testing.T) {
	t.Run("locking and unlocking a nil txn always succeeds", func(t *testing.T) {
		lm := NewLockManager()
		rid := record.RowId{}
		if !lm.LockShared(nil, rid) || !lm.LockExclusive(nil, rid) || !lm.Unlock(nil, rid) {
			t.Fatalf("expected every call against a nil txn to succeed")
		}
	})

	t.Run("locks are recorded on the transaction's own lock set", func(t *testing.T) {
		lm := NewLockManager()
		txn := NewTxn(1, RepeatedRead)
		rid := record.RowId{SlotNum: 3}

		if !lm.LockShared(txn, rid) {
			t.Fatalf("expected LockShared to succeed")
		}
		if _, ok := txn.sharedLocks[rid]; !ok {
			t.Fatalf("expected the shared lock to be recorded on the txn")
		}

		if !lm.Unlock(txn, rid) {
			t.Fatalf("expected Unlock to succeed")
		}
		if _, ok := txn.sharedLocks[rid]; ok {
			t.Fatalf("expected Unlock to remove the recorded lock")
		}
	})
}

func TestTxn(t *testing.T) {
	t.Run("a nil txn reports RepeatedRead isolation", func(t *testing.T) {
		var txn *Txn
		if txn.IsolationLevel() != RepeatedRead {
			t.Fatalf("expected nil txn to report RepeatedRead")
		}
	})

	t.Run("SetState updates the transaction's state", func(t *testing.T) {
		txn := NewTxn(1, ReadCommitted)
		txn.SetState(Committed)
		if txn.State() != Committed {
			t.Fatalf("expected state to be Committed")
		}
	})
}
