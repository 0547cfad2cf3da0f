// Package concurrency sketches the transaction/locking surface the single-
// threaded core leaves unimplemented, declared only so table heap and B+
// tree method signatures stay stable if a future executor adds real locking.
// Grounded on original_source/src/include/concurrency/txn.h.
package concurrency

import "github.com/jobala/petro/record"

// IsolationLevel mirrors the original's three-level enum; unused by the
// single-threaded core but kept so Txn's shape matches its source.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatedRead
)

// State mirrors the original's 2PL transaction state machine.
type State int

const (
	Growing State = iota
	Shrinking
	Committed
	Aborted
)

// Txn is an inert handle: the core never acquires locks or enforces
// isolation, but a txn value can be threaded through heap/tree calls so a
// future lock manager has somewhere to record held locks.
type Txn struct {
	id            int64
	isolation     IsolationLevel
	state         State
	sharedLocks   map[record.RowId]struct{}
	exclusiveLocks map[record.RowId]struct{}
}

const InvalidTxnId int64 = -1

func NewTxn(id int64, isolation IsolationLevel) *Txn {
	return &Txn{
		id:             id,
		isolation:      isolation,
		state:          Growing,
		sharedLocks:    make(map[record.RowId]struct{}),
		exclusiveLocks: make(map[record.RowId]struct{}),
	}
}

func (t *Txn) Id() int64 { return t.id }

func (t *Txn) IsolationLevel() IsolationLevel {
	if t == nil {
		return RepeatedRead
	}
	return t.isolation
}

func (t *Txn) State() State { return t.state }
func (t *Txn) SetState(s State) { t.state = s }
