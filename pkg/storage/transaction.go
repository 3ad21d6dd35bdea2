// Package storage - transaction manager.
//
// NogDB's transaction manager sits on top of pkg/kv's native MVCC
// transactions: a single read-write transaction at a time, and any number
// of concurrent read-only transactions, each pinned to the snapshot that
// existed the moment it began. TxnManager's own job is bookkeeping on top
// of that — handing out TxnId/VersionId values, refusing a second
// concurrent writer, and keeping diagnostic logs.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nogdb/nogdb/pkg/kv"
	"github.com/rs/zerolog"
)

// TxnStatus is the lifecycle state of a Txn.
type TxnStatus int

const (
	TxnActive TxnStatus = iota
	TxnCommitted
	TxnRolledBack
)

// TxnManager hands out transactions against one kv.Environment, assigning
// each a TxnId and, for writers, stamping every mutation with the next
// VersionId.
type TxnManager struct {
	env *kv.Environment
	log zerolog.Logger

	mu         sync.Mutex
	nextTxnID  TxnId
	nextVerID  VersionId
	writerBusy bool
}

// NewTxnManager wraps env, starting version/txn counters at startVersion and
// startTxn. The counters live only in memory and are not persisted;
// Database.Open starts both at zero, so they restart on every open.
func NewTxnManager(env *kv.Environment, logger zerolog.Logger, startTxn TxnId, startVersion VersionId) *TxnManager {
	return &TxnManager{env: env, log: logger, nextTxnID: startTxn, nextVerID: startVersion}
}

// Txn is one NogDB transaction: a kv transaction plus its TxnId,
// correlation id, lifecycle status and the version its writes are stamped
// with.
type Txn struct {
	ID       TxnId
	CorrelID uuid.UUID
	Writable bool
	status   TxnStatus

	kvTxn   *kv.Txn
	mgr     *TxnManager
	version VersionId // the version this transaction's writes will be stamped with
}

// Begin starts a new transaction. Only one read-write transaction may be
// active at a time: while one is active, a further writable Begin fails
// immediately with ErrTxnInvalid; it does not wait for the active writer
// to finish. Read-only transactions never block.
func (m *TxnManager) Begin(ctx context.Context, writable bool) (*Txn, error) {
	if writable {
		m.mu.Lock()
		if m.writerBusy {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: a writable transaction is already active", ErrTxnInvalid)
		}
		m.writerBusy = true
		m.mu.Unlock()
	}

	kvTxn, err := m.env.Begin(ctx, writable)
	if err != nil {
		if writable {
			m.mu.Lock()
			m.writerBusy = false
			m.mu.Unlock()
		}
		return nil, err
	}

	m.mu.Lock()
	m.nextTxnID++
	id := m.nextTxnID
	var version VersionId
	if writable {
		m.nextVerID++
		version = m.nextVerID
	}
	m.mu.Unlock()

	t := &Txn{ID: id, CorrelID: uuid.New(), Writable: writable, status: TxnActive, kvTxn: kvTxn, mgr: m, version: version}
	m.log.Debug().Uint64("txn", uint64(id)).Bool("writable", writable).Str("correl", t.CorrelID.String()).Msg("storage: txn begin")
	return t, nil
}

// KV exposes the underlying kv.Txn for packages (relation, datastore,
// catalog_io) that need raw table access.
func (t *Txn) KV() *kv.Txn { return t.kvTxn }

// Version returns the VersionId this transaction's writes are stamped with.
// Zero for read-only transactions.
func (t *Txn) Version() VersionId { return t.version }

// Status reports the transaction's current lifecycle state.
func (t *Txn) Status() TxnStatus { return t.status }

func (t *Txn) checkActive() error {
	switch t.status {
	case TxnCommitted, TxnRolledBack:
		return fmt.Errorf("%w", ErrTxnCompleted)
	}
	return nil
}

// Commit finalizes the transaction's writes.
func (t *Txn) Commit() error {
	if err := t.checkActive(); err != nil {
		return err
	}
	if err := t.kvTxn.Commit(); err != nil {
		t.status = TxnRolledBack
		if t.Writable {
			t.releaseWriter()
		}
		return err
	}
	t.status = TxnCommitted
	if t.Writable {
		t.releaseWriter()
	}
	t.mgr.log.Debug().Uint64("txn", uint64(t.ID)).Msg("storage: txn commit")
	return nil
}

// Rollback discards the transaction's writes.
func (t *Txn) Rollback() error {
	if err := t.checkActive(); err != nil {
		return err
	}
	t.kvTxn.Abort()
	t.status = TxnRolledBack
	if t.Writable {
		t.releaseWriter()
	}
	t.mgr.log.Debug().Uint64("txn", uint64(t.ID)).Msg("storage: txn rollback")
	return nil
}

func (t *Txn) releaseWriter() {
	t.mgr.mu.Lock()
	t.mgr.writerBusy = false
	t.mgr.mu.Unlock()
}
