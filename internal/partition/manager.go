// Package partition maintains the in-memory index of a virtual table's
// existing partitions and creates new ones on demand, copying the
// template's schema and indexes onto each (C5).
package partition

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"sync"

	"github.com/chronotab/partitioner/internal/catalog"
	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

// Manager is the per-virtual-table in-memory index of bucket -> partition
// name, backed by the lookup shadow table. It is shared across every cursor
// and DML call on a connection (spec.md §5).
type Manager struct {
	mu       sync.RWMutex
	baseName string
	schema   types.Schema
	byBucket map[int64]string
}

// NewManager seeds a Manager from a catalog.State (post-CREATE or
// post-CONNECT).
func NewManager(st catalog.State) *Manager {
	m := &Manager{
		baseName: st.BaseName,
		schema:   st.Schema,
		byBucket: make(map[int64]string, len(st.Lookup)),
	}
	for b, name := range st.Lookup {
		m.byBucket[b] = name
	}
	return m
}

// Lookup returns the partition name for bucket, and whether it is known.
func (m *Manager) Lookup(bucket int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.byBucket[bucket]
	return name, ok
}

// Rehydrate re-reads the lookup table into the in-memory map. Contract from
// spec.md §5: "any operation that fails to find an expected partition in
// the map must re-scan the lookup table once before concluding
// PartitionMissing" — covers both this connection's own map going stale
// relative to a DDL another connection performed, and any lost update.
func (m *Manager) Rehydrate(c catalog.Conn) error {
	st, err := catalog.Connect(c, m.baseName)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byBucket = make(map[int64]string, len(st.Lookup))
	for b, name := range st.Lookup {
		m.byBucket[b] = name
	}
	return nil
}

// KnownPartitionCount returns the number of partitions currently in the
// in-memory index, used by the planner (C6) as a cost-estimation input.
func (m *Manager) KnownPartitionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byBucket)
}

// PartitionsInRange returns the partitions whose bucket falls in
// [lo, hi] inclusive, in ascending bucket order — the canonical scan order
// (spec.md §4.5).
func (m *Manager) PartitionsInRange(lo, hi int64) []BucketPartition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []BucketPartition
	for b, name := range m.byBucket {
		if b >= lo && b <= hi {
			out = append(out, BucketPartition{Bucket: b, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out
}

// BucketPartition pairs a bucket-start epoch with its physical table name.
type BucketPartition struct {
	Bucket int64
	Name   string
}

// EnsurePartition returns the partition covering bucket, creating it (table
// + replicated indexes + lookup row) if it does not already exist. Steps
// 3-5 of spec.md §4.5 run inside one savepoint; on any failure the manager
// rolls back and reports PartitionCreateFailed.
func (m *Manager) EnsurePartition(c catalog.Conn, bucket int64) (string, error) {
	if name, ok := m.Lookup(bucket); ok {
		return name, nil
	}

	name := fmt.Sprintf("%s_%d", m.baseName, bucket)

	if err := createPartitionTx(c, m.baseName, name, m.schema, bucket); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.byBucket[bucket] = name
	m.mu.Unlock()

	return name, nil
}

func createPartitionTx(c catalog.Conn, baseName, partitionName string, s types.Schema, bucket int64) error {
	sp := catalog.QuoteIdent(fmt.Sprintf("partitioner_create_%d", bucket))
	if err := exec(c, "SAVEPOINT "+sp); err != nil {
		return perr.Wrap(perr.KindPartitionCreateFailed, err, "open create savepoint for bucket %d", bucket)
	}
	rollback := func(cause error) error {
		_ = exec(c, "ROLLBACK TO "+sp)
		_ = exec(c, "RELEASE "+sp)
		return perr.Wrap(perr.KindPartitionCreateFailed, cause, "create partition for bucket %d", bucket)
	}

	if err := exec(c, catalog.BuildCreatePartitionSQL(partitionName, s)); err != nil {
		return rollback(err)
	}

	indexes, err := catalog.ReadTemplateIndexes(c, catalog.TemplateTableName(baseName))
	if err != nil {
		return rollback(err)
	}
	for _, idx := range indexes {
		newName := catalog.RewriteIndexName(idx.Name, bucket)
		if err := exec(c, catalog.BuildCreateIndexSQL(newName, partitionName, idx.Columns, idx.Unique)); err != nil {
			return rollback(err)
		}
	}

	if _, err := c.Exec(catalog.BuildInsertLookupSQL(baseName), []driver.Value{bucket, partitionName}); err != nil {
		return rollback(err)
	}

	if err := exec(c, "RELEASE "+sp); err != nil {
		return perr.Wrap(perr.KindPartitionCreateFailed, err, "release create savepoint for bucket %d", bucket)
	}
	return nil
}

func exec(c catalog.Conn, query string) error {
	_, err := c.Exec(query, nil)
	return err
}
