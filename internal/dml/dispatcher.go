// Package dml routes insert/update/delete calls from the host's xUpdate
// callback to the correct partition(s), creating partitions lazily on
// insert and issuing partial updates that touch only changed columns (C8).
package dml

import (
	"database/sql/driver"
	"math"
	"strings"

	"github.com/chronotab/partitioner/internal/bucketize"
	"github.com/chronotab/partitioner/internal/catalog"
	"github.com/chronotab/partitioner/internal/partition"
	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/internal/schema"
	"github.com/chronotab/partitioner/pkg/types"
)

// PartitionResolver maps a cursor-local partition ordinal back to the
// partition name it referred to when the rowid was minted, so a DML call
// that echoes a rowid from a live cursor can skip the degenerate fallback
// scan (spec.md §4.8).
type PartitionResolver interface {
	ResolveOrdinal(ordinal int) (partitionName string, ok bool)
}

// Dispatcher implements C8 for one virtual table.
type Dispatcher struct {
	Schema         types.Schema
	Interval       types.Interval
	Manager        *partition.Manager
	ParseTimestamp schema.TimestampParser
}

// Insert validates row, buckets it, creates the target partition if
// missing, and appends the row. It returns the rowid SQLite assigned in the
// physical partition table (spec.md §4.8 insert steps 1-5).
func (d *Dispatcher) Insert(c catalog.Conn, row []interface{}) (int64, error) {
	epoch, err := schema.ValidateRow(d.Schema, row, d.ParseTimestamp)
	if err != nil {
		return 0, err
	}
	if err := bucketize.CheckTimestampRange(epoch, d.Interval); err != nil {
		return 0, err
	}
	bucket := bucketize.Bucketize(epoch, d.Interval)

	name, err := d.Manager.EnsurePartition(c, bucket)
	if err != nil {
		return 0, err
	}

	values := normalizeRowForStorage(d.Schema, row, epoch)
	query, args := buildInsertSQL(name, d.Schema, values)
	res, err := c.Exec(query, args)
	if err != nil {
		return 0, perr.Wrap(perr.KindPartitionCreateFailed, err, "insert into partition %q", name)
	}
	return res.LastInsertId()
}

// Delete removes the row addressed by rowid, decoding the partition it
// belongs to via resolver when possible and falling back to a bounded scan
// across every known partition otherwise (spec.md §4.8).
func (d *Dispatcher) Delete(c catalog.Conn, resolver PartitionResolver, rowid int64) error {
	name, local, err := d.resolvePartition(c, resolver, rowid)
	if err != nil {
		return err
	}
	_, err = c.Exec(buildDeleteSQL(name), []driver.Value{local})
	if err != nil {
		return perr.Wrap(perr.KindPartitionMissing, err, "delete rowid %d from partition %q", local, name)
	}
	return nil
}

// Update validates newRow, and either performs an in-place partial update
// (only columns whose bound value actually changed) or, when the
// partition-column bucket changes, deletes the old row and inserts the new
// one (spec.md §4.8).
func (d *Dispatcher) Update(c catalog.Conn, resolver PartitionResolver, oldRowid int64, newRow []interface{}) (int64, error) {
	newEpoch, err := schema.ValidateRow(d.Schema, newRow, d.ParseTimestamp)
	if err != nil {
		return 0, err
	}
	if err := bucketize.CheckTimestampRange(newEpoch, d.Interval); err != nil {
		return 0, err
	}
	newBucket := bucketize.Bucketize(newEpoch, d.Interval)

	oldName, local, err := d.resolvePartition(c, resolver, oldRowid)
	if err != nil {
		return 0, err
	}

	oldValues, err := readRow(c, oldName, local, d.Schema)
	if err != nil {
		return 0, err
	}
	oldEpoch, err := schema.ValidateRow(d.Schema, oldValues, d.ParseTimestamp)
	if err != nil {
		return 0, err
	}
	oldBucket := bucketize.Bucketize(oldEpoch, d.Interval)

	if newBucket != oldBucket {
		if _, err := c.Exec(buildDeleteSQL(oldName), []driver.Value{local}); err != nil {
			return 0, perr.Wrap(perr.KindPartitionMissing, err, "delete moved row from partition %q", oldName)
		}
		newName, err := d.Manager.EnsurePartition(c, newBucket)
		if err != nil {
			return 0, err
		}
		values := normalizeRowForStorage(d.Schema, newRow, newEpoch)
		query, args := buildInsertSQL(newName, d.Schema, values)
		res, err := c.Exec(query, args)
		if err != nil {
			return 0, perr.Wrap(perr.KindPartitionCreateFailed, err, "insert moved row into partition %q", newName)
		}
		return res.LastInsertId()
	}

	newValues := normalizeRowForStorage(d.Schema, newRow, newEpoch)
	cols, args := diffChangedColumns(d.Schema, oldValues, newValues)
	if len(cols) == 0 {
		// P7: no column changed, issue zero host statements.
		return local, nil
	}
	query := buildUpdateSQL(oldName, cols)
	args = append(args, local)
	if _, err := c.Exec(query, args); err != nil {
		return 0, perr.Wrap(perr.KindPartitionMissing, err, "update partition %q", oldName)
	}
	return local, nil
}

// resolvePartition decodes rowid's synthetic encoding, first trying the
// live-cursor resolver, then falling back to a bounded scan across every
// managed partition for a matching local rowid, per spec.md §4.8's
// "AmbiguousDelete" degenerate path.
func (d *Dispatcher) resolvePartition(c catalog.Conn, resolver PartitionResolver, rowid int64) (name string, local int64, err error) {
	ordinal, local := decodeRowid(rowid)

	if resolver != nil {
		if name, ok := resolver.ResolveOrdinal(ordinal); ok {
			return name, local, nil
		}
	}

	var matches []string
	for attempt := 0; attempt < 2; attempt++ {
		for _, bp := range d.Manager.PartitionsInRange(math.MinInt64, math.MaxInt64) {
			exists, err := rowExists(c, bp.Name, local)
			if err != nil {
				return "", 0, err
			}
			if exists {
				matches = append(matches, bp.Name)
			}
		}
		if len(matches) > 0 || attempt > 0 {
			break
		}
		// Nothing found: re-read the lookup table once and scan again.
		if err := d.Manager.Rehydrate(c); err != nil {
			return "", 0, err
		}
	}
	switch len(matches) {
	case 0:
		return "", 0, perr.New(perr.KindPartitionMissing, "no partition contains rowid %d", rowid)
	case 1:
		return matches[0], local, nil
	default:
		return "", 0, perr.New(perr.KindAmbiguousDelete, "rowid %d matches rows in %d partitions", rowid, len(matches))
	}
}

func decodeRowid(rowid int64) (ordinal int, local int64) {
	const localRowidBits = 40
	return int(rowid >> localRowidBits), rowid & (1<<localRowidBits - 1)
}

func rowExists(c catalog.Conn, partitionName string, rowid int64) (bool, error) {
	found := false
	err := forEachRow(c, "SELECT 1 FROM "+catalog.QuoteIdent(partitionName)+" WHERE rowid = ?", []driver.Value{rowid}, func([]driver.Value) error {
		found = true
		return nil
	})
	return found, err
}

func readRow(c catalog.Conn, partitionName string, rowid int64, s types.Schema) ([]interface{}, error) {
	var sb strings.Builder
	sb.WriteString("SELECT")
	for i, col := range s.Columns {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" ")
		sb.WriteString(catalog.QuoteIdent(col.Name))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(catalog.QuoteIdent(partitionName))
	sb.WriteString(" WHERE rowid = ?")

	var out []interface{}
	err := forEachRow(c, sb.String(), []driver.Value{rowid}, func(vals []driver.Value) error {
		out = make([]interface{}, len(vals))
		for i, v := range vals {
			out[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, perr.Wrap(perr.KindPartitionMissing, err, "read row %d from partition %q", rowid, partitionName)
	}
	if out == nil {
		return nil, perr.New(perr.KindPartitionMissing, "row %d not found in partition %q", rowid, partitionName)
	}
	return out, nil
}
