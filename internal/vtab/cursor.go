package vtab

import (
	"database/sql/driver"

	"github.com/mattn/go-sqlite3"

	"github.com/chronotab/partitioner/internal/bucketize"
	"github.com/chronotab/partitioner/internal/cursor"
	"github.com/chronotab/partitioner/internal/partition"
	"github.com/chronotab/partitioner/internal/planner"
	"github.com/chronotab/partitioner/internal/predicate"
)

// Cursor adapts internal/cursor.Cursor (C7) to sqlite3.VTabCursor, and also
// implements dml.PartitionResolver so a DML call that echoes a rowid this
// cursor produced can skip the fallback scan (spec.md §4.8).
type Cursor struct {
	vt  *VTable
	cur *cursor.Cursor

	partitions []partition.BucketPartition
	predicates []planner.EncodedConstraint
	argv       []interface{}
}

// Filter narrows the scan to the partitions implied by the pushed-down
// partition-column bounds, decoded from idxStr, and positions on the first
// row (spec.md §4.7).
func (ac *Cursor) Filter(idxNum int, idxStr string, vals []interface{}) error {
	if ac.cur == nil {
		ac.cur = cursor.Open(ac.vt.sqliteConn, ac.vt.schema)
	}

	encoded, err := planner.DecodeIdxStr(idxStr)
	if err != nil {
		return err
	}

	pcIndex := ac.vt.schema.PartitionColumnIndex
	rangeConstraints := make([]predicate.Constraint, 0, len(encoded))
	for _, ec := range encoded {
		rangeConstraints = append(rangeConstraints, predicate.Constraint{
			ColumnIndex: ec.ColumnIndex,
			Op:          ec.Op,
			ArgvSlot:    ec.ArgvSlot - 1, // idxStr slots are 1-based (SQLite argv convention)
			Usable:      true,
		})
	}

	rng := predicate.ExtractPartitionRange(rangeConstraints, vals, pcIndex, func(ts int64) int64 {
		return bucketize.Bucketize(ts, ac.vt.interval)
	}, predicate.TimestampParser(ac.vt.module.ParseTimestamp))

	ac.partitions = ac.vt.manager.PartitionsInRange(rng.LoBucket, rng.HiBucket)
	ac.predicates = encoded
	ac.argv = vals

	ac.vt.setLastCursor(ac)
	return ac.cur.Filter(ac.partitions, ac.predicates, ac.argv)
}

// Next advances to the next row, moving across partitions transparently
// (spec.md §4.7).
func (ac *Cursor) Next() error {
	return ac.cur.Next(ac.predicates, ac.argv)
}

// EOF reports whether the cursor has been exhausted.
func (ac *Cursor) EOF() bool {
	return ac.cur == nil || ac.cur.EOF()
}

// Column writes column col's value of the current row into the host's
// result context.
func (ac *Cursor) Column(c *sqlite3.SQLiteContext, col int) error {
	v, err := ac.cur.Column(col)
	if err != nil {
		return err
	}
	resultFromValue(c, v)
	return nil
}

// Rowid returns the current row's synthetic rowid (spec.md §4.7, I5).
func (ac *Cursor) Rowid() (int64, error) {
	return ac.cur.Rowid()
}

// Close finalizes every child statement still open (spec.md §5).
func (ac *Cursor) Close() error {
	ac.vt.clearLastCursor(ac)
	if ac.cur == nil {
		return nil
	}
	return ac.cur.Close()
}

// ResolveOrdinal implements dml.PartitionResolver: it maps a cursor-local
// partition ordinal, as packed into a rowid this cursor minted, back to the
// partition name it referred to at the time of the scan.
func (ac *Cursor) ResolveOrdinal(ordinal int) (string, bool) {
	if ordinal < 0 || ordinal >= len(ac.partitions) {
		return "", false
	}
	return ac.partitions[ordinal].Name, true
}

// resultFromValue writes a driver.Value into a SQLiteContext using the
// ResultXxx method matching its dynamic type.
func resultFromValue(c *sqlite3.SQLiteContext, v driver.Value) {
	switch t := v.(type) {
	case nil:
		c.ResultNull()
	case int64:
		c.ResultInt64(t)
	case float64:
		c.ResultDouble(t)
	case bool:
		c.ResultBool(t)
	case string:
		c.ResultText(t)
	case []byte:
		c.ResultBlob(t)
	default:
		c.ResultNull()
	}
}
