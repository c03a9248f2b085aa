// Package cursor implements the multi-partition cursor state machine (C7):
// given an ordered list of partitions to visit, it opens one child
// statement per partition in turn and presents a single stream of rows to
// the host, each carrying a synthetic rowid stable within the cursor's
// lifetime.
package cursor

import (
	"database/sql/driver"
	"io"
	"strings"

	"github.com/chronotab/partitioner/internal/catalog"
	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/internal/planner"
	"github.com/chronotab/partitioner/internal/partition"
	"github.com/chronotab/partitioner/pkg/types"
)

// localRowidBits is the width of the local-rowid field in a synthetic
// rowid; the remaining high bits identify which partition (by cursor-local
// ordinal) a row came from (spec.md §4.7).
const localRowidBits = 40

// Cursor is one open scan across a subset of a virtual table's partitions.
type Cursor struct {
	conn   catalog.Conn
	schema types.Schema

	partitions []partition.BucketPartition
	ordinal    int // index into partitions of the currently open child

	rows    driver.Rows
	curVals []driver.Value // [0]=rowid, [1:]=column values of the current row
	isEOF   bool
}

// Open creates a cursor bound to a connection and schema; Filter must be
// called before it yields any rows.
func Open(c catalog.Conn, schema types.Schema) *Cursor {
	return &Cursor{conn: c, schema: schema, isEOF: true}
}

// Filter narrows the cursor to partitions and applies pushed-down
// predicates, then advances to the first row (spec.md §4.7 state machine:
// filter -> READY_NEXT_PARTITION -> ... ).
func (cur *Cursor) Filter(partitions []partition.BucketPartition, predicates []planner.EncodedConstraint, argv []interface{}) error {
	cur.closeChild()
	cur.partitions = partitions
	cur.ordinal = 0
	cur.isEOF = false

	if len(cur.partitions) == 0 {
		cur.isEOF = true
		return nil
	}
	return cur.openChild(predicates, argv)
}

// openChild prepares and runs the query for the partition at cur.ordinal,
// positioning at its first row (or advancing past it if empty).
func (cur *Cursor) openChild(predicates []planner.EncodedConstraint, argv []interface{}) error {
	for cur.ordinal < len(cur.partitions) {
		p := cur.partitions[cur.ordinal]
		query, args, err := buildChildQuery(p.Name, cur.schema, predicates, argv)
		if err != nil {
			return err
		}
		rows, err := cur.conn.Query(query, args)
		if err != nil {
			return perr.Wrap(perr.KindPartitionMissing, err, "open child statement on partition %q", p.Name)
		}
		cur.rows = rows
		cur.curVals = make([]driver.Value, len(rows.Columns()))

		if err := cur.stepChild(); err != nil {
			return err
		}
		if cur.curVals != nil {
			return nil // positioned on a real row
		}
		// This partition produced no rows; close it and try the next one.
		cur.closeChild()
		cur.ordinal++
	}
	cur.isEOF = true
	return nil
}

// stepChild advances the currently open child statement by one row. On
// exhaustion it sets cur.curVals to nil (the caller decides whether to
// advance to the next partition or report EOF) without changing cur.isEOF.
func (cur *Cursor) stepChild() error {
	err := cur.rows.Next(cur.curVals)
	if err == io.EOF {
		cur.curVals = nil
		return nil
	}
	if err != nil {
		return perr.Wrap(perr.KindPartitionMissing, err, "step child statement on partition %q", cur.partitions[cur.ordinal].Name)
	}
	return nil
}

// Next advances to the next row, moving to the next partition's child
// statement when the current one is exhausted (spec.md §4.7).
func (cur *Cursor) Next(predicates []planner.EncodedConstraint, argv []interface{}) error {
	if cur.isEOF {
		return nil
	}
	if err := cur.stepChild(); err != nil {
		return err
	}
	if cur.curVals != nil {
		return nil
	}
	cur.closeChild()
	cur.ordinal++
	return cur.openChild(predicates, argv)
}

// EOF reports whether the cursor has no more rows.
func (cur *Cursor) EOF() bool {
	return cur.isEOF
}

// Column returns the value of column i (in virtual-schema order) of the
// current row.
func (cur *Cursor) Column(i int) (driver.Value, error) {
	if cur.isEOF || cur.curVals == nil {
		return nil, perr.New(perr.KindPartitionMissing, "column access with no current row")
	}
	if i+1 >= len(cur.curVals) {
		return nil, perr.New(perr.KindPartitionMissing, "column index %d out of range", i)
	}
	return cur.curVals[i+1], nil
}

// Rowid returns the synthetic rowid of the current row: the cursor-local
// partition ordinal packed into the high bits, the child table's own rowid
// in the low localRowidBits bits (spec.md §4.7, invariant I5).
func (cur *Cursor) Rowid() (int64, error) {
	if cur.isEOF || cur.curVals == nil {
		return 0, perr.New(perr.KindPartitionMissing, "rowid access with no current row")
	}
	local, ok := cur.curVals[0].(int64)
	if !ok {
		return 0, perr.New(perr.KindPartitionMissing, "child rowid has unexpected type %T", cur.curVals[0])
	}
	return EncodeRowid(cur.ordinal, local), nil
}

// EncodeRowid packs a cursor-local partition ordinal and a child table's
// local rowid into one synthetic rowid.
func EncodeRowid(ordinal int, local int64) int64 {
	return int64(ordinal)<<localRowidBits | (local & (1<<localRowidBits - 1))
}

// DecodeRowid splits a synthetic rowid back into partition ordinal and
// local rowid.
func DecodeRowid(rowid int64) (ordinal int, local int64) {
	return int(rowid >> localRowidBits), rowid & (1<<localRowidBits - 1)
}

// Close finalizes the currently open child statement, if any (spec.md §5:
// "on cursor close, every not-yet-finalized child statement is finalized").
func (cur *Cursor) Close() error {
	cur.closeChild()
	return nil
}

func (cur *Cursor) closeChild() {
	if cur.rows != nil {
		_ = cur.rows.Close()
		cur.rows = nil
	}
}

// CurrentPartitionName returns the name of the partition the cursor is
// currently positioned on, used by the DML dispatcher to decode
// rowid-addressed deletes/updates issued against the last cursor result.
func (cur *Cursor) CurrentPartitionName() (string, bool) {
	if cur.isEOF || cur.ordinal >= len(cur.partitions) {
		return "", false
	}
	return cur.partitions[cur.ordinal].Name, true
}

// buildChildQuery renders "SELECT rowid, cols... FROM partition WHERE ..."
// with one placeholder per predicate, bound from argv by ArgvSlot.
func buildChildQuery(partitionName string, s types.Schema, predicates []planner.EncodedConstraint, argv []interface{}) (string, []driver.Value, error) {
	var sb strings.Builder
	sb.WriteString("SELECT rowid")
	for _, c := range s.Columns {
		sb.WriteString(", ")
		sb.WriteString(catalog.QuoteIdent(c.Name))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(catalog.QuoteIdent(partitionName))

	var args []driver.Value
	if len(predicates) > 0 {
		sb.WriteString(" WHERE ")
		for i, c := range predicates {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			if c.ColumnIndex < 0 || c.ColumnIndex >= len(s.Columns) {
				return "", nil, perr.New(perr.KindPushdownUnsupported, "predicate references out-of-range column %d", c.ColumnIndex)
			}
			sb.WriteString(catalog.QuoteIdent(s.Columns[c.ColumnIndex].Name))
			sb.WriteString(" ")
			sb.WriteString(c.Op.String())
			sb.WriteString(" ?")

			slot := c.ArgvSlot - 1
			if slot < 0 || slot >= len(argv) {
				return "", nil, perr.New(perr.KindPushdownUnsupported, "predicate argv slot %d out of range (argv has %d values)", c.ArgvSlot, len(argv))
			}
			args = append(args, argv[slot])
		}
	}

	return sb.String(), args, nil
}
