package vtab

import (
	"github.com/mattn/go-sqlite3"

	"github.com/chronotab/partitioner/internal/planner"
	"github.com/chronotab/partitioner/internal/predicate"
)

// BestIndex implements sqlite3.VTab, translating the host's constraint and
// ORDER BY lists into a planner.Input, running C6, and translating the
// result back into a sqlite3.IndexResult (spec.md §4.6).
func (vt *VTable) BestIndex(cst []sqlite3.InfoConstraint, ob []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	constraints := make([]predicate.Constraint, len(cst))
	for i, c := range cst {
		op, ok := mapOp(c.Op)
		constraints[i] = predicate.Constraint{
			ColumnIndex: c.Column,
			Op:          op,
			Usable:      c.Usable && ok,
		}
	}

	orderByPartitionAsc := false
	if len(ob) == 1 && ob[0].Column == vt.schema.PartitionColumnIndex && !ob[0].Desc {
		orderByPartitionAsc = true
	}

	result := planner.Plan(planner.Input{
		Constraints:          constraints,
		PartitionColumnIndex: vt.schema.PartitionColumnIndex,
		OrderByPartitionAsc:  orderByPartitionAsc,
		KnownPartitionCount:  vt.manager.KnownPartitionCount(),
	})

	used := make([]bool, len(cst))
	for i, slot := range result.ArgvSlot {
		used[i] = slot > 0
	}

	return &sqlite3.IndexResult{
		Used:           used,
		IdxNum:         result.IdxNum,
		IdxStr:         result.IdxStr,
		AlreadyOrdered: result.OrderByConsumed,
		EstimatedCost:  result.EstimatedCost,
		EstimatedRows:  float64(result.EstimatedRows),
	}, nil
}

// mapOp translates a SQLite constraint opcode to predicate.Op. Opcodes with
// no useful partition-pruning or per-partition-WHERE meaning here (NE,
// ISNULL, ISNOTNULL) report ok=false so the host re-checks them itself.
func mapOp(op sqlite3.Op) (predicate.Op, bool) {
	switch op {
	case sqlite3.OpEQ:
		return predicate.OpEq, true
	case sqlite3.OpLT:
		return predicate.OpLt, true
	case sqlite3.OpLE:
		return predicate.OpLe, true
	case sqlite3.OpGT:
		return predicate.OpGt, true
	case sqlite3.OpGE:
		return predicate.OpGe, true
	case sqlite3.OpIS:
		return predicate.OpIs, true
	case sqlite3.OpISNOT:
		return predicate.OpIsNot, true
	case sqlite3.OpMATCH:
		return predicate.OpMatch, true
	case sqlite3.OpLIKE:
		return predicate.OpLike, true
	case sqlite3.OpGLOB:
		return predicate.OpGlob, true
	case sqlite3.OpREGEXP:
		return predicate.OpRegexp, true
	default:
		return 0, false
	}
}
