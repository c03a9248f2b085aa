// Package planner turns the host's per-query constraint list into an index
// plan: which constraints this module will enforce itself, the opaque
// idxStr payload the cursor re-parses at filter time, and a cost/row
// estimate that favors partition-narrowing plans (C6).
package planner

import (
	"github.com/chronotab/partitioner/internal/predicate"
)

// Input mirrors the query-compilation-time information the host hands to
// BestIndex.
type Input struct {
	Constraints          []predicate.Constraint // Usable is host-reported usability, ArgvSlot is ignored on input
	PartitionColumnIndex int
	OrderByPartitionAsc  bool // requested ORDER BY is ascending on the partition column
	KnownPartitionCount  int  // size of the manager's current bucket range, for cost estimation
}

// Result is what BestIndex reports back to the host (spec.md §4.6).
type Result struct {
	// ArgvSlot[i] is 0 if the host must recheck constraint i itself, or the
	// 1-based argv position this module will bind it to.
	ArgvSlot []int
	IdxNum   int
	IdxStr   string
	// EstimatedCost is lower for queries with equality on the partition
	// column, higher for unbounded scans.
	EstimatedCost   float64
	EstimatedRows   int64
	OrderByConsumed bool
}

// Plan computes a Result from Input. Every usable constraint is consumed
// (encoded in idxStr and given an argv slot) regardless of which column it
// targets: partition-column constraints additionally narrow the bucket
// range at filter time, and non-partition constraints flow straight into
// each visited partition's WHERE clause (spec.md §4.6, §4.3).
func Plan(in Input) Result {
	argvSlots := make([]int, len(in.Constraints))
	var encoded []EncodedConstraint

	nextSlot := 1
	hasPartitionEq := false
	hasAnyPartitionBound := false

	for i, c := range in.Constraints {
		if !c.Usable {
			continue
		}
		if c.ColumnIndex == in.PartitionColumnIndex {
			if !c.Op.Prunable() {
				// IS/IS NOT/MATCH/LIKE/GLOB/REGEXP on the partition column
				// cannot narrow buckets but can still be pushed through
				// verbatim to each visited partition.
				argvSlots[i] = nextSlot
				encoded = append(encoded, EncodedConstraint{ColumnIndex: c.ColumnIndex, Op: c.Op, ArgvSlot: nextSlot})
				nextSlot++
				continue
			}
			hasAnyPartitionBound = true
			if c.Op == predicate.OpEq {
				hasPartitionEq = true
			}
		}
		argvSlots[i] = nextSlot
		encoded = append(encoded, EncodedConstraint{ColumnIndex: c.ColumnIndex, Op: c.Op, ArgvSlot: nextSlot})
		nextSlot++
	}

	// orderByConsumed only holds when the plan can be satisfied by a single
	// partition (spec.md §4.6: "otherwise a merge sort across partitions
	// would be needed and is not implemented").
	singlePartitionPlan := hasPartitionEq
	orderByConsumed := in.OrderByPartitionAsc && singlePartitionPlan

	cost, rows := estimate(in, hasPartitionEq, hasAnyPartitionBound)

	return Result{
		ArgvSlot:        argvSlots,
		IdxNum:          0,
		IdxStr:          EncodeIdxStr(encoded),
		EstimatedCost:   cost,
		EstimatedRows:   rows,
		OrderByConsumed: orderByConsumed,
	}
}

// estimate produces a heuristic cost that decreases the more the plan
// narrows the partition set: an equality on the partition column visits at
// most one partition; a one-sided or two-sided range visits a subset; no
// bound at all visits every known partition.
func estimate(in Input, hasEq, hasBound bool) (cost float64, rows int64) {
	n := int64(in.KnownPartitionCount)
	if n <= 0 {
		n = 1
	}
	const rowsPerPartitionGuess = 1000

	switch {
	case hasEq:
		return 10.0, rowsPerPartitionGuess
	case hasBound:
		// Assume a range constraint prunes to roughly half the partitions.
		visited := n/2 + 1
		return float64(visited) * 50.0, visited * rowsPerPartitionGuess
	default:
		return float64(n) * 100.0, n * rowsPerPartitionGuess
	}
}
