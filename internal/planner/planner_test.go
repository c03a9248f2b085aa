package planner

import (
	"testing"

	"github.com/chronotab/partitioner/internal/predicate"
)

func TestPlan_EqualityOnPartitionColumn(t *testing.T) {
	in := Input{
		Constraints: []predicate.Constraint{
			{ColumnIndex: 0, Op: predicate.OpEq, Usable: true},
		},
		PartitionColumnIndex: 0,
		KnownPartitionCount:  10,
	}
	result := Plan(in)

	if result.ArgvSlot[0] != 1 {
		t.Fatalf("ArgvSlot[0] = %d, want 1", result.ArgvSlot[0])
	}
	decoded, err := DecodeIdxStr(result.IdxStr)
	if err != nil {
		t.Fatalf("DecodeIdxStr: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Op != predicate.OpEq {
		t.Fatalf("decoded constraints = %+v", decoded)
	}
	// Equality on the partition column narrows to a single partition, so
	// this is the cheapest plan shape.
	if result.EstimatedCost != 10.0 {
		t.Fatalf("EstimatedCost = %v, want 10.0", result.EstimatedCost)
	}
}

func TestPlan_UnusableConstraintNotConsumed(t *testing.T) {
	in := Input{
		Constraints: []predicate.Constraint{
			{ColumnIndex: 0, Op: predicate.OpEq, Usable: false},
		},
		PartitionColumnIndex: 0,
	}
	result := Plan(in)
	if result.ArgvSlot[0] != 0 {
		t.Fatalf("ArgvSlot[0] = %d, want 0 (host must recheck)", result.ArgvSlot[0])
	}
}

func TestPlan_OrderByConsumedOnlyWithEquality(t *testing.T) {
	base := Input{PartitionColumnIndex: 0, OrderByPartitionAsc: true}

	noEq := Plan(base)
	if noEq.OrderByConsumed {
		t.Fatalf("OrderByConsumed = true without an equality constraint")
	}

	withEq := base
	withEq.Constraints = []predicate.Constraint{{ColumnIndex: 0, Op: predicate.OpEq, Usable: true}}
	result := Plan(withEq)
	if !result.OrderByConsumed {
		t.Fatalf("OrderByConsumed = false with a single-partition equality plan")
	}
}

func TestPlan_NonPartitionConstraintPassesThrough(t *testing.T) {
	in := Input{
		Constraints: []predicate.Constraint{
			{ColumnIndex: 1, Op: predicate.OpLike, Usable: true},
		},
		PartitionColumnIndex: 0,
	}
	result := Plan(in)
	if result.ArgvSlot[0] != 1 {
		t.Fatalf("ArgvSlot[0] = %d, want 1 (module pushes it through)", result.ArgvSlot[0])
	}
}

func TestEncodeDecodeIdxStr_RoundTrip(t *testing.T) {
	cs := []EncodedConstraint{
		{ColumnIndex: 0, Op: predicate.OpGe, ArgvSlot: 1},
		{ColumnIndex: 2, Op: predicate.OpLike, ArgvSlot: 2},
	}
	encoded := EncodeIdxStr(cs)
	decoded, err := DecodeIdxStr(encoded)
	if err != nil {
		t.Fatalf("DecodeIdxStr: %v", err)
	}
	if len(decoded) != len(cs) {
		t.Fatalf("decoded len = %d, want %d", len(decoded), len(cs))
	}
	for i := range cs {
		if decoded[i] != cs[i] {
			t.Fatalf("decoded[%d] = %+v, want %+v", i, decoded[i], cs[i])
		}
	}
}

func TestDecodeIdxStr_Empty(t *testing.T) {
	decoded, err := DecodeIdxStr("")
	if err != nil {
		t.Fatalf("DecodeIdxStr(\"\"): %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("decoded = %+v, want empty", decoded)
	}
}

func TestDecodeIdxStr_RejectsUnknownVersion(t *testing.T) {
	_, err := DecodeIdxStr(string([]byte{0xff}))
	if err == nil {
		t.Fatalf("DecodeIdxStr should reject an unknown version tag")
	}
}

func TestDecodeIdxStr_RejectsTruncated(t *testing.T) {
	encoded := EncodeIdxStr([]EncodedConstraint{{ColumnIndex: 0, Op: predicate.OpEq, ArgvSlot: 1}})
	truncated := encoded[:len(encoded)-1]
	if _, err := DecodeIdxStr(truncated); err == nil {
		t.Fatalf("DecodeIdxStr should reject a truncated payload")
	}
}
