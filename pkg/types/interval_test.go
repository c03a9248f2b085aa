package types

import "testing"

func TestInterval_Seconds(t *testing.T) {
	if got := (Interval{Count: 3, Unit: IntervalHour}).Seconds(); got != 10800 {
		t.Fatalf("Seconds() = %d, want 10800", got)
	}
	if got := (Interval{Count: 2, Unit: IntervalDay}).Seconds(); got != 172800 {
		t.Fatalf("Seconds() = %d, want 172800", got)
	}
}

func TestInterval_Valid(t *testing.T) {
	if !(Interval{Count: 1, Unit: IntervalHour}).Valid() {
		t.Fatalf("1 hour should be valid")
	}
	if (Interval{Count: 0, Unit: IntervalHour}).Valid() {
		t.Fatalf("count 0 should be invalid")
	}
	if (Interval{Count: 1, Unit: "fortnight"}).Valid() {
		t.Fatalf("unknown unit should be invalid")
	}
}

func TestInterval_String(t *testing.T) {
	if got := (Interval{Count: 7, Unit: IntervalDay}).String(); got != "7 day" {
		t.Fatalf("String() = %q, want %q", got, "7 day")
	}
}

func TestSchema_PartitionColumnAndNames(t *testing.T) {
	s := Schema{
		Columns: []ColumnDecl{
			{Name: "payload", DeclaredType: "varchar", Role: RoleOrdinary},
			{Name: "ts", DeclaredType: "timestamp", Role: RolePartitionColumn},
		},
		PartitionColumnIndex: 1,
	}
	if !s.PartitionColumn().IsPartitionColumn() {
		t.Fatalf("PartitionColumn() should carry RolePartitionColumn")
	}
	if got := s.ColumnNames(); len(got) != 2 || got[0] != "payload" || got[1] != "ts" {
		t.Fatalf("ColumnNames() = %v", got)
	}
	if got := s.VirtualDeclType(1); got != "TEXT" {
		t.Fatalf("VirtualDeclType(partition column) = %q, want TEXT", got)
	}
	if got := s.VirtualDeclType(0); got != "varchar" {
		t.Fatalf("VirtualDeclType(ordinary column) = %q, want varchar", got)
	}
}
