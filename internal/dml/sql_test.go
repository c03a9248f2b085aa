package dml

import "testing"

// TestValuesEqual_LargeInt64PrecisionExact guards against the two epoch
// values below silently comparing equal: both exceed 2^53, so funneling
// them through a shared float64 intermediate would round them to the same
// bit pattern and diffChangedColumns would wrongly treat the column as
// unchanged (spec.md §4.8 step 3 and P7 require byte-equal comparison).
func TestValuesEqual_LargeInt64PrecisionExact(t *testing.T) {
	a := int64(9007199254740995) // 2^53 + 3, rounds (to even) up to 2^53 + 4
	b := int64(9007199254740996) // 2^53 + 4, exactly representable as float64
	if float64(a) != float64(b) {
		t.Fatalf("test setup invalid: %d and %d must round to the same float64", a, b)
	}
	if valuesEqual(a, b) {
		t.Fatalf("valuesEqual(%d, %d) = true, want false", a, b)
	}
	if !valuesEqual(a, a) {
		t.Fatalf("valuesEqual(%d, %d) = false, want true", a, a)
	}
}

func TestValuesEqual_IntAndInt64(t *testing.T) {
	if !valuesEqual(int(42), int64(42)) {
		t.Fatalf("valuesEqual(int(42), int64(42)) = false, want true")
	}
}

func TestValuesEqual_StringAndBytes(t *testing.T) {
	if !valuesEqual("hello", []byte("hello")) {
		t.Fatalf("valuesEqual(\"hello\", []byte(\"hello\")) = false, want true")
	}
}

func TestValuesEqual_Nil(t *testing.T) {
	if !valuesEqual(nil, nil) {
		t.Fatalf("valuesEqual(nil, nil) = false, want true")
	}
	if valuesEqual(nil, "") {
		t.Fatalf("valuesEqual(nil, \"\") = true, want false")
	}
	if valuesEqual(nil, int64(0)) {
		t.Fatalf("valuesEqual(nil, int64(0)) = true, want false")
	}
}

func TestDiffChangedColumns_SkipsUnchanged(t *testing.T) {
	s := testSchema()
	old := []interface{}{int64(1672534800), "A"}
	updated := []interface{}{int64(1672534800), "A2"}

	cols, args := diffChangedColumns(s, old, updated)
	if len(cols) != 1 || cols[0] != "payload" {
		t.Fatalf("diffChangedColumns cols = %v, want [payload]", cols)
	}
	if len(args) != 1 || args[0] != "A2" {
		t.Fatalf("diffChangedColumns args = %v, want [A2]", args)
	}
}
