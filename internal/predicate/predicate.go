// Package predicate models the host's pushed-down WHERE constraints and
// extracts the bucket range they imply over the partition column.
package predicate

import "math"

// Op is a comparison operator the host may push down. Only Eq/Lt/Le/Gt/Ge
// on the partition column are interpretable for partition pruning; the
// remainder are always forwarded verbatim to each visited partition.
type Op byte

const (
	OpEq Op = iota
	OpLt
	OpLe
	OpGt
	OpGe
	OpIs
	OpIsNot
	OpMatch
	OpLike
	OpGlob
	OpRegexp
)

// Prunable reports whether op can narrow the partition bucket range.
func (o Op) Prunable() bool {
	switch o {
	case OpEq, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// String renders the operator as SQL text for building per-partition WHERE
// clauses.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIs:
		return "IS"
	case OpIsNot:
		return "IS NOT"
	case OpMatch:
		return "MATCH"
	case OpLike:
		return "LIKE"
	case OpGlob:
		return "GLOB"
	case OpRegexp:
		return "REGEXP"
	default:
		return "?"
	}
}

// Constraint is one entry of the host's constraint list: a column, an
// operator, and the 0-based index into argv of its comparison value.
type Constraint struct {
	ColumnIndex int
	Op          Op
	ArgvSlot    int
	Usable      bool
}

// Range is an inclusive bucket-unit range. Unbounded ends are represented
// with math.MinInt64/math.MaxInt64 ("earliest existing"/"latest existing"
// per spec.md §4.3).
type Range struct {
	LoBucket int64
	HiBucket int64
}

// Unbounded returns the range with no constraints applied.
func Unbounded() Range {
	return Range{LoBucket: math.MinInt64, HiBucket: math.MaxInt64}
}

// Bucketizer maps an epoch-seconds value to its containing bucket start.
type Bucketizer func(tsEpoch int64) int64

// TimestampParser normalizes a textual constraint argument to epoch
// seconds, injected by the caller so this package stays independent of the
// host's date-format grammar (see internal/schema.TimestampParser).
type TimestampParser func(text string) (int64, error)

// ExtractPartitionRange narrows a Range using the subset of constraints
// targeting the partition column, per spec.md §4.3:
//
//   - Eq narrows both bounds to bucketize(v).
//   - Gt/Ge raise the lower bound (a strict '>' may still leave a matching
//     row in the same bucket as v, so the bound stays inclusive at bucket
//     granularity).
//   - Lt/Le lower the upper bound symmetrically.
func ExtractPartitionRange(constraints []Constraint, argv []interface{}, partitionColumn int, bucketize Bucketizer, parseTimestamp TimestampParser) Range {
	r := Unbounded()
	for _, c := range constraints {
		if c.ColumnIndex != partitionColumn || !c.Op.Prunable() || !c.Usable {
			continue
		}
		if c.ArgvSlot < 0 || c.ArgvSlot >= len(argv) {
			continue
		}
		v, err := toEpoch(argv[c.ArgvSlot], parseTimestamp)
		if err != nil {
			continue
		}
		b := bucketize(v)
		switch c.Op {
		case OpEq:
			if b > r.LoBucket {
				r.LoBucket = b
			}
			if b < r.HiBucket {
				r.HiBucket = b
			}
		case OpGt, OpGe:
			if b > r.LoBucket {
				r.LoBucket = b
			}
		case OpLt, OpLe:
			if b < r.HiBucket {
				r.HiBucket = b
			}
		}
	}
	return r
}

func toEpoch(v interface{}, parseTimestamp TimestampParser) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		if parseTimestamp == nil {
			return 0, errUnsupportedArgType
		}
		return parseTimestamp(t)
	case []byte:
		if parseTimestamp == nil {
			return 0, errUnsupportedArgType
		}
		return parseTimestamp(string(t))
	default:
		return 0, errUnsupportedArgType
	}
}

type unsupportedArgType struct{}

func (unsupportedArgType) Error() string { return "predicate: unsupported constraint argument type" }

var errUnsupportedArgType = unsupportedArgType{}
