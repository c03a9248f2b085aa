package planner

import (
	"encoding/binary"
	"fmt"

	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/internal/predicate"
)

// idxStrVersion tags the encoding so a stale cached plan from a future
// module version is rejected instead of silently misparsed (spec.md §9:
// "reject unknown tags at filter time with a descriptive error").
const idxStrVersion byte = 1

// EncodedConstraint is one constraint the planner chose to enforce itself,
// as recorded in idxStr: which column, which operator, and which argv slot
// SQLite will bind the comparison value into at filter time.
type EncodedConstraint struct {
	ColumnIndex int
	Op          predicate.Op
	ArgvSlot    int
}

// EncodeIdxStr serializes the chosen constraint subset as a tagged,
// length-prefixed byte string, opaque to the host and round-tripped
// losslessly even across cached plans (spec.md §4.6, §9).
func EncodeIdxStr(cs []EncodedConstraint) string {
	buf := make([]byte, 0, 1+len(cs)*3)
	buf = append(buf, idxStrVersion)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(cs)))
	buf = append(buf, tmp[:n]...)
	for _, c := range cs {
		n := binary.PutUvarint(tmp[:], uint64(c.ColumnIndex))
		buf = append(buf, tmp[:n]...)
		buf = append(buf, byte(c.Op))
		n = binary.PutUvarint(tmp[:], uint64(c.ArgvSlot))
		buf = append(buf, tmp[:n]...)
	}
	return string(buf)
}

// DecodeIdxStr is the inverse of EncodeIdxStr.
func DecodeIdxStr(s string) ([]EncodedConstraint, error) {
	b := []byte(s)
	if len(b) == 0 {
		return nil, nil
	}
	if b[0] != idxStrVersion {
		return nil, perr.New(perr.KindCatalogCorrupt, "idxStr has unknown version tag %d", b[0])
	}
	b = b[1:]

	count, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, perr.New(perr.KindCatalogCorrupt, "idxStr truncated reading constraint count")
	}
	b = b[n:]

	out := make([]EncodedConstraint, 0, count)
	for i := uint64(0); i < count; i++ {
		col, n := binary.Uvarint(b)
		if n <= 0 {
			return nil, perr.New(perr.KindCatalogCorrupt, "idxStr truncated reading column index of constraint %d", i)
		}
		b = b[n:]

		if len(b) < 1 {
			return nil, perr.New(perr.KindCatalogCorrupt, "idxStr truncated reading operator of constraint %d", i)
		}
		op := predicate.Op(b[0])
		b = b[1:]

		slot, n := binary.Uvarint(b)
		if n <= 0 {
			return nil, perr.New(perr.KindCatalogCorrupt, "idxStr truncated reading argv slot of constraint %d", i)
		}
		b = b[n:]

		out = append(out, EncodedConstraint{ColumnIndex: int(col), Op: op, ArgvSlot: int(slot)})
	}
	if len(b) != 0 {
		return nil, perr.New(perr.KindCatalogCorrupt, "idxStr has %d trailing bytes", len(b))
	}
	return out, nil
}

func (c EncodedConstraint) String() string {
	return fmt.Sprintf("col%d%sargv[%d]", c.ColumnIndex, c.Op, c.ArgvSlot)
}
