// Package schema parses the DDL column-list argument of
// CREATE VIRTUAL TABLE ... USING partitioner(...) into a types.Schema and
// validates row tuples against it at insert/update time.
package schema

import (
	"strconv"
	"strings"

	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

// ParseColumns parses a comma-separated column-list argument of the form
// "name type [partition_column]" per column. Exactly one column must carry
// the partition_column marker, and its declared type must be "timestamp".
func ParseColumns(args []string) (types.Schema, error) {
	var cols []types.ColumnDecl
	partitionIdx := -1

	for _, arg := range args {
		fields := strings.Fields(strings.TrimSpace(arg))
		if len(fields) < 2 {
			return types.Schema{}, perr.New(perr.KindMalformedColumnDeclaration, "malformed column declaration %q", arg)
		}

		name := fields[0]
		declType := fields[1]
		role := types.RoleOrdinary
		if len(fields) >= 3 && strings.EqualFold(fields[2], "partition_column") {
			role = types.RolePartitionColumn
		}

		if role == types.RolePartitionColumn {
			if partitionIdx != -1 {
				return types.Schema{}, perr.New(perr.KindMultiplePartitionColumns, "columns %q and %q both marked partition_column", cols[partitionIdx].Name, name)
			}
			if !strings.EqualFold(declType, "timestamp") {
				return types.Schema{}, perr.New(perr.KindUnsupportedPartitionColumnType, "partition column %q declared as %q, want timestamp", name, declType)
			}
			partitionIdx = len(cols)
		}

		cols = append(cols, types.ColumnDecl{Name: name, DeclaredType: declType, Role: role})
	}

	if partitionIdx == -1 {
		return types.Schema{}, perr.New(perr.KindNoPartitionColumn, "no column marked partition_column")
	}

	return types.Schema{Columns: cols, PartitionColumnIndex: partitionIdx}, nil
}

// TimestampParser normalizes textual timestamp input to epoch seconds. The
// real implementation lives outside this module's scope (spec.md §1: "the
// textual datetime parser ... treated as a pure function"); callers inject
// one so this package stays independent of the host's date-format grammar.
type TimestampParser func(text string) (int64, error)

// ValidateRow checks row arity and normalizes the partition-column value to
// epoch seconds. Non-partition columns pass through verbatim; the host
// enforces their types at storage time (spec.md §4.2).
func ValidateRow(s types.Schema, row []interface{}, parseTimestamp TimestampParser) (int64, error) {
	if len(row) != len(s.Columns) {
		return 0, perr.New(perr.KindPartitionColumnTypeMismatch, "row has %d values, schema has %d columns", len(row), len(s.Columns))
	}

	pcVal := row[s.PartitionColumnIndex]
	switch v := pcVal.(type) {
	case nil:
		// spec.md §9 open question (b): recommended policy is to reject NULL
		// partition-column values as a type mismatch.
		return 0, perr.New(perr.KindPartitionColumnTypeMismatch, "partition column %q is NULL", s.PartitionColumn().Name)
	case string:
		if parseTimestamp == nil {
			return 0, perr.New(perr.KindPartitionColumnTypeMismatch, "no timestamp parser configured for text value %q", v)
		}
		epoch, err := parseTimestamp(v)
		if err != nil {
			return 0, perr.Wrap(perr.KindPartitionColumnTypeMismatch, err, "partition column %q value %q is not a recognized timestamp", s.PartitionColumn().Name, v)
		}
		return epoch, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		// database/sql commonly hands back float64 for INTEGER-affinity
		// values bound through driver-agnostic paths; truncate toward zero.
		return int64(v), nil
	case []byte:
		epoch, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err == nil {
			return epoch, nil
		}
		if parseTimestamp == nil {
			return 0, perr.New(perr.KindPartitionColumnTypeMismatch, "no timestamp parser configured for text value %q", string(v))
		}
		epoch, err = parseTimestamp(string(v))
		if err != nil {
			return 0, perr.Wrap(perr.KindPartitionColumnTypeMismatch, err, "partition column %q value %q is not a recognized timestamp", s.PartitionColumn().Name, string(v))
		}
		return epoch, nil
	default:
		return 0, perr.New(perr.KindPartitionColumnTypeMismatch, "partition column %q value has unsupported type %T", s.PartitionColumn().Name, pcVal)
	}
}

// ValidIdentifier reports whether name is safe to splice, unquoted, into a
// column position of generated DDL (it is still always emitted quoted; this
// is a defense against control characters slipping into identifiers).
func ValidIdentifier(name string) bool {
	if len(name) == 0 {
		return false
	}
	for i, c := range name {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if !isLetter && !isDigit {
			return false
		}
	}
	return true
}
