package dml

import (
	"database/sql/driver"
	"io"
	"strings"
	"time"

	"github.com/chronotab/partitioner/internal/catalog"
	"github.com/chronotab/partitioner/pkg/types"
)

// forEachRow drains a query's result set at the driver level, mirroring
// internal/catalog's own row-iteration helper (kept package-local here to
// avoid exporting catalog's driver-level plumbing beyond what C4 needs).
func forEachRow(c catalog.Conn, query string, args []driver.Value, fn func(vals []driver.Value) error) error {
	rows, err := c.Query(query, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	dest := make([]driver.Value, len(rows.Columns()))
	for {
		err := rows.Next(dest)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(dest); err != nil {
			return err
		}
	}
}

// normalizeRowForStorage formats the partition column of a validated row to
// its canonical stored text (spec.md §9 open question (a): raw text is kept
// verbatim; a numeric epoch input is re-serialized to a canonical UTC form
// so storage stays text either way). Non-partition columns pass through
// unchanged; they are converted to driver.Value only at the exec call site.
func normalizeRowForStorage(s types.Schema, row []interface{}, epoch int64) []interface{} {
	out := make([]interface{}, len(row))
	copy(out, row)
	out[s.PartitionColumnIndex] = formatPartitionColumn(row[s.PartitionColumnIndex], epoch)
	return out
}

func formatPartitionColumn(original interface{}, epoch int64) string {
	switch v := original.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return formatEpochUTC(epoch)
	}
}

// formatEpochUTC renders an epoch-seconds timestamp in the canonical text
// form the partition column is stored in when the caller supplied a numeric
// value rather than pre-formatted text (spec.md §9 open question (a)).
func formatEpochUTC(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04:05")
}

func toDriverValue(v interface{}) driver.Value {
	switch t := v.(type) {
	case nil, int64, float64, bool, []byte, string:
		return t
	case int:
		return int64(t)
	default:
		return v
	}
}

func toDriverValues(vals []interface{}) []driver.Value {
	out := make([]driver.Value, len(vals))
	for i, v := range vals {
		out[i] = toDriverValue(v)
	}
	return out
}

func buildInsertSQL(partitionName string, s types.Schema, values []interface{}) (string, []driver.Value) {
	var cols, marks strings.Builder
	for i, col := range s.Columns {
		if i > 0 {
			cols.WriteString(", ")
			marks.WriteString(", ")
		}
		cols.WriteString(catalog.QuoteIdent(col.Name))
		marks.WriteString("?")
	}
	query := "INSERT INTO " + catalog.QuoteIdent(partitionName) + " (" + cols.String() + ") VALUES (" + marks.String() + ")"
	return query, toDriverValues(values)
}

func buildDeleteSQL(partitionName string) string {
	return "DELETE FROM " + catalog.QuoteIdent(partitionName) + " WHERE rowid = ?"
}

func buildUpdateSQL(partitionName string, cols []string) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(catalog.QuoteIdent(partitionName))
	sb.WriteString(" SET ")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(catalog.QuoteIdent(c))
		sb.WriteString(" = ?")
	}
	sb.WriteString(" WHERE rowid = ?")
	return sb.String()
}

// diffChangedColumns compares old and new row values column by column and
// returns only the columns that changed, along with the driver-ready bind
// values for those columns (spec.md §4.8/§8 P7).
func diffChangedColumns(s types.Schema, oldValues, newValues []interface{}) (cols []string, args []driver.Value) {
	for i, col := range s.Columns {
		if valuesEqual(oldValues[i], newValues[i]) {
			continue
		}
		cols = append(cols, col.Name)
		args = append(args, toDriverValue(newValues[i]))
	}
	return cols, args
}

// valuesEqual reports whether a and b are the same bound value (spec.md
// §4.8 step 3 and P7 require byte-equal comparison, not a lossy numeric
// coercion): two int64s compare exactly, so epoch-second values beyond
// 2^53 never falsely collapse the way a shared float64 intermediate would.
func valuesEqual(a, b interface{}) bool {
	an, aok := normalizeForCompare(a)
	bn, bok := normalizeForCompare(b)
	if aok != bok {
		return false
	}

	if ai, ok := an.(int64); ok {
		if bi, ok := bn.(int64); ok {
			return ai == bi
		}
		if bf, ok := bn.(float64); ok {
			return float64(ai) == bf
		}
		return false
	}
	if af, ok := an.(float64); ok {
		if bf, ok := bn.(float64); ok {
			return af == bf
		}
		if bi, ok := bn.(int64); ok {
			return af == float64(bi)
		}
		return false
	}
	return an == bn
}

// normalizeForCompare reduces a value to a comparable form: []byte and
// string compare as their string content, and int/int64 stay int64 rather
// than widening to float64, which would silently equate distinct large
// epoch-second values once they exceed 2^53. nil normalizes to (nil, true)
// so two nils compare equal but a nil never collapses into an empty string
// or zero.
func normalizeForCompare(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []byte:
		return string(t), true
	case string:
		return t, true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return t, true
	case bool:
		return t, true
	default:
		return v, true
	}
}
