// Package catalog owns the three shadow tables per virtual table (root,
// lookup, template), their DDL, and the CREATE/CONNECT lifecycle that
// materializes or rehydrates a VirtualTable's in-memory state (C4).
package catalog

import (
	"database/sql/driver"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

// State is the reconstructed in-memory picture of a virtual table, as read
// from its shadow tables (or as freshly created).
type State struct {
	BaseName string
	Interval types.Interval
	Schema   types.Schema
	Lookup   map[int64]string // bucket_start_epoch -> partition_name, in no particular order
}

// Create executes the CREATE lifecycle: generates and runs the three
// CREATE TABLE statements, then inserts the single root row (spec.md §4.4).
func Create(c Conn, baseName string, iv types.Interval, s types.Schema) (State, error) {
	if !iv.Valid() {
		return State{}, perr.New(perr.KindInvalidInterval, "cannot create %q: interval %s is invalid", baseName, iv)
	}

	stmts := []string{
		buildCreateRootSQL(baseName),
		buildCreateLookupSQL(baseName),
		buildCreateTemplateSQL(baseName, s),
	}
	for _, stmt := range stmts {
		if err := execDDL(c, stmt); err != nil {
			return State{}, perr.Wrap(perr.KindCatalogCorrupt, err, "create shadow tables for %q", baseName)
		}
	}

	// The root row persists only interval_seconds (spec.md §3/§6's literal
	// 4-column schema); canonicalize the declared interval to the same
	// Count/Unit form Connect will later derive from interval_seconds alone,
	// so the State returned here already equals what CONNECT reconstructs
	// (I4) instead of round-tripping the caller's literal unit token, which
	// spec.md's schema has no column to store.
	normalized := canonicalInterval(iv.Seconds())

	pcName := s.PartitionColumn().Name
	_, err := c.Exec(buildInsertRootSQL(baseName), []driver.Value{
		pcName, normalized.Seconds(), TemplateTableName(baseName), LookupTableName(baseName),
	})
	if err != nil {
		return State{}, perr.Wrap(perr.KindCatalogCorrupt, err, "insert root row for %q", baseName)
	}

	return State{BaseName: baseName, Interval: normalized, Schema: s, Lookup: map[int64]string{}}, nil
}

// Connect executes the CONNECT lifecycle: reads the root row, cross-checks
// it against the template's own column metadata, and loads every lookup row
// into the returned State (spec.md §4.4, invariant I4).
func Connect(c Conn, baseName string) (State, error) {
	var pcName string
	var intervalSeconds int64
	var templateName, lookupName string

	err := scanOneRow(c, buildSelectRootSQL(baseName), nil, func(vals []driver.Value) error {
		var ok bool
		if pcName, ok = asString(vals[0]); !ok {
			return perr.New(perr.KindCatalogCorrupt, "root table for %q: partition_column_name is not text", baseName)
		}
		seconds, ok := asInt64(vals[1])
		if !ok {
			return perr.New(perr.KindCatalogCorrupt, "root table for %q: interval_seconds is not an integer", baseName)
		}
		intervalSeconds = seconds
		if templateName, ok = asString(vals[2]); !ok {
			return perr.New(perr.KindCatalogCorrupt, "root table for %q: template_name is not text", baseName)
		}
		if lookupName, ok = asString(vals[3]); !ok {
			return perr.New(perr.KindCatalogCorrupt, "root table for %q: lookup_name is not text", baseName)
		}
		return nil
	})
	if err == io.EOF {
		return State{}, perr.New(perr.KindCatalogCorrupt, "root table for %q is missing its single row", baseName)
	}
	if err != nil {
		return State{}, perr.Wrap(perr.KindCatalogCorrupt, err, "read root table for %q", baseName)
	}
	if templateName != TemplateTableName(baseName) || lookupName != LookupTableName(baseName) {
		return State{}, perr.New(perr.KindCatalogCorrupt, "root table for %q references mismatched shadow table names", baseName)
	}

	iv := canonicalInterval(intervalSeconds)
	if !iv.Valid() {
		return State{}, perr.New(perr.KindCatalogCorrupt, "root table for %q has non-positive interval_seconds=%d", baseName, intervalSeconds)
	}

	s, err := readTemplateSchema(c, baseName, pcName)
	if err != nil {
		return State{}, err
	}

	lookup := map[int64]string{}
	err = forEachRow(c, buildSelectLookupAllSQL(baseName), nil, func(vals []driver.Value) error {
		bucket, ok := asInt64(vals[0])
		if !ok {
			return perr.New(perr.KindCatalogCorrupt, "lookup table for %q has non-integer bucket_start_epoch", baseName)
		}
		name, ok := asString(vals[1])
		if !ok {
			return perr.New(perr.KindCatalogCorrupt, "lookup table for %q has non-text partition_name", baseName)
		}
		lookup[bucket] = name
		return nil
	})
	if err != nil {
		return State{}, perr.Wrap(perr.KindCatalogCorrupt, err, "read lookup table for %q", baseName)
	}

	return State{BaseName: baseName, Interval: iv, Schema: s, Lookup: lookup}, nil
}

// readTemplateSchema rebuilds a types.Schema from PRAGMA table_info on the
// template table, cross-checking the partition column against the name
// recorded in the root table (spec.md §4.4 step 2).
func readTemplateSchema(c Conn, baseName, partitionColumnName string) (types.Schema, error) {
	var cols []types.ColumnDecl
	partitionIdx := -1

	err := forEachRow(c, buildTableInfoSQL(TemplateTableName(baseName)), nil, func(vals []driver.Value) error {
		// PRAGMA table_info columns: cid, name, type, notnull, dflt_value, pk
		name, ok := asString(vals[1])
		if !ok {
			return perr.New(perr.KindCatalogCorrupt, "template table_info for %q: unreadable column name", baseName)
		}
		declType, _ := asString(vals[2])

		role := types.RoleOrdinary
		if name == partitionColumnName {
			if partitionIdx != -1 {
				return perr.New(perr.KindCatalogCorrupt, "template table for %q has duplicate column %q", baseName, name)
			}
			role = types.RolePartitionColumn
			partitionIdx = len(cols)
		}
		cols = append(cols, types.ColumnDecl{Name: name, DeclaredType: declType, Role: role})
		return nil
	})
	if err != nil {
		return types.Schema{}, perr.Wrap(perr.KindCatalogCorrupt, err, "read template schema for %q", baseName)
	}
	if len(cols) == 0 {
		return types.Schema{}, perr.New(perr.KindCatalogCorrupt, "template table for %q has no columns", baseName)
	}
	if partitionIdx == -1 {
		return types.Schema{}, perr.New(perr.KindCatalogCorrupt, "template table for %q has no column named %q (root/template mismatch)", baseName, partitionColumnName)
	}

	return types.Schema{Columns: cols, PartitionColumnIndex: partitionIdx}, nil
}

// Destroy drops every partition listed in the lookup table, then the three
// shadow tables, inside one savepoint (spec.md §3 Lifecycle, §9 Drop
// semantics). The savepoint name carries a UUID suffix so nested DESTROY
// calls (or a host transaction already using a same-named savepoint) never
// collide.
func Destroy(c Conn, baseName string) error {
	sp := fmt.Sprintf("partitioner_destroy_%s", uuid.NewString())
	if err := execDDL(c, "SAVEPOINT "+quoteIdent(sp)); err != nil {
		return perr.Wrap(perr.KindCatalogCorrupt, err, "open destroy savepoint for %q", baseName)
	}

	rollback := func(cause error) error {
		_ = execDDL(c, "ROLLBACK TO "+quoteIdent(sp))
		_ = execDDL(c, "RELEASE "+quoteIdent(sp))
		return cause
	}

	var partitions []string
	err := forEachRow(c, buildSelectLookupAllSQL(baseName), nil, func(vals []driver.Value) error {
		name, ok := asString(vals[1])
		if !ok {
			return perr.New(perr.KindCatalogCorrupt, "lookup table for %q has non-text partition_name", baseName)
		}
		partitions = append(partitions, name)
		return nil
	})
	if err != nil {
		return rollback(perr.Wrap(perr.KindCatalogCorrupt, err, "enumerate partitions of %q for destroy", baseName))
	}

	for _, p := range partitions {
		if err := execDDL(c, buildDropTableSQL(p)); err != nil {
			return rollback(perr.Wrap(perr.KindPartitionCreateFailed, err, "drop partition %q of %q", p, baseName))
		}
	}

	for _, table := range []string{RootTableName(baseName), LookupTableName(baseName), TemplateTableName(baseName)} {
		if err := execDDL(c, buildDropTableSQL(table)); err != nil {
			return rollback(perr.Wrap(perr.KindCatalogCorrupt, err, "drop shadow table %q", table))
		}
	}

	if err := execDDL(c, "RELEASE "+quoteIdent(sp)); err != nil {
		return perr.Wrap(perr.KindCatalogCorrupt, err, "release destroy savepoint for %q", baseName)
	}
	return nil
}

// canonicalInterval derives a Count/Unit pair from interval_seconds alone,
// since spec.md §3/§6 gives the root table exactly one interval column: no
// unit token survives the round trip through storage. Create calls this on
// the declared interval before persisting or returning it, and Connect calls
// it on the stored value; because both sides apply the same rule, CONNECT
// always reconstructs a state equal to what CREATE returned (I4), even
// though the canonical Count/Unit may not match the caller's literal
// declaration (a declared "24 hour" canonicalizes to "1 day" both times).
func canonicalInterval(seconds int64) types.Interval {
	if seconds > 0 && seconds%86400 == 0 {
		return types.Interval{Count: uint32(seconds / 86400), Unit: types.IntervalDay}
	}
	if seconds > 0 && seconds%3600 == 0 {
		return types.Interval{Count: uint32(seconds / 3600), Unit: types.IntervalHour}
	}
	return types.Interval{}
}

func asString(v driver.Value) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return "", false
	}
}

func asInt64(v driver.Value) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}
