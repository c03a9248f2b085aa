package catalog

import (
	"database/sql/driver"

	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

// The functions in this file are the narrow surface internal/partition
// needs to create physical partition tables and replicate template
// indexes onto them, without pulling the rest of this package's DDL
// builders (which stay unexported to keep them from being spliced together
// incorrectly outside this package).

// QuoteIdent double-quotes an identifier for splicing into generated DDL.
func QuoteIdent(name string) string { return quoteIdent(name) }

// BuildCreatePartitionSQL renders the CREATE TABLE statement for a new
// partition table sharing the template's column list.
func BuildCreatePartitionSQL(name string, s types.Schema) string {
	return buildCreatePartitionSQL(name, s)
}

// BuildInsertLookupSQL renders the INSERT statement that registers a new
// partition in the lookup shadow table.
func BuildInsertLookupSQL(base string) string { return buildInsertLookupSQL(base) }

// BuildCreateIndexSQL renders a CREATE INDEX statement for a partition,
// given the already bucket-rewritten index name.
func BuildCreateIndexSQL(name, table string, cols []string, unique bool) string {
	return buildCreateIndexSQL(name, table, cols, unique)
}

// BuildDeclareVTabSQL renders the CREATE TABLE statement the vtab module
// hands to sqlite3.SQLiteConn.DeclareVTab so the host learns the virtual
// table's column list (partition column projected to TEXT, spec.md §4.4
// step 3).
func BuildDeclareVTabSQL(s types.Schema) string {
	return "CREATE TABLE x(" + buildColumnListSQL(s) + ")"
}

// TemplateIndex describes one secondary index declared on the template
// table, as read back via PRAGMA index_list / PRAGMA index_info.
type TemplateIndex struct {
	Name    string
	Columns []string
	Unique  bool
}

// ReadTemplateIndexes enumerates every index on the template table so its
// owner (the partition manager, C5) can replicate them onto a new
// partition (spec.md §4.5 step 4).
func ReadTemplateIndexes(c Conn, templateTable string) ([]TemplateIndex, error) {
	type rawIndex struct {
		name   string
		unique bool
	}
	var raw []rawIndex

	err := forEachRow(c, "PRAGMA index_list("+quoteIdent(templateTable)+")", nil, func(vals []driver.Value) error {
		// index_list columns: seq, name, unique, origin, partial
		name, ok := asString(vals[1])
		if !ok {
			return perr.New(perr.KindCatalogCorrupt, "index_list(%s): unreadable index name", templateTable)
		}
		unique, _ := asInt64(vals[2])
		origin, _ := asString(vals[3])
		if origin == "pk" {
			// Skip the implicit rowid/PK index; nothing to replicate.
			return nil
		}
		raw = append(raw, rawIndex{name: name, unique: unique != 0})
		return nil
	})
	if err != nil {
		return nil, perr.Wrap(perr.KindCatalogCorrupt, err, "list indexes on %s", templateTable)
	}

	out := make([]TemplateIndex, 0, len(raw))
	for _, ri := range raw {
		var cols []string
		err := forEachRow(c, "PRAGMA index_info("+quoteIdent(ri.name)+")", nil, func(vals []driver.Value) error {
			// index_info columns: seqno, cid, name
			colName, ok := asString(vals[2])
			if !ok {
				return perr.New(perr.KindCatalogCorrupt, "index_info(%s): unreadable column name", ri.name)
			}
			cols = append(cols, colName)
			return nil
		})
		if err != nil {
			return nil, perr.Wrap(perr.KindCatalogCorrupt, err, "read columns of index %s", ri.name)
		}
		out = append(out, TemplateIndex{Name: ri.name, Columns: cols, Unique: ri.unique})
	}
	return out, nil
}
