// Package vtab glues C1-C8 to github.com/mattn/go-sqlite3's Module, VTab,
// VTabCursor and VTabUpdater interfaces. It is the only package that
// imports go-sqlite3's vtab types directly; everything else in this module
// works against the narrower catalog.Conn / driver.Value surface so it can
// be exercised without a live SQLite connection.
package vtab

import (
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/chronotab/partitioner/internal/bucketize"
	"github.com/chronotab/partitioner/internal/catalog"
	"github.com/chronotab/partitioner/internal/dml"
	"github.com/chronotab/partitioner/internal/partition"
	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/internal/schema"
	"github.com/chronotab/partitioner/pkg/types"
)

// Module implements sqlite3.Module for "CREATE VIRTUAL TABLE ... USING
// partitioner(...)" (spec.md §6). ParseTimestamp is injected because the
// textual datetime parser is explicitly out of scope for this module
// (spec.md §1); a demo host wires in its own.
type Module struct {
	ParseTimestamp schema.TimestampParser
}

// DestroyModule implements sqlite3.Module; there is no module-level state to
// release when the module is unregistered.
func (m *Module) DestroyModule() {}

// Create handles the DDL-time path: parses "<n> <hour|day>" and the column
// list, materializes the three shadow tables, and declares the virtual
// schema to the host (spec.md §4.4 "On CREATE VIRTUAL TABLE").
func (m *Module) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	baseName, iv, colArgs, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	colSchema, err := schema.ParseColumns(colArgs)
	if err != nil {
		return nil, err
	}

	st, err := catalog.Create(c, baseName, iv, colSchema)
	if err != nil {
		return nil, err
	}

	if err := c.DeclareVTab(catalog.BuildDeclareVTabSQL(st.Schema)); err != nil {
		return nil, perr.Wrap(perr.KindCatalogCorrupt, err, "declare virtual schema for %q", baseName)
	}

	return newVTable(m, st, c), nil
}

// Connect handles the reopen path: rebuilds schema/interval/partition map
// purely from the shadow tables, per spec.md §4.4 "On CONNECT" and
// invariant I4.
func (m *Module) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	baseName, _, _, err := parseArgs(args)
	if err != nil {
		return nil, err
	}

	st, err := catalog.Connect(c, baseName)
	if err != nil {
		return nil, err
	}

	if err := c.DeclareVTab(catalog.BuildDeclareVTabSQL(st.Schema)); err != nil {
		return nil, perr.Wrap(perr.KindCatalogCorrupt, err, "declare virtual schema for %q", baseName)
	}

	return newVTable(m, st, c), nil
}

// parseArgs splits the raw module-invocation arguments go-sqlite3 hands to
// Create/Connect: args[0] is the module name, args[1] the database name,
// args[2] the table name, and args[3:] the comma-separated clauses inside
// USING partitioner(...) -- the first of which is the interval, the rest
// column declarations (spec.md §6 DDL surface).
func parseArgs(args []string) (baseName string, iv types.Interval, colArgs []string, err error) {
	if len(args) < 4 {
		return "", types.Interval{}, nil, perr.New(perr.KindInvalidInterval, "USING partitioner(...) requires an interval and at least one column")
	}
	baseName = args[2]

	intervalArg := strings.TrimSpace(args[3])
	iv, err = bucketize.ParseInterval(intervalArg)
	if err != nil {
		return "", types.Interval{}, nil, err
	}

	colArgs = make([]string, len(args)-4)
	for i, a := range args[4:] {
		colArgs[i] = strings.TrimSpace(a)
	}
	return baseName, iv, colArgs, nil
}

// newVTable assembles the C4-C8 collaborators for one virtual table
// instance, shared by every cursor and DML call the host issues on it
// (spec.md §5: the partition map is shared per connection).
func newVTable(m *Module, st catalog.State, conn *sqlite3.SQLiteConn) *VTable {
	mgr := partition.NewManager(st)
	return &VTable{
		module:     m,
		sqliteConn: conn,
		baseName:   st.BaseName,
		interval:   st.Interval,
		schema:     st.Schema,
		manager:    mgr,
		dispatcher: &dml.Dispatcher{
			Schema:         st.Schema,
			Interval:       st.Interval,
			Manager:        mgr,
			ParseTimestamp: m.ParseTimestamp,
		},
	}
}
