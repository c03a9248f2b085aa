package vtab

import (
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/chronotab/partitioner/internal/catalog"
	"github.com/chronotab/partitioner/internal/dml"
	"github.com/chronotab/partitioner/internal/partition"
	"github.com/chronotab/partitioner/internal/perr"
	"github.com/chronotab/partitioner/pkg/types"
)

// VTable is one open virtual table instance, shared by every cursor and DML
// call the host issues against it on this connection (spec.md §5).
type VTable struct {
	module     *Module
	sqliteConn *sqlite3.SQLiteConn // satisfies catalog.Conn directly via its Exec/Query methods
	baseName   string
	interval   types.Interval
	schema     types.Schema

	manager    *partition.Manager
	dispatcher *dml.Dispatcher

	mu         sync.Mutex
	lastCursor *Cursor // most recently filtered cursor, used to resolve DML rowids (spec.md §4.8)
}

// Disconnect drops this connection's in-memory view of the virtual table.
// The shadow and partition tables are untouched (spec.md §3: DISCONNECT is
// not DESTROY).
func (vt *VTable) Disconnect() error {
	return nil
}

// Destroy drops every partition plus the three shadow tables, per spec.md
// §3 "Lifecycle: Drop virtual table: destroy every partition listed in
// lookup, then root/lookup/template."
func (vt *VTable) Destroy() error {
	return catalog.Destroy(vt.sqliteConn, vt.baseName)
}

// Open creates a new cursor bound to this virtual table's connection and
// schema (C7).
func (vt *VTable) Open() (sqlite3.VTabCursor, error) {
	return &Cursor{vt: vt}, nil
}

func (vt *VTable) setLastCursor(cur *Cursor) {
	vt.mu.Lock()
	vt.lastCursor = cur
	vt.mu.Unlock()
}

func (vt *VTable) clearLastCursor(cur *Cursor) {
	vt.mu.Lock()
	if vt.lastCursor == cur {
		vt.lastCursor = nil
	}
	vt.mu.Unlock()
}

// resolver returns the PartitionResolver backed by the most recently
// filtered cursor, or nil if none is live. spec.md §4.8: "since DML rowids
// come from the last cursor, the same decoder applies."
func (vt *VTable) resolver() dml.PartitionResolver {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	if vt.lastCursor == nil {
		return nil
	}
	return vt.lastCursor
}

// Update implements sqlite3.VTabUpdater, dispatching to C8 per SQLite's
// xUpdate argv convention: len(argv)==1 is a delete, argv[0]==nil is an
// insert, otherwise an update (spec.md §4.8).
func (vt *VTable) Update(argv []interface{}, rowidPtr *int64) error {
	switch {
	case len(argv) == 1:
		rowid, err := asRowid(argv[0])
		if err != nil {
			return err
		}
		return vt.dispatcher.Delete(vt.sqliteConn, vt.resolver(), rowid)

	case argv[0] == nil:
		newRowid, err := vt.dispatcher.Insert(vt.sqliteConn, argv[2:])
		if err != nil {
			return err
		}
		*rowidPtr = newRowid
		return nil

	default:
		oldRowid, err := asRowid(argv[0])
		if err != nil {
			return err
		}
		newRowid, err := vt.dispatcher.Update(vt.sqliteConn, vt.resolver(), oldRowid, argv[2:])
		if err != nil {
			return err
		}
		*rowidPtr = newRowid
		return nil
	}
}

func asRowid(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	default:
		return 0, perr.New(perr.KindPartitionMissing, "rowid argument has unexpected type %T", v)
	}
}
