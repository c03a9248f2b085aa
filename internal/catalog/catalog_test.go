package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chronotab/partitioner/pkg/types"
)

// openTestConn opens an in-memory SQLite database and unwraps the driver
// connection, exercising the same (*sql.Conn).Raw path a real host uses to
// hand this package a Conn (see conn.go).
func openTestConn(t *testing.T) Conn {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite3: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("db.Conn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	var raw Conn
	err = conn.Raw(func(driverConn interface{}) error {
		c, ok := driverConn.(Conn)
		if !ok {
			t.Fatalf("driver connection does not implement catalog.Conn: %T", driverConn)
		}
		raw = c
		return nil
	})
	if err != nil {
		t.Fatalf("conn.Raw: %v", err)
	}
	return raw
}

func testSchema(t *testing.T) types.Schema {
	t.Helper()
	return types.Schema{
		Columns: []types.ColumnDecl{
			{Name: "ts", DeclaredType: "timestamp", Role: types.RolePartitionColumn},
			{Name: "payload", DeclaredType: "varchar", Role: types.RoleOrdinary},
		},
		PartitionColumnIndex: 0,
	}
}

func TestCreate_InsertsRootRow(t *testing.T) {
	c := openTestConn(t)
	iv := types.Interval{Count: 1, Unit: types.IntervalHour}

	st, err := Create(c, "events", iv, testSchema(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.BaseName != "events" || st.Interval != iv {
		t.Fatalf("State = %+v", st)
	}
	if len(st.Lookup) != 0 {
		t.Fatalf("fresh Create should have an empty lookup, got %+v", st.Lookup)
	}
	rootRows := 0
	if err := forEachRow(c, buildSelectRootSQL("events"), nil, func([]driver.Value) error {
		rootRows++
		return nil
	}); err != nil || rootRows != 1 {
		t.Fatalf("root table rows = %d (err %v), want exactly 1", rootRows, err)
	}
}

func TestCreate_RejectsInvalidInterval(t *testing.T) {
	c := openTestConn(t)
	_, err := Create(c, "events", types.Interval{}, testSchema(t))
	if err == nil {
		t.Fatalf("expected an error for an invalid interval")
	}
}

// TestConnect_RoundTripsCreate validates spec.md §8 P3: CONNECT after
// CREATE reconstructs an equivalent State, including any partitions
// registered in the lookup table in between.
func TestConnect_RoundTripsCreate(t *testing.T) {
	c := openTestConn(t)
	iv := types.Interval{Count: 1, Unit: types.IntervalHour}
	s := testSchema(t)

	created, err := Create(c, "events", iv, s)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	partitionName := "events_3600"
	if _, err := c.Exec(BuildCreatePartitionSQL(partitionName, s), nil); err != nil {
		t.Fatalf("create partition table: %v", err)
	}
	if _, err := c.Exec(BuildInsertLookupSQL("events"), []driver.Value{int64(3600), partitionName}); err != nil {
		t.Fatalf("register partition in lookup: %v", err)
	}

	got, err := Connect(c, "events")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got.BaseName != created.BaseName || got.Interval != created.Interval {
		t.Fatalf("Connect round trip = %+v, want base/interval matching %+v", got, created)
	}
	if got.Schema.PartitionColumnIndex != s.PartitionColumnIndex {
		t.Fatalf("Connect round trip schema = %+v", got.Schema)
	}
	if len(got.Schema.Columns) != len(s.Columns) {
		t.Fatalf("Connect round trip columns = %+v, want %d columns", got.Schema.Columns, len(s.Columns))
	}
	if got.Lookup[3600] != partitionName {
		t.Fatalf("Connect round trip lookup = %+v, want bucket 3600 -> %s", got.Lookup, partitionName)
	}
}

// TestConnect_CanonicalizesIntervalConsistentlyWithCreate validates I4 for
// an interval whose declared unit does not survive the root table's single
// interval_seconds column: Create must canonicalize and return the same
// Count/Unit that Connect later derives from the stored seconds, so the two
// states are equal even though neither preserves the caller's literal "24
// hour" token.
func TestConnect_CanonicalizesIntervalConsistentlyWithCreate(t *testing.T) {
	c := openTestConn(t)
	declared := types.Interval{Count: 24, Unit: types.IntervalHour}
	want := types.Interval{Count: 1, Unit: types.IntervalDay}
	s := testSchema(t)

	created, err := Create(c, "events", declared, s)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Interval != want {
		t.Fatalf("Create canonicalized interval = %+v, want %+v", created.Interval, want)
	}

	got, err := Connect(c, "events")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got.Interval != created.Interval {
		t.Fatalf("Connect round trip interval = %+v, want %+v (I4: must equal what Create returned)", got.Interval, created.Interval)
	}
}

func TestDestroy_DropsShadowAndPartitionTables(t *testing.T) {
	c := openTestConn(t)
	iv := types.Interval{Count: 1, Unit: types.IntervalHour}
	s := testSchema(t)

	if _, err := Create(c, "events", iv, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	partitionName := "events_3600"
	if _, err := c.Exec(BuildCreatePartitionSQL(partitionName, s), nil); err != nil {
		t.Fatalf("create partition table: %v", err)
	}
	if _, err := c.Exec(BuildInsertLookupSQL("events"), []driver.Value{int64(3600), partitionName}); err != nil {
		t.Fatalf("register partition in lookup: %v", err)
	}

	if err := Destroy(c, "events"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if _, err := c.Query(buildSelectRootSQL("events"), nil); err == nil {
		t.Fatalf("root table should no longer exist after Destroy")
	}
	if _, err := c.Query("SELECT * FROM "+quoteIdent(partitionName), nil); err == nil {
		t.Fatalf("partition table should no longer exist after Destroy")
	}
}

func TestReadTemplateIndexes(t *testing.T) {
	c := openTestConn(t)
	s := testSchema(t)
	if _, err := Create(c, "events", types.Interval{Count: 1, Unit: types.IntervalHour}, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	template := TemplateTableName("events")
	if _, err := c.Exec("CREATE INDEX "+quoteIdent("idx_payload")+" ON "+quoteIdent(template)+" ("+quoteIdent("payload")+")", nil); err != nil {
		t.Fatalf("create index: %v", err)
	}

	indexes, err := ReadTemplateIndexes(c, template)
	if err != nil {
		t.Fatalf("ReadTemplateIndexes: %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("indexes = %+v, want 1", indexes)
	}
	if indexes[0].Name != "idx_payload" || len(indexes[0].Columns) != 1 || indexes[0].Columns[0] != "payload" {
		t.Fatalf("indexes[0] = %+v", indexes[0])
	}
}

func TestRewriteIndexName(t *testing.T) {
	if got := RewriteIndexName("events_idx_template", 3600); got != "events_idx_3600" {
		t.Fatalf("RewriteIndexName = %q, want events_idx_3600", got)
	}
	if got := RewriteIndexName("custom_name", 3600); got != "custom_name_3600" {
		t.Fatalf("RewriteIndexName without _template = %q, want custom_name_3600", got)
	}
}
