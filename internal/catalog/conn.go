package catalog

import (
	"database/sql/driver"
	"io"
)

// Conn is the subset of *sqlite3.SQLiteConn the catalog needs: raw DDL/DML
// execution and row iteration at the driver level. Kept as an interface,
// grounded on the teacher's habit of programming against a narrow
// repository interface (manifest.Catalog) rather than a concrete type, so
// this package can be exercised in tests without cgo by way of a fake, and
// in production by unwrapping a *sql.Conn with (*sql.Conn).Raw.
type Conn interface {
	Exec(query string, args []driver.Value) (driver.Result, error)
	Query(query string, args []driver.Value) (driver.Rows, error)
}

// execDDL runs a statement that returns no rows.
func execDDL(c Conn, query string) error {
	_, err := c.Exec(query, nil)
	return err
}

// forEachRow runs query and invokes fn once per result row with the raw
// driver values, in column order.
func forEachRow(c Conn, query string, args []driver.Value, fn func(vals []driver.Value) error) error {
	rows, err := c.Query(query, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols := rows.Columns()
	dest := make([]driver.Value, len(cols))
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

// scanOneRow runs query expecting exactly one row and invokes fn with its
// values. Returns io.EOF if the query produced no rows.
func scanOneRow(c Conn, query string, args []driver.Value, fn func(vals []driver.Value) error) error {
	found := false
	err := forEachRow(c, query, args, func(vals []driver.Value) error {
		found = true
		return fn(vals)
	})
	if err != nil {
		return err
	}
	if !found {
		return io.EOF
	}
	return nil
}
