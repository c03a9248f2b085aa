package types

// ColumnRole distinguishes the single partition column from ordinary columns.
type ColumnRole string

const (
	RoleOrdinary        ColumnRole = "ordinary"
	RolePartitionColumn ColumnRole = "partition_column"
)

// ColumnDecl is one column of a virtual table's declared schema.
type ColumnDecl struct {
	Name         string
	DeclaredType string
	Role         ColumnRole
}

// IsPartitionColumn reports whether this column carries the partition role.
func (c ColumnDecl) IsPartitionColumn() bool {
	return c.Role == RolePartitionColumn
}

// Schema is the ordered column list of a virtual table, insertion order
// preserved exactly as the host presented it in CREATE VIRTUAL TABLE.
type Schema struct {
	Columns              []ColumnDecl
	PartitionColumnIndex int
}

// PartitionColumn returns the schema's designated partition column.
func (s Schema) PartitionColumn() ColumnDecl {
	return s.Columns[s.PartitionColumnIndex]
}

// ColumnNames returns the column names in declared order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// VirtualDeclType returns the type the host should see for column i: every
// column keeps its declared type except the partition column, which is
// always surfaced as TEXT (spec.md §3: "physically it is stored as text").
func (s Schema) VirtualDeclType(i int) string {
	if i == s.PartitionColumnIndex {
		return "TEXT"
	}
	return s.Columns[i].DeclaredType
}
