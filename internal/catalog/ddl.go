package catalog

import (
	"fmt"
	"strings"

	"github.com/chronotab/partitioner/pkg/types"
)

// quoteIdent double-quotes an identifier, doubling any embedded double
// quotes, per spec.md §4.4: "identifier quoting must escape embedded
// double-quotes by doubling."
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// RootTableName, LookupTableName, and TemplateTableName name the three
// shadow tables owned by a virtual table (spec.md §3).
func RootTableName(base string) string     { return base + "_root" }
func LookupTableName(base string) string   { return base + "_lookup" }
func TemplateTableName(base string) string { return base + "_template" }

func buildCreateRootSQL(base string) string {
	return fmt.Sprintf(
		`CREATE TABLE %s (partition_column_name TEXT, interval_seconds INTEGER, template_name TEXT, lookup_name TEXT)`,
		quoteIdent(RootTableName(base)),
	)
}

func buildCreateLookupSQL(base string) string {
	return fmt.Sprintf(
		`CREATE TABLE %s (bucket_start_epoch INTEGER PRIMARY KEY, partition_name TEXT NOT NULL)`,
		quoteIdent(LookupTableName(base)),
	)
}

// buildColumnListSQL renders the column list shared by the template table
// and every partition table: identical names, with the partition column's
// declared type projected to TEXT.
func buildColumnListSQL(s types.Schema) string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = fmt.Sprintf("%s %s", quoteIdent(c.Name), s.VirtualDeclType(i))
	}
	return strings.Join(parts, ", ")
}

func buildCreateTemplateSQL(base string, s types.Schema) string {
	return fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(TemplateTableName(base)), buildColumnListSQL(s))
}

// buildCreatePartitionSQL creates a physical partition table with the same
// columns as the template.
func buildCreatePartitionSQL(name string, s types.Schema) string {
	return fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(name), buildColumnListSQL(s))
}

func buildDropTableSQL(name string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name))
}

func buildInsertRootSQL(base string) string {
	return fmt.Sprintf(`INSERT INTO %s (partition_column_name, interval_seconds, template_name, lookup_name) VALUES (?, ?, ?, ?)`,
		quoteIdent(RootTableName(base)))
}

func buildSelectRootSQL(base string) string {
	return fmt.Sprintf(`SELECT partition_column_name, interval_seconds, template_name, lookup_name FROM %s`,
		quoteIdent(RootTableName(base)))
}

func buildSelectLookupAllSQL(base string) string {
	return fmt.Sprintf(`SELECT bucket_start_epoch, partition_name FROM %s ORDER BY bucket_start_epoch`,
		quoteIdent(LookupTableName(base)))
}

func buildInsertLookupSQL(base string) string {
	return fmt.Sprintf(`INSERT INTO %s (bucket_start_epoch, partition_name) VALUES (?, ?)`, quoteIdent(LookupTableName(base)))
}

// buildTableInfoSQL uses PRAGMA table_info to read back a table's column
// list, used at CONNECT time to rebuild the schema from the template
// (spec.md §4.4).
func buildTableInfoSQL(table string) string {
	return fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table))
}

// buildCreateIndexSQL rewrites a template index definition onto a
// partition. name is the new (already bucket-suffixed) index name; table is
// the partition table; cols is the column list copied from the template
// index.
func buildCreateIndexSQL(name, table string, cols []string, unique bool) string {
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = quoteIdent(c)
	}
	uniq := ""
	if unique {
		uniq = "UNIQUE "
	}
	return fmt.Sprintf(`CREATE %sINDEX %s ON %s (%s)`, uniq, quoteIdent(name), quoteIdent(table), strings.Join(quotedCols, ", "))
}

// RewriteIndexName maps a template index name onto its partition-scoped
// equivalent, per spec.md §4.5: replace "_template" with "_{bucket}", or
// append "_{bucket}" if the substring is absent.
func RewriteIndexName(templateIndexName string, bucket int64) string {
	suffix := fmt.Sprintf("_%d", bucket)
	if strings.Contains(templateIndexName, "_template") {
		return strings.Replace(templateIndexName, "_template", suffix, 1)
	}
	return templateIndexName + suffix
}
