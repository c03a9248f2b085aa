// Command partitionerdemo loads the partitioner virtual-table module into a
// database/sql connection and drives the end-to-end scenario from spec.md
// §8 against it: create, insert across buckets, a pruned range select, an
// in-place update, and a delete.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/chronotab/partitioner/internal/config"
	"github.com/chronotab/partitioner/internal/vtab"
)

const driverName = "sqlite3_partitioner"

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.Parse()

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	printBanner(cfg)

	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(c *sqlite3.SQLiteConn) error {
			return c.CreateModule("partitioner", &vtab.Module{ParseTimestamp: parseTimestamp})
		},
	})

	db, err := sql.Open(driverName, cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := runScenario(db, cfg); err != nil {
		log.Fatalf("scenario failed: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.DefaultConfig()
		config.LoadFromEnv(cfg)
		return cfg, nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

func printBanner(cfg *config.Config) {
	log.Printf("partitionerdemo starting")
	log.Printf("  db_path:   %s", cfg.DBPath)
	log.Printf("  table:     %s", cfg.TableName)
	log.Printf("  interval:  %s", cfg.Interval)
}

func runScenario(db *sql.DB, cfg *config.Config) error {
	logf := func(format string, args ...interface{}) {
		if cfg.Verbose {
			log.Printf(format, args...)
		}
	}

	ddl := fmt.Sprintf(
		`CREATE VIRTUAL TABLE %s USING partitioner(%s, col1 timestamp partition_column, col2 varchar)`,
		cfg.TableName, cfg.Interval,
	)
	logf("exec: %s", ddl)
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create virtual table: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (col1, col2) VALUES (?, ?)`, cfg.TableName)
	rows := [][2]string{
		{"2023-01-01 01:30:00", "A"},
		{"2023-01-01 01:45:00", "B"},
		{"2023-01-01 02:10:00", "C"},
	}
	for _, r := range rows {
		logf("exec: %s [%s %s]", insert, r[0], r[1])
		if _, err := db.Exec(insert, r[0], r[1]); err != nil {
			return fmt.Errorf("insert %v: %w", r, err)
		}
	}

	query := fmt.Sprintf(`SELECT col1, col2 FROM %s WHERE col1 >= ?`, cfg.TableName)
	logf("query: %s [2023-01-01 02:00:00]", query)
	if err := printRows(db, query, "2023-01-01 02:00:00"); err != nil {
		return fmt.Errorf("range select: %w", err)
	}

	update := fmt.Sprintf(`UPDATE %s SET col2 = ? WHERE col1 = ? AND col2 = ?`, cfg.TableName)
	logf("exec: %s", update)
	if _, err := db.Exec(update, "A2", "2023-01-01 01:30:00", "A"); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	del := fmt.Sprintf(`DELETE FROM %s WHERE col1 = ? AND col2 = ?`, cfg.TableName)
	logf("exec: %s", del)
	if _, err := db.Exec(del, "2023-01-01 02:10:00", "C"); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	logf("final state:")
	return printRows(db, fmt.Sprintf(`SELECT col1, col2 FROM %s`, cfg.TableName))
}

func printRows(db *sql.DB, query string, args ...interface{}) error {
	rows, err := db.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col1, col2 string
		if err := rows.Scan(&col1, &col2); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "  %s %s\n", col1, col2)
	}
	return rows.Err()
}

// parseTimestamp is the demo host's textual datetime parser, wired into
// vtab.Module.ParseTimestamp because the parser itself is explicitly out of
// scope for this module (spec.md §1). It covers a subset of the formats
// listed in spec.md §6.
func parseTimestamp(text string) (int64, error) {
	text = strings.TrimSpace(text)

	if epoch, err := strconv.ParseInt(text, 10, 64); err == nil {
		return epoch, nil
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		time.RFC3339,
		"20060102150405",
		"20060102",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", text)
}
