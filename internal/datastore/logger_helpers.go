// Package datastore provides helper functions for logging and metrics
package datastore

import (
	"regexp"
	"strings"
)

// sqlUnknown is used when SQL operation or table cannot be determined.
const sqlUnknown = "unknown"

// SQL operation regex patterns
var (
	selectPattern = regexp.MustCompile(`(?i)^\s*SELECT\s+.*?\s+FROM\s+['"\x60]?(\w+)['"\x60]?`)
	insertPattern = regexp.MustCompile(`(?i)^\s*INSERT\s+INTO\s+['"\x60]?(\w+)['"\x60]?`)
	updatePattern = regexp.MustCompile(`(?i)^\s*UPDATE\s+['"\x60]?(\w+)['"\x60]?`)
	deletePattern = regexp.MustCompile(`(?i)^\s*DELETE\s+FROM\s+['"\x60]?(\w+)['"\x60]?`)
	createPattern = regexp.MustCompile(`(?i)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?['"\x60]?(\w+)['"\x60]?`)
	dropPattern   = regexp.MustCompile(`(?i)^\s*DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?['"\x60]?(\w+)['"\x60]?`)
	alterPattern  = regexp.MustCompile(`(?i)^\s*ALTER\s+TABLE\s+['"\x60]?(\w+)['"\x60]?`)
)

// parseSQLOperation extracts the operation type and table name from SQL query
func parseSQLOperation(sql string) (operation, table string) {
	sql = strings.TrimSpace(sql)

	// Try to match against known patterns
	if matches := selectPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "select", matches[1]
	}
	if matches := insertPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "insert", matches[1]
	}
	if matches := updatePattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "update", matches[1]
	}
	if matches := deletePattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "delete", matches[1]
	}
	if matches := createPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "create", matches[1]
	}
	if matches := dropPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "drop", matches[1]
	}
	if matches := alterPattern.FindStringSubmatch(sql); len(matches) > 1 {
		return "alter", matches[1]
	}

	// Default for unrecognized patterns
	return sqlUnknown, sqlUnknown
}

// categorizeError categorizes database errors for metrics
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}

	// First, try to categorize based on known error types
	// Check for PostgreSQL-specific errors using type assertions
	// Note: pgconn.PgError would be used if this was a PostgreSQL setup
	// For now, keeping the interface open for future database-specific error handling

	// Convert to string for pattern matching
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "duplicate key"):
		return "constraint_violation"
	case strings.Contains(errStr, "deadlock"):
		return "deadlock"
	case strings.Contains(errStr, "foreign key"):
		return "foreign_key_violation"
	case strings.Contains(errStr, "not null"):
		return "null_violation"
	case strings.Contains(errStr, "database is locked"):
		return "database_locked"
	case strings.Contains(errStr, "connection"):
		return "connection_error"
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "syntax"):
		return "syntax_error"
	case strings.Contains(errStr, "permission") || strings.Contains(errStr, "denied"):
		return "permission_denied"
	case strings.Contains(errStr, "disk full") || strings.Contains(errStr, "no space"):
		return "disk_full"
	default:
		return "other"
	}
}

// isConstraintViolation checks if an error is a unique constraint violation
// in a database-agnostic way using the categorizeError helper
func isConstraintViolation(err error) bool {
	return categorizeError(err) == "constraint_violation"
}
