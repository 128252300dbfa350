package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// DBTX is the subset of [sql.DB] and [sql.Tx] the repositories need, so the
// same repository can run standalone or inside an ingestion transaction.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// placeholders returns a comma-joined "?" list for an IN clause of n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// idArgs widens a string id slice for use as query arguments.
func idArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// encodeJSON serializes a value for storage in a TEXT column.
func encodeJSON(v any) (string, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(data), nil
}

// decodeJSON deserializes a TEXT column into target, treating the empty
// string as an empty value.
func decodeJSON(data string, target any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), target); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
