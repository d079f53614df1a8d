package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across components
var (
	// ErrNotUpdated is returned when the published file is older than expected
	ErrNotUpdated = errors.New("disclosure file not updated")

	// ErrRateLimited is returned when a remote API signals too many requests
	ErrRateLimited = errors.New("rate limited")

	// ErrNoData is returned when a source has nothing for the request
	ErrNoData = errors.New("no data")
)

// SchemaError reports required fields missing from an input table.
// It is fatal for that table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("table %q: missing required fields: %s", e.Table, strings.Join(e.Missing, ", "))
}

// IsSchemaError reports whether err wraps a *SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
