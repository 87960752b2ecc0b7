// config.go validates the pieces of a new audit configuration before anything
// is written: the config identifier and the per-flag-type threshold values.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// configIDPattern is the accepted shape of a config identifier after
// normalization: uppercase alphanumeric, no separators.
var configIDPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// NormalizeConfigID trims and uppercases a raw config identifier and validates
// the result. The returned id is what gets stored; rejection aborts the whole
// submission before any state exists.
func NormalizeConfigID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" || !configIDPattern.MatchString(id) {
		return "", fmt.Errorf("config id must be alphanumeric (e.g. PST01, ENT01, NEXT01)")
	}
	return id, nil
}

// ValidateThreshold rejects negative threshold values. The form defaults every
// value to zero, so zero is always acceptable; there is no upper bound.
func ValidateThreshold(field string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s must be zero or greater, got %d", field, value)
	}
	return nil
}
