// email.go validates recipient addresses the form layer collects. Validation
// is shape-only: a local part and a dotted domain with no whitespace. Anything
// stricter belongs to the mail system that ultimately delivers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// emailShape matches local@domain where neither side contains whitespace or a
// second @, and the domain contains at least one dot.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether a single address has the accepted shape.
func ValidEmail(addr string) bool {
	return emailShape.MatchString(addr)
}

// ValidateRecipients checks a required comma-separated recipient list. A blank
// list is invalid, and every comma-delimited segment must independently
// validate after trimming; a trailing comma therefore fails, because it
// produces an empty segment.
func ValidateRecipients(list string) error {
	if strings.TrimSpace(list) == "" {
		return fmt.Errorf("at least one recipient email address is required")
	}
	return validateSegments(list)
}

// ValidateOptionalRecipients checks an optional (CC) list: blank is fine,
// anything else follows the same per-segment rule as ValidateRecipients.
func ValidateOptionalRecipients(list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return validateSegments(list)
}

func validateSegments(list string) error {
	for _, segment := range strings.Split(list, ",") {
		trimmed := strings.TrimSpace(segment)
		if !ValidEmail(trimmed) {
			return fmt.Errorf("invalid email address %q in recipient list", trimmed)
		}
	}
	return nil
}
