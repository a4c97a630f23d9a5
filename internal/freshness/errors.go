package freshness

import (
	"fmt"
	"strings"
)

// ValidationError rejects a run: required fields are null or hold the wrong type.
// Stale-blocked keys are listed apart from plain missing keys.
type ValidationError struct {
	Missing      []string `json:"missing"`
	StaleBlocked []string `json:"stale_blocked"`
	TypeMismatch []string `json:"type_mismatch"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing [%s]", strings.Join(e.Missing, ",")))
	}
	if len(e.StaleBlocked) > 0 {
		parts = append(parts, fmt.Sprintf("stale-blocked [%s]", strings.Join(e.StaleBlocked, ",")))
	}
	if len(e.TypeMismatch) > 0 {
		parts = append(parts, fmt.Sprintf("type mismatch [%s]", strings.Join(e.TypeMismatch, ",")))
	}
	return "input validation failed: " + strings.Join(parts, "; ")
}

// Keys returns every rejected key
func (e *ValidationError) Keys() []string {
	out := append([]string(nil), e.Missing...)
	out = append(out, e.StaleBlocked...)
	return append(out, e.TypeMismatch...)
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.StaleBlocked) == 0 && len(e.TypeMismatch) == 0
}
