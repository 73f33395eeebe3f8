package shared

import (
	"net/http"
	"strings"
	"time"

	"clima/internal/transport/http/api"
)

// ValidationIssue names one rejected field and why it was rejected.
type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator accumulates payload issues so a handler reports them all in one
// response instead of failing on the first.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	v.issues = append(v.issues, ValidationIssue{Field: field, Reason: reason})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Enum rejects values outside the allowed set. Empty values are left to
// Required so the caller decides whether the field is mandatory.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	for _, want := range allowed {
		if value == want {
			return
		}
	}
	v.Add(field, reason)
}

// Date parses the value and records an issue when it is missing or malformed.
func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a date in YYYY-MM-DD form")
		return time.Time{}, false
	}
	return parsed, true
}

// DateOrder flags both fields when the window is inverted.
func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() || !end.Before(start) {
		return
	}
	v.Add(startField, "must not be after "+endField)
	v.Add(endField, "must not be before "+startField)
}

// Reject writes the standard validation failure and reports whether the
// handler should stop.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if len(v.issues) == 0 {
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": v.issues}, requestID)
	return true
}
