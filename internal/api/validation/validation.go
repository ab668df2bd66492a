// Package validation checks API request bodies before they reach the domain layer.
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldErrors accumulates FieldErrors for one request.
type fieldErrors []FieldError

func (e *fieldErrors) add(field, format string, args ...any) {
	*e = append(*e, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// text checks a free-text field against an optional requirement and a rune limit.
func (e *fieldErrors) text(field, value string, required bool, maxLen int) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			e.add(field, "%s is required", field)
		}
		return
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		e.add(field, "%s must be at most %d characters", field, maxLen)
	}
}

// optionalText checks a PATCH field: nil is skipped, a present value must not be blank.
func (e *fieldErrors) optionalText(field string, value *string, required bool, maxLen int) {
	if value == nil {
		return
	}
	if required && strings.TrimSpace(*value) == "" {
		e.add(field, "%s must not be empty", field)
		return
	}
	e.text(field, *value, false, maxLen)
}

// oneOf checks that value is one of allowed.
func (e *fieldErrors) oneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		e.add(field, "%s must be one of: %s", field, strings.Join(allowed, ", "))
	}
}

// link checks an optional absolute http(s) URL.
func (e *fieldErrors) link(field, value string) {
	if value == "" {
		return
	}
	if len(value) > 2048 {
		e.add(field, "%s must be at most 2048 characters", field)
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		e.add(field, "%s must be an absolute http or https URL", field)
	}
}

// email checks an email address.
func (e *fieldErrors) email(field, value string, required bool) {
	if value == "" {
		if required {
			e.add(field, "%s is required", field)
		}
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || len(value) > 254 {
		e.add(field, "%s must be a valid email address", field)
	}
}

// list checks a list of short tags.
func (e *fieldErrors) list(field string, values []string, required bool, maxItems, maxLen int) {
	if len(values) == 0 {
		if required {
			e.add(field, "%s must contain at least one entry", field)
		}
		return
	}
	if len(values) > maxItems {
		e.add(field, "%s must contain at most %d entries", field, maxItems)
		return
	}
	for _, v := range values {
		if strings.TrimSpace(v) == "" || utf8.RuneCountInString(v) > maxLen {
			e.add(field, "%s entries must be 1-%d characters", field, maxLen)
			return
		}
	}
}
