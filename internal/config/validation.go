package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"teamsync/pkg/logging"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

func invalid(field string, value any, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors collects the problems found by Validate.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "no validation errors"
	case 1:
		return ve[0].Error()
	}
	messages := make([]string, len(ve))
	for i, err := range ve {
		messages[i] = err.Error()
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// HasErrors reports whether any problem was found.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add records a problem with field. An optional value is kept for reporting.
func (ve *ValidationErrors) Add(field, message string, value ...any) {
	var v any
	if len(value) > 0 {
		v = value[0]
	}
	*ve = append(*ve, ValidationError{Field: field, Value: v, Message: message})
}

func (ve *ValidationErrors) addErr(field string, err error) {
	if err == nil {
		return
	}
	var verr ValidationError
	if errors.As(err, &verr) {
		*ve = append(*ve, verr)
		return
	}
	ve.Add(field, err.Error())
}

// ValidateRequired rejects blank values.
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return invalid(field, value, "is required for %s", entityType)
}

// ValidateOneOf rejects values outside allowed.
func ValidateOneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return invalid(field, value, "must be one of: %s", strings.Join(allowed, ", "))
}

// ValidateMaxLength rejects values longer than maxLength bytes.
func ValidateMaxLength(field, value string, maxLength int) error {
	if len(value) <= maxLength {
		return nil
	}
	return invalid(field, value, "must not exceed %d characters", maxLength)
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() ValidationErrors {
	var errs ValidationErrors

	errs.addErr("root", ValidateRequired("root", c.Root, "configuration"))

	if c.Debounce < 0 {
		errs.Add("debounce", "must not be negative", c.Debounce)
	}

	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		errs.Add("logLevel", "must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.LogFormat != "" {
		errs.addErr("logFormat", ValidateOneOf("logFormat", c.LogFormat, []string{"text", "json"}))
	}

	if _, err := c.Filter.Build(); err != nil {
		errs.addErr("filter", err)
	}
	for _, p := range append(append([]string(nil), c.Filter.Include...), c.Filter.Exclude...) {
		if strings.TrimSpace(p) == "" {
			errs.Add("filter", "patterns must not be empty")
			break
		}
	}

	errs.addErr("changeSets.name", ValidateRequired("changeSets.name", c.ChangeSets.Name, "change sets"))
	errs.addErr("changeSets.default", ValidateRequired("changeSets.default", c.ChangeSets.Default, "change sets"))
	errs.addErr("changeSets.default", ValidateMaxLength("changeSets.default", c.ChangeSets.Default, 100))

	if c.Metrics.Enabled {
		errs.addErr("metrics.address", ValidateRequired("metrics.address", c.Metrics.Address, "metrics"))
	}

	return errs
}

// FormatValidationError prefixes err with the entity it was found in.
func FormatValidationError(entityType, entityName string, err error) error {
	switch {
	case err == nil:
		return nil
	case entityName == "":
		return fmt.Errorf("validation failed for %s: %w", entityType, err)
	}
	return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
}
