package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ConfigurationError describes a problem with teamsync.yaml.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`
	Field       string   `json:"field,omitempty"` // set for validation errors
	ErrorType   string   `json:"errorType"`       // io, parse or validation
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// NewConfigurationError creates a ConfigurationError for the file at filePath.
func NewConfigurationError(filePath, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		ErrorType: errorType,
		Message:   message,
	}
}

// FileName returns the base name of the offending file.
func (ce ConfigurationError) FileName() string {
	return filepath.Base(ce.FilePath)
}

func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FileName(), ce.Message)
}

// DetailedError returns a multi-line description including the file path,
// the field and any suggestions.
func (ce ConfigurationError) DetailedError() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration error in %s\n", ce.FileName())
	fmt.Fprintf(&b, "  File: %s\n", ce.FilePath)
	fmt.Fprintf(&b, "  Type: %s\n", ce.ErrorType)
	if ce.Field != "" {
		fmt.Fprintf(&b, "  Field: %s\n", ce.Field)
	}
	fmt.Fprintf(&b, "  Error: %s", ce.Message)
	if len(ce.Suggestions) > 0 {
		b.WriteString("\n  Suggestions:")
		for _, s := range ce.Suggestions {
			fmt.Fprintf(&b, "\n    - %s", s)
		}
	}
	return b.String()
}

// ConfigurationErrorCollection holds every validation problem of one file.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// NewConfigurationErrorCollection creates an empty collection.
func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{Errors: []ConfigurationError{}}
}

func (cec ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors reports whether the collection holds any error.
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors.
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add appends err.
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// GetDetailedReport returns the detailed form of every error.
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}
	parts := make([]string, 0, len(cec.Errors)+1)
	parts = append(parts, fmt.Sprintf("%d configuration errors:", len(cec.Errors)))
	for _, err := range cec.Errors {
		parts = append(parts, err.DetailedError())
	}
	return strings.Join(parts, "\n\n")
}

// DetailedReport returns the detailed form of the configuration error
// wrapped in err, if any.
func DetailedReport(err error) (string, bool) {
	var collection ConfigurationErrorCollection
	if errors.As(err, &collection) {
		return collection.GetDetailedReport(), true
	}
	var cfgErr ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.DetailedError(), true
	}
	return "", false
}
