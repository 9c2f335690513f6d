// Package errutil holds helpers for presenting errors to users and logs.
package errutil

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// absolutePathPattern matches absolute unix paths with at least one
	// directory component.
	absolutePathPattern = regexp.MustCompile(`(?:^|[\s"'=(:])(/[^\s"':,;)]+)`)

	// credentialPattern matches key=value or key: value pairs whose key
	// looks like a credential.
	credentialPattern = regexp.MustCompile(`(?i)\b(password|passwd|secret|token|apikey|api_key|access_key|private_key)(\s*[=:]\s*)([^\s,;]+)`)

	// bearerPattern matches bearer tokens.
	bearerPattern = regexp.MustCompile(`(?i)\b(bearer)\s+([A-Za-z0-9\-._~+/]+=*)`)
)

const redacted = "[REDACTED]"

// Sanitize removes information that should not leak into status output:
// the directories of absolute paths (the base name is kept so the message
// still identifies the file) and credential-looking values.
func Sanitize(msg string) string {
	if msg == "" {
		return ""
	}

	msg = bearerPattern.ReplaceAllString(msg, "$1 "+redacted)
	msg = credentialPattern.ReplaceAllString(msg, "$1$2"+redacted)

	msg = absolutePathPattern.ReplaceAllStringFunc(msg, func(match string) string {
		idx := strings.Index(match, "/")
		prefix, path := match[:idx], match[idx:]
		base := filepath.Base(path)
		if base == "/" || base == "." {
			return prefix + "<path>"
		}
		return prefix + "<path>/" + base
	})

	return msg
}

// SanitizeError is Sanitize applied to err's message. A nil error yields
// the empty string.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}
