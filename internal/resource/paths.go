package resource

import (
	"path"
	"strings"
)

// Clean normalizes a workspace relative path. The root is "".
func Clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}

// Parent returns the parent of p. The parent of a top-level path is the
// root "". The root has no parent and returns "".
func Parent(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// Depth returns the number of segments in p. The root has depth 0.
func Depth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// Contains reports whether p equals scope or lies below it. Every path is
// contained in the root scope "".
func Contains(scope, p string) bool {
	if scope == "" {
		return true
	}
	return p == scope || strings.HasPrefix(p, scope+"/")
}

// ProjectOf returns the top-level segment of p, or "" for the root.
func ProjectOf(p string) string {
	if idx := strings.Index(p, "/"); idx >= 0 {
		return p[:idx]
	}
	return p
}

// TypeFor derives the resource type of a directory or file at p.
func TypeFor(p string, isDir bool) Type {
	switch {
	case p == "":
		return Root
	case !isDir:
		return File
	case Depth(p) == 1:
		return Project
	default:
		return Folder
	}
}
