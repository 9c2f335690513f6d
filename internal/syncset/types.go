package syncset

import (
	"fmt"

	"teamsync/internal/resource"
)

// Direction is the synchronization direction of an entry relative to the
// remote source.
type Direction int

const (
	// InSync means local and remote agree.
	InSync Direction = iota
	// Outgoing means the local copy carries changes the remote lacks.
	Outgoing
	// Incoming means the remote carries changes the local copy lacks.
	Incoming
	// Conflicting means both sides changed.
	Conflicting
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case InSync:
		return "in-sync"
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	case Conflicting:
		return "conflicting"
	default:
		return "unknown"
	}
}

// ParseDirection parses the output of Direction.String.
func ParseDirection(s string) (Direction, error) {
	for _, d := range []Direction{InSync, Outgoing, Incoming, Conflicting} {
		if d.String() == s {
			return d, nil
		}
	}
	return InSync, fmt.Errorf("unknown sync direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Change is the kind of difference an entry carries.
type Change int

const (
	// NoChange is used for entries in sync.
	NoChange Change = iota
	// Addition means the resource exists on one side only.
	Addition
	// Deletion means the resource was deleted on one side.
	Deletion
	// Modification means the resource exists on both sides with different
	// contents.
	Modification
)

// String returns the string representation of the change.
func (c Change) String() string {
	switch c {
	case NoChange:
		return "none"
	case Addition:
		return "addition"
	case Deletion:
		return "deletion"
	case Modification:
		return "modification"
	default:
		return "unknown"
	}
}

// ParseChange parses the output of Change.String.
func ParseChange(s string) (Change, error) {
	for _, c := range []Change{NoChange, Addition, Deletion, Modification} {
		if c.String() == s {
			return c, nil
		}
	}
	return NoChange, fmt.Errorf("unknown sync change %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Change) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Change) UnmarshalText(text []byte) error {
	parsed, err := ParseChange(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SyncInfo is the synchronization state of one resource.
type SyncInfo struct {
	Path      string        `json:"path" yaml:"path"`
	Type      resource.Type `json:"type" yaml:"type"`
	Direction Direction     `json:"direction" yaml:"direction"`
	Change    Change        `json:"change" yaml:"change"`
	LocalHash string        `json:"localHash,omitempty" yaml:"localHash,omitempty"`
	BaseHash  string        `json:"baseHash,omitempty" yaml:"baseHash,omitempty"`
}

// IsOutOfSync reports whether the entry belongs in a sync set.
func (i SyncInfo) IsOutOfSync() bool {
	return i.Direction != InSync
}

// Label returns a short human readable description such as
// "outgoing modification".
func (i SyncInfo) Label() string {
	if i.Direction == InSync {
		return i.Direction.String()
	}
	return i.Direction.String() + " " + i.Change.String()
}

// String returns the path and label.
func (i SyncInfo) String() string {
	return fmt.Sprintf("%s (%s)", i.Path, i.Label())
}
