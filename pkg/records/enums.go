package records

import (
	"fmt"
	"strings"
)

// Tag classifies a record.
type Tag int

// Tag values. The zero value is not a valid tag.
const (
	TagUnknown Tag = iota
	TagSkill
	TagMCP
)

// DefaultTag is used whenever a stored tag is missing or unrecognized.
const DefaultTag = TagSkill

// String returns the store label of the tag.
func (t Tag) String() string {
	switch t {
	case TagSkill:
		return "Skill"
	case TagMCP:
		return "MCP"
	case TagUnknown:
		return ""
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// Valid reports whether t is one of the store's tags.
func (t Tag) Valid() bool {
	switch t {
	case TagSkill, TagMCP:
		return true
	case TagUnknown:
		return false
	}
	return false
}

// ParseTag parses a store label. ok is false for unrecognized labels.
func ParseTag(s string) (Tag, bool) {
	switch strings.TrimSpace(s) {
	case "Skill":
		return TagSkill, true
	case "MCP":
		return TagMCP, true
	}
	return TagUnknown, false
}

// NormalizeTag parses a store label, falling back to DefaultTag.
func NormalizeTag(s string) Tag {
	if t, ok := ParseTag(s); ok {
		return t
	}
	return DefaultTag
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	*t = NormalizeTag(string(b))
	return nil
}

// Status is the lifecycle label of a record.
type Status int

// Status values. StatusUnknown represents any label the store holds that is
// not one of ours (legacy "Not started", "Done"); it is never written.
const (
	StatusUnknown Status = iota
	StatusActive
	StatusBroken
	// StatusReview is reserved in the store schema and never produced.
	StatusReview
)

// String returns the store label of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusBroken:
		return "Broken"
	case StatusReview:
		return "Review"
	case StatusUnknown:
		return "Unknown"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s may be written to the store.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBroken, StatusReview:
		return true
	case StatusUnknown:
		return false
	}
	return false
}

// ParseStatus parses a store label. An empty label means Active, as the
// store reports no status for freshly created pages.
func ParseStatus(s string) Status {
	switch strings.TrimSpace(s) {
	case "", "Active":
		return StatusActive
	case "Broken":
		return StatusBroken
	case "Review":
		return StatusReview
	}
	return StatusUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}
