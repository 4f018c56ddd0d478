// Package spec defines the contract specification versions understood by
// the matching engine.
package spec

import (
	"fmt"
	"strings"
)

// Version is a contract specification version.
type Version int

// Known specification versions, oldest first.
const (
	Unknown Version = iota
	V1
	V1_1
	V2
	V3
	V4
)

// Latest is the newest supported version.
const Latest = V4

// String returns the human readable name, e.g. "V3".
func (v Version) String() string {
	switch v {
	case V1:
		return "V1"
	case V1_1:
		return "V1.1"
	case V2:
		return "V2"
	case V3:
		return "V3"
	case V4:
		return "V4"
	default:
		return "Unknown"
	}
}

// VersionString returns the dotted form written into contract metadata.
func (v Version) VersionString() string {
	switch v {
	case V1:
		return "1.0.0"
	case V1_1:
		return "1.1.0"
	case V2:
		return "2.0.0"
	case V3:
		return "3.0.0"
	case V4:
		return "4.0"
	default:
		return ""
	}
}

// Before reports whether v is older than other.
func (v Version) Before(other Version) bool { return v < other }

// AtLeast reports whether v is other or newer.
func (v Version) AtLeast(other Version) bool { return v >= other }

// ParseVersion parses "3", "3.0.0", "v3" or "V3" style strings.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V"))
	if s == "" {
		return Unknown, fmt.Errorf("empty specification version")
	}

	major, rest, _ := strings.Cut(s, ".")
	minor, _, _ := strings.Cut(rest, ".")
	switch major {
	case "1":
		if minor == "1" {
			return V1_1, nil
		}
		return V1, nil
	case "2":
		return V2, nil
	case "3":
		return V3, nil
	case "4":
		return V4, nil
	}
	return Unknown, fmt.Errorf("unsupported specification version %q", s)
}
