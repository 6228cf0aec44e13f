// Package fuel names the fuel kinds sold at the station and the dispenser
// compatibility tags built on them.
package fuel

import (
	"fmt"
	"strings"
)

// Kind is a fuel category. Universal is only valid as a dispenser tag.
type Kind string

// Constants for fuel kinds
const (
	Gasoline  Kind = "gasoline"
	Diesel    Kind = "diesel"
	LPG       Kind = "lpg"
	Universal Kind = "universal"
)

// Kinds lists every kind a vehicle can request, in display order.
var Kinds = []Kind{Gasoline, Diesel, LPG}

// Valid reports whether k is a kind a vehicle can request.
func (k Kind) Valid() bool {
	switch k {
	case Gasoline, Diesel, LPG:
		return true
	}
	return false
}

// Accepts reports whether a dispenser tagged k can serve a vehicle requesting v.
func (k Kind) Accepts(v Kind) bool {
	return k == Universal || k == v
}

func (k Kind) String() string { return string(k) }

// Parse reads a vehicle fuel kind.
func Parse(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown fuel kind %q", s)
	}
	return k, nil
}

// ParseTag reads a dispenser compatibility tag: a fuel kind or universal.
func ParseTag(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == Universal {
		return k, nil
	}
	return Parse(s)
}
