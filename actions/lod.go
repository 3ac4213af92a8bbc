package actions

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LOD is a controller's level of detail. Lower values are more detailed.
type LOD uint8

const (
	LODElevated LOD = 0
	LODNormal   LOD = 8
	LODMinimal  LOD = 254
	// LODInactive controllers are not evaluated at all.
	LODInactive LOD = 255
)

var lodNames = map[string]LOD{
	"elevated": LODElevated,
	"normal":   LODNormal,
	"minimal":  LODMinimal,
	"inactive": LODInactive,
}

func (l LOD) String() string {
	switch l {
	case LODElevated:
		return "elevated"
	case LODNormal:
		return "normal"
	case LODMinimal:
		return "minimal"
	case LODInactive:
		return "inactive"
	}
	return strconv.Itoa(int(l))
}

// ParseLOD accepts a level name or a number in [0,255].
func ParseLOD(s string) (LOD, error) {
	if l, ok := lodNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid lod %q", s)
	}
	return LOD(n), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *LOD) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseLOD(node.Value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l LOD) MarshalYAML() (any, error) {
	return l.String(), nil
}

// LODRange limits the levels of detail a template is scored at. The zero
// range is unrestricted. A literal range whose bounds are both LODElevated
// is indistinguishable from the zero range, so set Bounded (or use
// LODBetween) to restrict a template to elevated controllers.
type LODRange struct {
	Min     LOD
	Max     LOD
	Bounded bool
}

// LODBetween returns the inclusive range lo..hi.
func LODBetween(lo, hi LOD) LODRange {
	return LODRange{Min: lo, Max: hi, Bounded: true}
}

// Unrestricted reports whether the range admits every active level.
func (r LODRange) Unrestricted() bool {
	return !r.Bounded && r.Min == 0 && r.Max == 0
}

// Contains reports whether a controller at l may score the template.
// Inactive controllers are never contained.
func (r LODRange) Contains(l LOD) bool {
	if l == LODInactive {
		return false
	}
	if r.Unrestricted() {
		return true
	}
	return l >= r.Min && l <= r.Max
}

// UnmarshalYAML implements yaml.Unmarshaler. A present range is always
// bounded; a missing min is elevated and a missing max is minimal.
func (r *LODRange) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		Min *LOD `yaml:"min"`
		Max *LOD `yaml:"max"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}
	*r = LODBetween(LODElevated, LODMinimal)
	if doc.Min != nil {
		r.Min = *doc.Min
	}
	if doc.Max != nil {
		r.Max = *doc.Max
	}
	return nil
}
