// Package actions defines the data-driven description of what an agent can
// do: action templates, their considerations and the sets they are grouped in.
package actions

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/cortex/curves"
)

var (
	// ErrMalformedTemplate marks a template or consideration that can never
	// be scored, such as one whose input range is empty.
	ErrMalformedTemplate = errors.New("malformed template")
	// ErrDuplicateTemplate is returned when a set already holds a template
	// with the same name and key.
	ErrDuplicateTemplate = errors.New("duplicate template in action set")
)

// ConsiderationSpec binds a registered consideration to its input range and
// response curve.
type ConsiderationSpec struct {
	Key       string
	Min       float64
	Max       float64
	CurveName string
	Curve     curves.Curve
}

// Validate reports whether the consideration can be scored.
func (c *ConsiderationSpec) Validate() error {
	switch {
	case c.Key == "":
		return fmt.Errorf("%w: consideration without key", ErrMalformedTemplate)
	case math.IsNaN(c.Min) || math.IsInf(c.Min, 0) || math.IsNaN(c.Max) || math.IsInf(c.Max, 0):
		return fmt.Errorf("%w: consideration %q has non-finite bounds", ErrMalformedTemplate, c.Key)
	case c.Min == c.Max:
		return fmt.Errorf("%w: consideration %q has min == max (%v)", ErrMalformedTemplate, c.Key, c.Min)
	case c.Curve == nil:
		return fmt.Errorf("%w: consideration %q has no curve", ErrMalformedTemplate, c.Key)
	}
	return nil
}

// ActionTemplate is an abstract action. It becomes concrete once paired with
// a context produced by its fetcher.
type ActionTemplate struct {
	Name           string // Designer-facing label
	Key            string // Handler key used for dispatch
	Priority       float64
	Fetcher        string
	Considerations []ConsiderationSpec
	LOD            LODRange
	TieBreak       int // Lower wins among equal scores
}

// ID identifies the template within a set.
func (t *ActionTemplate) ID() string {
	return t.Name + "/" + t.Key
}

// Validate checks the template and all of its considerations.
func (t *ActionTemplate) Validate() error {
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: template without name", ErrMalformedTemplate)
	case t.Key == "":
		return fmt.Errorf("%w: template %q has no action key", ErrMalformedTemplate, t.Name)
	case t.Fetcher == "":
		return fmt.Errorf("%w: template %q has no context fetcher", ErrMalformedTemplate, t.Name)
	case math.IsNaN(t.Priority) || math.IsInf(t.Priority, 0) || t.Priority < 0:
		return fmt.Errorf("%w: template %q has invalid priority %v", ErrMalformedTemplate, t.Name, t.Priority)
	case !t.LOD.Unrestricted() && t.LOD.Min > t.LOD.Max:
		return fmt.Errorf("%w: template %q has lod range %s..%s", ErrMalformedTemplate, t.Name, t.LOD.Min, t.LOD.Max)
	}
	for i := range t.Considerations {
		if err := t.Considerations[i].Validate(); err != nil {
			return fmt.Errorf("template %q: %w", t.Name, err)
		}
	}
	return nil
}

// ActionSet is an ordered collection of templates with unique membership.
type ActionSet struct {
	Name      string
	templates []*ActionTemplate
	index     map[string]int
}

// NewActionSet builds a set from templates, rejecting malformed and
// duplicate entries.
func NewActionSet(name string, templates ...ActionTemplate) (*ActionSet, error) {
	s := &ActionSet{Name: name, index: make(map[string]int, len(templates))}
	for _, t := range templates {
		if err := s.Add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustActionSet is like NewActionSet but panics on error.
func MustActionSet(name string, templates ...ActionTemplate) *ActionSet {
	s, err := NewActionSet(name, templates...)
	if err != nil {
		panic(err)
	}
	return s
}

// Add appends a template to the set.
func (s *ActionSet) Add(t ActionTemplate) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("action set %q: %w", s.Name, err)
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	id := t.ID()
	if _, dup := s.index[id]; dup {
		return fmt.Errorf("action set %q: %w: %s", s.Name, ErrDuplicateTemplate, id)
	}
	t.Considerations = append([]ConsiderationSpec(nil), t.Considerations...)
	s.index[id] = len(s.templates)
	s.templates = append(s.templates, &t)
	return nil
}

// Templates returns the set's templates in insertion order. Callers must
// not modify them.
func (s *ActionSet) Templates() []*ActionTemplate {
	return s.templates
}

// Len returns the number of templates.
func (s *ActionSet) Len() int { return len(s.templates) }

// Template looks a template up by name and key.
func (s *ActionSet) Template(name, key string) (*ActionTemplate, bool) {
	i, ok := s.index[name+"/"+key]
	if !ok {
		return nil, false
	}
	return s.templates[i], true
}
