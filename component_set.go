package vivarium

import (
	"fmt"
	"strings"
)

// OrderedComponentSet keeps components in insertion order and enforces
// uniqueness by name. Order is significant: it is the setup order.
type OrderedComponentSet struct {
	components []Component
	names      map[string]struct{}
}

// NewOrderedComponentSet returns a set holding components, in order.
func NewOrderedComponentSet(components ...Component) (*OrderedComponentSet, error) {
	s := &OrderedComponentSet{}
	if err := s.Update(components); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends c unless a member already has its name.
func (s *OrderedComponentSet) Add(c Component) error {
	ok, err := s.Contains(c)
	if err != nil {
		return err
	}
	if ok {
		return DuplicateNameError{Name: c.Name()}
	}
	if s.names == nil {
		s.names = make(map[string]struct{})
	}
	s.components = append(s.components, c)
	s.names[c.Name()] = struct{}{}
	return nil
}

// Update adds each component in order and stops at the first failure.
// Components added before the failure stay in the set.
func (s *OrderedComponentSet) Update(components []Component) error {
	for _, c := range components {
		if err := s.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether a member has the same name as c.
func (s *OrderedComponentSet) Contains(c Component) (bool, error) {
	if c == nil || c.Name() == "" {
		return false, MissingNameError{Component: c}
	}
	return s.Has(c.Name()), nil
}

// Has reports whether a member is named name.
func (s *OrderedComponentSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Get returns the member named name.
func (s *OrderedComponentSet) Get(name string) (Component, bool) {
	if !s.Has(name) {
		return nil, false
	}
	for _, c := range s.components {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Pop removes and returns the first member.
func (s *OrderedComponentSet) Pop() (Component, bool) {
	if len(s.components) == 0 {
		return nil, false
	}
	c := s.components[0]
	s.components = s.components[1:]
	delete(s.names, c.Name())
	return c, true
}

// At returns the member at index i.
func (s *OrderedComponentSet) At(i int) Component {
	return s.components[i]
}

// All returns a snapshot of the members in insertion order.
func (s *OrderedComponentSet) All() []Component {
	out := make([]Component, len(s.components))
	copy(out, s.components)
	return out
}

// Names returns member names in insertion order.
func (s *OrderedComponentSet) Names() []string {
	names := make([]string, len(s.components))
	for i, c := range s.components {
		names[i] = c.Name()
	}
	return names
}

func (s *OrderedComponentSet) Len() int {
	return len(s.components)
}

func (s *OrderedComponentSet) Empty() bool {
	return len(s.components) == 0
}

// Equal reports whether both sets hold the same names in the same order.
func (s *OrderedComponentSet) Equal(other *OrderedComponentSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.components {
		if s.components[i].Name() != other.components[i].Name() {
			return false
		}
	}
	return true
}

func (s *OrderedComponentSet) String() string {
	return fmt.Sprintf("OrderedComponentSet([%s])", strings.Join(s.Names(), ", "))
}
