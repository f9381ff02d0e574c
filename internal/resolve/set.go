package resolve

import (
	"errors"

	"github.com/agent462/hostlist/internal/hostlist"
)

// Binding pairs a resolved list with the call's ownership of it.
type Binding struct {
	List  *hostlist.HostList
	Owned bool
}

// Release releases the list if the binding owns it.
func (b Binding) Release() error {
	if !b.Owned || b.List == nil {
		return nil
	}
	return b.List.Release()
}

// Set is the ordered result of resolving one call's arguments.
type Set struct {
	bindings []Binding
}

// Len returns the number of bindings.
func (s *Set) Len() int {
	return len(s.bindings)
}

// At returns the list bound to argument i.
func (s *Set) At(i int) *hostlist.HostList {
	return s.bindings[i].List
}

// Binding returns binding i.
func (s *Set) Binding(i int) Binding {
	return s.bindings[i]
}

// Owned returns how many bindings the call owns.
func (s *Set) Owned() int {
	n := 0
	for _, b := range s.bindings {
		if b.Owned {
			n++
		}
	}
	return n
}

// Release releases every owned binding and empties the set. Borrowed lists
// are left alone. Safe to call more than once.
func (s *Set) Release() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, b := range s.bindings {
		if err := b.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	s.bindings = nil
	return errors.Join(errs...)
}
