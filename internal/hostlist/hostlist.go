// Package hostlist implements an ordered multiset of hostnames that can be
// parsed from and rendered to bracketed range notation such as node[1-5].
//
// A HostList has exactly one owner. The owner calls Release when it is done;
// after that the list is empty and a second Release reports ErrReleased.
// Iterators pin their source, so Release fails with ErrBusy while any
// iterator over the list is still open.
//
// A HostList is not safe for concurrent use.
package hostlist

import (
	"errors"
	"slices"
)

var (
	// ErrReleased is returned when releasing a list that was already released.
	ErrReleased = errors.New("hostlist: already released")

	// ErrBusy is returned when releasing a list that has open iterators.
	ErrBusy = errors.New("hostlist: release with open iterators")
)

// HostList is an ordered multiset of hostnames.
type HostList struct {
	hosts    []string
	pins     int
	released bool
}

// New returns an empty host list.
func New() *HostList {
	return &HostList{}
}

// Parse expands a range expression such as "node[1-3,5],login1" into a new
// host list. An empty string yields an empty list.
func Parse(s string) (*HostList, error) {
	hosts, err := expand(s)
	if err != nil {
		return nil, err
	}
	return &HostList{hosts: hosts}, nil
}

// FromHosts returns a list holding the given literal hostnames in order.
func FromHosts(hosts ...string) *HostList {
	return &HostList{hosts: slices.Clone(hosts)}
}

// Release empties the list and marks it released.
func (hl *HostList) Release() error {
	if hl.released {
		return ErrReleased
	}
	if hl.pins > 0 {
		return ErrBusy
	}
	hl.hosts = nil
	hl.released = true
	return nil
}

// Released reports whether Release has succeeded on this list.
func (hl *HostList) Released() bool {
	return hl.released
}

// Copy returns an independent list with the same hosts in the same order.
func (hl *HostList) Copy() *HostList {
	return &HostList{hosts: slices.Clone(hl.hosts)}
}

// Push expands a range expression and appends its hosts.
// The list is unchanged if the expression is malformed.
func (hl *HostList) Push(s string) error {
	hosts, err := expand(s)
	if err != nil {
		return err
	}
	hl.hosts = append(hl.hosts, hosts...)
	return nil
}

// PushHost appends a single literal hostname without range expansion.
func (hl *HostList) PushHost(host string) {
	hl.hosts = append(hl.hosts, host)
}

// PushList appends every host of other, in other's order. other may be hl.
func (hl *HostList) PushList(other *HostList) {
	hl.hosts = append(hl.hosts, other.hosts...)
}

// Find returns the 0-based index of the first occurrence of host, or -1.
func (hl *HostList) Find(host string) int {
	return slices.Index(hl.hosts, host)
}

// DeleteHost removes the first occurrence of host and reports whether one
// was found.
func (hl *HostList) DeleteHost(host string) bool {
	i := hl.Find(host)
	if i < 0 {
		return false
	}
	hl.hosts = slices.Delete(hl.hosts, i, i+1)
	return true
}

// Count returns the number of hosts, duplicates included.
func (hl *HostList) Count() int {
	return len(hl.hosts)
}

// Nth returns the host at 0-based index i.
func (hl *HostList) Nth(i int) (string, bool) {
	if i < 0 || i >= len(hl.hosts) {
		return "", false
	}
	return hl.hosts[i], true
}

// Pop removes and returns the most recently added host.
func (hl *HostList) Pop() (string, bool) {
	n := len(hl.hosts)
	if n == 0 {
		return "", false
	}
	host := hl.hosts[n-1]
	hl.hosts = hl.hosts[:n-1]
	return host, true
}

// Hosts returns a copy of the hosts in list order.
func (hl *HostList) Hosts() []string {
	return slices.Clone(hl.hosts)
}

// DeleteFunc removes every host for which del returns true and reports how
// many were removed.
func (hl *HostList) DeleteFunc(del func(string) bool) int {
	n := len(hl.hosts)
	hl.hosts = slices.DeleteFunc(hl.hosts, del)
	return n - len(hl.hosts)
}
