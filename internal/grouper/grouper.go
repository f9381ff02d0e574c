// Package grouper collects hosts that map to the same value.
package grouper

import (
	"slices"

	"github.com/agent462/hostlist/internal/hostlist"
)

// ValueGroup is a set of hosts that produced the same value.
type ValueGroup struct {
	Value  string
	Hosts  []string // in host order
	IsNorm bool     // true for the largest group
}

// Group buckets hosts[i] by values[i]. The largest group comes first and is
// marked as the norm; on a tie the group seen first wins. The remaining
// groups follow in order of first appearance. hosts and values must have
// the same length.
func Group(hosts, values []string) []ValueGroup {
	if len(hosts) != len(values) {
		panic("grouper: hosts and values differ in length")
	}
	if len(hosts) == 0 {
		return nil
	}

	groups := make(map[string]*ValueGroup)
	// Track insertion order for deterministic output.
	var order []string

	for i, v := range values {
		g, ok := groups[v]
		if !ok {
			g = &ValueGroup{Value: v}
			groups[v] = g
			order = append(order, v)
		}
		g.Hosts = append(g.Hosts, hosts[i])
	}

	// Find the norm (largest group). On tie, use the group that appeared first.
	norm := order[0]
	for _, v := range order[1:] {
		if len(groups[v].Hosts) > len(groups[norm].Hosts) {
			norm = v
		}
	}

	out := make([]ValueGroup, 0, len(order))
	groups[norm].IsNorm = true
	out = append(out, *groups[norm])
	for _, v := range order {
		if v != norm {
			out = append(out, *groups[v])
		}
	}
	for i := range out {
		slices.SortStableFunc(out[i].Hosts, hostlist.Compare)
	}
	return out
}
