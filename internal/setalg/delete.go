package setalg

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/resolve"
)

// Delete removes from target up to limit occurrences of each distinct host
// in pattern; limit 0 removes every occurrence. It mutates target and
// returns it. A target given as a string is parsed and handed back to the
// caller, who then owns it.
func (e *Engine) Delete(target, pattern any, limit int) (*hostlist.HostList, error) {
	if limit < 0 {
		return nil, resolve.Usagef("delete", "limit must be non-negative, got %d", limit)
	}
	args := []any{target, pattern}
	tb, err := e.slot("delete", args, 0)
	if err != nil {
		return nil, err
	}
	pb, err := e.slot("delete", args, 1)
	if err != nil {
		tb.Release()
		return nil, err
	}

	n := removeHosts(tb.List, pb.List, limit)
	if err := pb.Release(); err != nil {
		return nil, fmt.Errorf("delete: releasing pattern: %w", err)
	}
	e.logger.Debug("deleted hosts", "removed", n, "limit", limit)
	return tb.List, nil
}

// DeleteAll removes every occurrence of every host of each pattern from
// target, one pattern at a time, left to right. It mutates target and
// returns it. All patterns are resolved before target changes.
func (e *Engine) DeleteAll(target any, patterns ...any) (*hostlist.HostList, error) {
	if len(patterns) == 0 {
		return nil, resolve.Usagef("delete_all", "at least one pattern required")
	}
	tb, err := e.slot("delete_all", []any{target}, 0)
	if err != nil {
		return nil, err
	}
	set, err := e.resolveAll("delete_all", patterns)
	if err != nil {
		tb.Release()
		return nil, err
	}

	n := 0
	for i := 0; i < set.Len(); i++ {
		n += removeHosts(tb.List, set.At(i), 0)
	}
	if err := set.Release(); err != nil {
		tb.Release()
		return nil, fmt.Errorf("delete_all: releasing patterns: %w", err)
	}
	e.logger.Debug("deleted hosts", "removed", n, "patterns", len(patterns))
	return tb.List, nil
}

// removeHosts removes up to limit occurrences (0 = all) of each distinct
// host of pattern from hl and returns how many were removed. pattern may be
// hl itself.
func removeHosts(hl, pattern *hostlist.HostList, limit int) int {
	if limit == 0 {
		members := memberSet(pattern)
		return hl.DeleteFunc(func(h string) bool { return members.Contains(h) })
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var distinct []string
	for h := range pattern.All() {
		if seen.Add(h) {
			distinct = append(distinct, h)
		}
	}

	removed := 0
	for _, h := range distinct {
		for n := 0; n < limit && hl.DeleteHost(h); n++ {
			removed++
		}
	}
	return removed
}
