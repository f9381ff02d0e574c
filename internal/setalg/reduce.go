package setalg

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/resolve"
)

// foldFunc combines the current accumulator with the next operand into a
// new accumulator. It must not modify either input.
type foldFunc func(acc, next *hostlist.HostList) *hostlist.HostList

// reduce resolves args, hands the resolved set to build, and releases the
// set's temporaries on every path.
func (e *Engine) reduce(op string, args []any, build func(*resolve.Set) (*hostlist.HostList, error)) (result *hostlist.HostList, err error) {
	set, err := e.resolveAll(op, args)
	if err != nil {
		return nil, err
	}
	defer finish(op, set, &result, &err)

	result, err = build(set)
	if err == nil {
		e.logger.Debug("reduced", "op", op, "operands", set.Len(), "owned", set.Owned(), "hosts", result.Count())
	}
	return result, err
}

// leftFold seeds the accumulator with a copy of the first operand and folds
// the rest into it strictly left to right. Each replaced accumulator is
// released.
func leftFold(set *resolve.Set, fold foldFunc) (*hostlist.HostList, error) {
	acc := set.At(0).Copy()
	for i := 1; i < set.Len(); i++ {
		next := fold(acc, set.At(i))
		if err := acc.Release(); err != nil {
			next.Release()
			return nil, err
		}
		acc = next
	}
	acc.Uniq()
	return acc, nil
}

// Union returns every host of every argument, sorted and deduplicated.
func (e *Engine) Union(args ...any) (*hostlist.HostList, error) {
	return e.reduce("union", args, func(set *resolve.Set) (*hostlist.HostList, error) {
		r := hostlist.New()
		for i := 0; i < set.Len(); i++ {
			r.PushList(set.At(i))
		}
		r.Uniq()
		return r, nil
	})
}

// Intersect returns the hosts present in every argument, sorted and
// deduplicated.
func (e *Engine) Intersect(args ...any) (*hostlist.HostList, error) {
	return e.reduce("intersect", args, func(set *resolve.Set) (*hostlist.HostList, error) {
		return leftFold(set, intersectPair)
	})
}

// Xor returns the symmetric difference of the arguments folded left to
// right, sorted and deduplicated.
func (e *Engine) Xor(args ...any) (*hostlist.HostList, error) {
	return e.reduce("xor", args, func(set *resolve.Set) (*hostlist.HostList, error) {
		return leftFold(set, xorPair)
	})
}

// Subtract returns a copy of the first argument with every occurrence of
// every host of each later argument removed, in order. The copy keeps the
// first argument's order; it is not sorted.
func (e *Engine) Subtract(args ...any) (*hostlist.HostList, error) {
	return e.reduce("subtract", args, func(set *resolve.Set) (*hostlist.HostList, error) {
		r := set.At(0).Copy()
		for i := 1; i < set.Len(); i++ {
			removeHosts(r, set.At(i), 0)
		}
		return r, nil
	})
}

// intersectPair keeps acc's hosts, duplicates and order included, that are
// members of next.
func intersectPair(acc, next *hostlist.HostList) *hostlist.HostList {
	members := memberSet(next)
	r := hostlist.New()
	for h := range acc.All() {
		if members.Contains(h) {
			r.PushHost(h)
		}
	}
	return r
}

// xorPair returns acc's hosts missing from next followed by next's hosts
// missing from acc.
func xorPair(acc, next *hostlist.HostList) *hostlist.HostList {
	inAcc, inNext := memberSet(acc), memberSet(next)
	r := hostlist.New()
	for h := range acc.All() {
		if !inNext.Contains(h) {
			r.PushHost(h)
		}
	}
	for h := range next.All() {
		if !inAcc.Contains(h) {
			r.PushHost(h)
		}
	}
	return r
}

// memberSet indexes the hosts of hl for membership tests.
func memberSet(hl *hostlist.HostList) mapset.Set[string] {
	s := mapset.NewThreadUnsafeSet[string]()
	for h := range hl.All() {
		s.Add(h)
	}
	return s
}
