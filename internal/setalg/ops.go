package setalg

import (
	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/resolve"
)

// Concat appends the hosts of each item to target, in order. It mutates
// target and returns it.
func (e *Engine) Concat(target any, items ...any) (*hostlist.HostList, error) {
	if len(items) == 0 {
		return nil, resolve.Usagef("concat", "at least one item required")
	}
	tb, err := e.slot("concat", []any{target}, 0)
	if err != nil {
		return nil, err
	}
	set, err := e.resolveAll("concat", items)
	if err != nil {
		tb.Release()
		return nil, err
	}
	for i := 0; i < set.Len(); i++ {
		tb.List.PushList(set.At(i))
	}
	if err := set.Release(); err != nil {
		tb.Release()
		return nil, err
	}
	return tb.List, nil
}

// Pop removes n hosts from the end of target and returns them, most recent
// first. n must satisfy 0 < n < Count.
func (e *Engine) Pop(target any, n int) (hosts []string, err error) {
	b, err := e.slot("pop", []any{target}, 0)
	if err != nil {
		return nil, err
	}
	defer releaseSlot("pop", b, &hosts, &err)

	count := b.List.Count()
	if n <= 0 || n >= count {
		return nil, resolve.Usagef("pop", "bad count %d for host list with %d hosts", n, count)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		h, ok := b.List.Pop()
		if !ok {
			break
		}
		out = append(out, h)
	}
	return out, nil
}

// Nth returns the host at 1-based index i; negative i counts from the end,
// -1 being the last host. ok is false when i is 0 or abs(i) > Count.
func (e *Engine) Nth(target any, i int) (host string, ok bool, err error) {
	b, err := e.slot("nth", []any{target}, 0)
	if err != nil {
		return "", false, err
	}
	defer func() {
		releaseSlot("nth", b, &host, &err)
		if err != nil {
			ok = false
		}
	}()

	count := b.List.Count()
	if i > count || -i > count {
		return "", false, nil
	}
	if i < 0 {
		i += count + 1
	}
	if i == 0 {
		return "", false, nil
	}
	host, ok = b.List.Nth(i - 1)
	return host, ok, nil
}

// Count returns the number of hosts in target, duplicates included.
func (e *Engine) Count(target any) (n int, err error) {
	b, err := e.slot("count", []any{target}, 0)
	if err != nil {
		return 0, err
	}
	defer releaseSlot("count", b, &n, &err)
	return b.List.Count(), nil
}

// String renders target in range notation, bounded by the engine's maximum
// length. A truncated rendering ends in "+".
func (e *Engine) String(target any) (s string, err error) {
	b, err := e.slot("to_string", []any{target}, 0)
	if err != nil {
		return "", err
	}
	defer releaseSlot("to_string", b, &s, &err)

	s, truncated := b.List.RangedString(e.maxLen)
	if truncated {
		e.logger.Debug("range string truncated", "max", e.maxLen, "hosts", b.List.Count())
	}
	return s, nil
}

// Uniq sorts target and removes duplicates. It mutates target and returns it.
func (e *Engine) Uniq(target any) (*hostlist.HostList, error) {
	b, err := e.slot("uniq", []any{target}, 0)
	if err != nil {
		return nil, err
	}
	b.List.Uniq()
	return b.List, nil
}

// Sort sorts target. It mutates target and returns it.
func (e *Engine) Sort(target any) (*hostlist.HostList, error) {
	b, err := e.slot("sort", []any{target}, 0)
	if err != nil {
		return nil, err
	}
	b.List.Sort()
	return b.List, nil
}
