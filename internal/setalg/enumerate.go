package setalg

import "github.com/agent462/hostlist/internal/hostlist"

// Transform maps one host to an output value. Returning ok=false with a nil
// error drops the host from the output. A non-nil error aborts the
// enumeration and is returned to the caller unchanged.
type Transform func(host string) (value string, ok bool, err error)

// Identity is the Transform used when Map is given none.
func Identity(host string) (string, bool, error) {
	return host, true, nil
}

// Map walks source once, in order, and collects fn's values. A string
// source is parsed into a temporary that is released before Map returns.
func (e *Engine) Map(source any, fn Transform) (values []string, err error) {
	b, err := e.slot("map", []any{source}, 0)
	if err != nil {
		return nil, err
	}
	defer releaseSlot("map", b, &values, &err)

	if fn == nil {
		fn = Identity
	}

	out := make([]string, 0, b.List.Count())
	it := b.List.Iterator()
	defer it.Close()
	for {
		host, more := it.Next()
		if !more {
			break
		}
		v, ok, err := fn(host)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Iter returns a fresh iterator over hl. The caller must Close it.
func (e *Engine) Iter(hl *hostlist.HostList) *hostlist.Iterator {
	return hl.Iterator()
}
