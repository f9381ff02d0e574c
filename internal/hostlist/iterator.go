package hostlist

import (
	"iter"
	"slices"
)

// Iterator is a single-pass cursor over a snapshot of one HostList.
// It pins its source until Close is called.
type Iterator struct {
	src   *HostList
	hosts []string
	pos   int
}

// Iterator returns a new cursor positioned before the first host. Every call
// returns an independent cursor.
func (hl *HostList) Iterator() *Iterator {
	hl.pins++
	return &Iterator{src: hl, hosts: slices.Clone(hl.hosts)}
}

// Next returns the next host. Once the snapshot is exhausted, or after
// Close, it returns ("", false) forever.
func (it *Iterator) Next() (string, bool) {
	if it.pos >= len(it.hosts) {
		return "", false
	}
	h := it.hosts[it.pos]
	it.pos++
	return h, true
}

// Close unpins the source. Calling Close more than once is a no-op.
func (it *Iterator) Close() {
	if it.src == nil {
		return
	}
	it.src.pins--
	it.src = nil
	it.hosts = nil
	it.pos = 0
}

// All returns a range-over-func sequence backed by a fresh Iterator that is
// closed when the loop ends.
func (hl *HostList) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		it := hl.Iterator()
		defer it.Close()
		for {
			h, ok := it.Next()
			if !ok || !yield(h) {
				return
			}
		}
	}
}
