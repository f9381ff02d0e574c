package hostlist

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/xlab/handysort"
)

// hostname is a host split into its non-numeric prefix and trailing digits.
type hostname struct {
	prefix string
	digits string // empty when the host has no numeric suffix
	num    uint64
}

func splitHost(h string) hostname {
	i := len(h)
	for i > 0 && h[i-1] >= '0' && h[i-1] <= '9' {
		i--
	}
	hn := hostname{prefix: h[:i], digits: h[i:]}
	if hn.digits == "" {
		return hn
	}
	n, err := strconv.ParseUint(hn.digits, 10, 64)
	if err != nil {
		// Too long to be a range index; treat the whole name as a prefix.
		return hostname{prefix: h}
	}
	hn.num = n
	return hn
}

// Compare orders hostnames the way range notation groups them: by prefix in
// natural order, then by numeric suffix, then by suffix width so that
// "node1" sorts before "node01".
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	ha, hb := splitHost(a), splitHost(b)
	if ha.prefix != hb.prefix {
		switch {
		case handysort.StringLess(ha.prefix, hb.prefix):
			return -1
		case handysort.StringLess(hb.prefix, ha.prefix):
			return 1
		}
		return cmp.Compare(ha.prefix, hb.prefix)
	}
	if (ha.digits == "") != (hb.digits == "") {
		if ha.digits == "" {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(ha.num, hb.num); c != 0 {
		return c
	}
	if c := cmp.Compare(len(ha.digits), len(hb.digits)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// Sort orders the list in place using Compare. Duplicates are kept.
func (hl *HostList) Sort() {
	slices.SortStableFunc(hl.hosts, Compare)
}

// Uniq sorts the list in place and removes duplicate hosts.
func (hl *HostList) Uniq() {
	hl.Sort()
	hl.hosts = slices.Compact(hl.hosts)
}
