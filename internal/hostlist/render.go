package hostlist

import "strings"

// hostRange is a run of consecutive numbered hosts sharing a prefix, or a
// single host without a numeric suffix (literal set).
type hostRange struct {
	prefix  string
	lo, hi  uint64
	width   int
	literal string
	isLit   bool
}

func (r hostRange) isLiteral() bool { return r.isLit }

// accepts reports whether h extends r by one.
func (r hostRange) accepts(h hostname) bool {
	if r.isLiteral() || h.digits == "" || h.prefix != r.prefix || h.num != r.hi+1 {
		return false
	}
	if r.width == 0 {
		return padWidth(h.digits) == 0
	}
	return len(h.digits) == r.width
}

func (r hostRange) format() string {
	if r.lo == r.hi {
		return formatNum(r.lo, r.width)
	}
	return formatNum(r.lo, r.width) + "-" + formatNum(r.hi, r.width)
}

func padWidth(digits string) int {
	if len(digits) > 1 && digits[0] == '0' {
		return len(digits)
	}
	return 0
}

// ranges collapses the list, in list order, into runs.
func (hl *HostList) ranges() []hostRange {
	var out []hostRange
	for _, h := range hl.hosts {
		hn := splitHost(h)
		if hn.digits == "" {
			out = append(out, hostRange{literal: h, isLit: true})
			continue
		}
		if n := len(out); n > 0 && out[n-1].accepts(hn) {
			out[n-1].hi = hn.num
			continue
		}
		out = append(out, hostRange{
			prefix: hn.prefix,
			lo:     hn.num,
			hi:     hn.num,
			width:  padWidth(hn.digits),
		})
	}
	return out
}

// chunks groups adjacent runs with the same prefix into top-level items
// such as "node[1-3,5]".
func (hl *HostList) chunks() []string {
	rs := hl.ranges()
	var out []string
	for i := 0; i < len(rs); {
		if rs[i].isLiteral() {
			out = append(out, rs[i].literal)
			i++
			continue
		}
		j := i + 1
		for j < len(rs) && !rs[j].isLiteral() && rs[j].prefix == rs[i].prefix {
			j++
		}
		if j == i+1 && rs[i].lo == rs[i].hi {
			out = append(out, rs[i].prefix+rs[i].format())
			i = j
			continue
		}
		parts := make([]string, 0, j-i)
		for _, r := range rs[i:j] {
			parts = append(parts, r.format())
		}
		out = append(out, rs[i].prefix+"["+strings.Join(parts, ",")+"]")
		i = j
	}
	return out
}

// RangedString renders the list in range notation, in list order. When max
// is positive and the rendering would be longer, whole items are dropped
// from the end and a trailing "+" marks the truncation.
func (hl *HostList) RangedString(max int) (string, bool) {
	chunks := hl.chunks()
	full := strings.Join(chunks, ",")
	if max <= 0 || len(full) <= max {
		return full, false
	}

	var b strings.Builder
	for _, c := range chunks {
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if b.Len()+sep+len(c)+1 > max {
			break
		}
		if sep > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c)
	}
	b.WriteByte('+')
	return b.String(), true
}

// String renders the whole list in range notation.
func (hl *HostList) String() string {
	s, _ := hl.RangedString(0)
	return s
}
