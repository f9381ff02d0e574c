package hostlist

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// MaxRange is the largest number of hosts a single item of a range
// expression may expand to.
var MaxRange = 65536

// ParseError reports a malformed range expression.
type ParseError struct {
	Input  string
	Pos    int // byte offset into Input
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed host range %q at offset %d: %s", e.Input, e.Pos, e.Reason)
}

// bound is one N or N-M element of a bracket group.
type bound struct {
	lo, hi uint64
	width  int // zero-padded width, 0 when not padded
}

// segment is either literal text or a bracket group.
type segment struct {
	text   string
	bounds []bound
}

func (s segment) isGroup() bool { return s.bounds != nil }

// expand turns a full range expression into hostnames.
func expand(s string) ([]string, error) {
	var hosts []string
	start := -1
	depth := 0

	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		item, err := expandItem(s, start, end)
		if err != nil {
			return err
		}
		hosts = append(hosts, item...)
		start = -1
		return nil
	}

	for i, r := range s {
		switch {
		case r == '[':
			if depth > 0 {
				return nil, &ParseError{Input: s, Pos: i, Reason: "nested '['"}
			}
			depth++
		case r == ']':
			if depth == 0 {
				return nil, &ParseError{Input: s, Pos: i, Reason: "unbalanced ']'"}
			}
			depth--
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			if err := flush(i); err != nil {
				return nil, err
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if depth > 0 {
		return nil, &ParseError{Input: s, Pos: len(s), Reason: "missing ']'"}
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return hosts, nil
}

// expandItem expands s[start:end], a single item with balanced brackets.
func expandItem(s string, start, end int) ([]string, error) {
	segs, err := splitSegments(s, start, end)
	if err != nil {
		return nil, err
	}

	total := 1
	for _, seg := range segs {
		if !seg.isGroup() {
			continue
		}
		total *= groupSize(seg.bounds)
		if total > MaxRange {
			return nil, &ParseError{Input: s, Pos: start,
				Reason: fmt.Sprintf("expands to more than %d hosts", MaxRange)}
		}
	}

	out := []string{""}
	for _, seg := range segs {
		if !seg.isGroup() {
			for i := range out {
				out[i] += seg.text
			}
			continue
		}
		next := make([]string, 0, len(out)*groupSize(seg.bounds))
		for _, prefix := range out {
			for _, b := range seg.bounds {
				for n := b.lo; n <= b.hi; n++ {
					next = append(next, prefix+formatNum(n, b.width))
				}
			}
		}
		out = next
	}
	return out, nil
}

func groupSize(bounds []bound) int {
	n := 0
	for _, b := range bounds {
		n += int(b.hi - b.lo + 1)
	}
	return n
}

func splitSegments(s string, start, end int) ([]segment, error) {
	var segs []segment
	i := start
	for i < end {
		open := strings.IndexByte(s[i:end], '[')
		if open < 0 {
			segs = append(segs, segment{text: s[i:end]})
			break
		}
		open += i
		if open > i {
			segs = append(segs, segment{text: s[i:open]})
		}
		rb := open + strings.IndexByte(s[open:end], ']')
		bounds, err := parseGroup(s, open+1, rb)
		if err != nil {
			return nil, err
		}
		segs = append(segs, segment{bounds: bounds})
		i = rb + 1
	}
	return segs, nil
}

// parseGroup parses the body of a bracket group, s[start:end].
func parseGroup(s string, start, end int) ([]bound, error) {
	if start == end {
		return nil, &ParseError{Input: s, Pos: start, Reason: "empty brackets"}
	}
	var bounds []bound
	pos := start
	for _, elem := range strings.Split(s[start:end], ",") {
		b, err := parseBound(elem)
		if err != nil {
			return nil, &ParseError{Input: s, Pos: pos, Reason: err.Error()}
		}
		bounds = append(bounds, b)
		pos += len(elem) + 1
	}
	return bounds, nil
}

func parseBound(elem string) (bound, error) {
	elem = strings.TrimSpace(elem)
	loStr, hiStr, isRange := strings.Cut(elem, "-")
	if !isRange {
		hiStr = loStr
	}
	if !isDigits(loStr) || !isDigits(hiStr) {
		return bound{}, fmt.Errorf("invalid range %q", elem)
	}
	lo, err := strconv.ParseUint(loStr, 10, 64)
	if err != nil {
		return bound{}, fmt.Errorf("invalid range %q: %w", elem, err)
	}
	hi, err := strconv.ParseUint(hiStr, 10, 64)
	if err != nil {
		return bound{}, fmt.Errorf("invalid range %q: %w", elem, err)
	}
	if hi < lo {
		return bound{}, fmt.Errorf("reversed range %q", elem)
	}
	if hi-lo >= uint64(MaxRange) {
		return bound{}, fmt.Errorf("range %q expands to more than %d hosts", elem, MaxRange)
	}
	b := bound{lo: lo, hi: hi}
	if len(loStr) > 1 && loStr[0] == '0' {
		b.width = len(loStr)
	}
	return b, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func formatNum(n uint64, width int) string {
	digits := strconv.FormatUint(n, 10)
	if len(digits) < width {
		digits = strings.Repeat("0", width-len(digits)) + digits
	}
	return digits
}
