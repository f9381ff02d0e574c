package eval

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"text/template"

	"github.com/agent462/hostlist/internal/setalg"
)

// MapRules describe the per-host transform used by the map operation.
// Steps run in order: match, extract, ssh lookup, format. A host that fails
// match or extract is dropped.
type MapRules struct {
	Match   string // glob the host name must match
	Extract string // regex; the first capture group, or the whole match, becomes the value
	SSHKey  string // ssh_config keyword looked up for the host, e.g. HostName
	Format  string // text/template over .Host, .Value and .Index
}

// formatData is the template input for MapRules.Format.
type formatData struct {
	Host  string
	Value string
	Index int // 1-based position among emitted hosts
}

// Compile validates the rules and returns the transform. lookup resolves
// ssh_config keywords and may be nil when SSHKey is empty.
func (r MapRules) Compile(lookup func(host, key string) string) (setalg.Transform, error) {
	if r.Match != "" {
		if _, err := path.Match(r.Match, ""); err != nil {
			return nil, fmt.Errorf("invalid match pattern %q: %w", r.Match, err)
		}
	}

	var re *regexp.Regexp
	if r.Extract != "" {
		var err error
		re, err = regexp.Compile(r.Extract)
		if err != nil {
			return nil, fmt.Errorf("invalid extract regex %q: %w", r.Extract, err)
		}
	}

	if r.SSHKey != "" && lookup == nil {
		return nil, fmt.Errorf("ssh lookup of %q requested without a resolver", r.SSHKey)
	}

	var tmpl *template.Template
	if r.Format != "" {
		var err error
		tmpl, err = template.New("map").Option("missingkey=error").Parse(r.Format)
		if err != nil {
			return nil, fmt.Errorf("invalid format template: %w", err)
		}
	}

	if r.Match == "" && re == nil && r.SSHKey == "" && tmpl == nil {
		return setalg.Identity, nil
	}

	emitted := 0
	return func(host string) (string, bool, error) {
		if r.Match != "" {
			if ok, _ := path.Match(r.Match, host); !ok {
				return "", false, nil
			}
		}

		value := host
		if re != nil {
			m := re.FindStringSubmatch(host)
			switch {
			case m == nil:
				return "", false, nil
			case len(m) >= 2:
				value = m[1]
			default:
				value = m[0]
			}
		}

		if r.SSHKey != "" {
			if v := lookup(host, r.SSHKey); v != "" {
				value = v
			}
		}

		emitted++
		if tmpl == nil {
			return value, true, nil
		}
		var sb strings.Builder
		if err := tmpl.Execute(&sb, formatData{Host: host, Value: value, Index: emitted}); err != nil {
			return "", false, err
		}
		return sb.String(), true, nil
	}, nil
}
