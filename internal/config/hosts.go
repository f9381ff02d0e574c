package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/pathutil"
)

// GroupList builds a new host list from the named group's range
// expressions, in the order they are listed. The caller owns the result.
func GroupList(cfg *Config, name string) (*hostlist.HostList, error) {
	group, ok := cfg.Groups[name]
	if !ok {
		available := GroupNames(cfg)
		if len(available) == 0 {
			return nil, fmt.Errorf("group %q not found (no groups defined)", name)
		}
		return nil, fmt.Errorf("group %q not found (available: %v)", name, available)
	}

	hl := hostlist.New()
	for _, expr := range group.Hosts {
		if err := hl.Push(expr); err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
	}
	return hl, nil
}

// GroupNames returns the configured group names in sorted order.
func GroupNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.Groups))
	for name := range cfg.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SSHHosts returns the literal host names declared by Host lines in an
// ssh_config file, in file order. Wildcard and negated patterns are skipped
// since they do not name a single host.
func SSHHosts(path string) ([]string, error) {
	f, err := os.Open(pathutil.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("opening ssh config: %w", err)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh config: %w", err)
	}

	seen := make(map[string]bool)
	var hosts []string
	for _, h := range cfg.Hosts {
		for _, p := range h.Patterns {
			name := p.String()
			// Negated patterns never match their own text.
			if name == "" || strings.ContainsAny(name, "*?!") || !h.Matches(name) || seen[name] {
				continue
			}
			seen[name] = true
			hosts = append(hosts, name)
		}
	}
	return hosts, nil
}

// SSHLookup returns the value of key for host from the user's SSH config,
// or "" when it is not set.
func SSHLookup(host, key string) string {
	val, err := ssh_config.GetStrict(host, key)
	if err != nil {
		return ""
	}
	return val
}
