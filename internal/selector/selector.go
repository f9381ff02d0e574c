// Package selector maps @name tokens to host lists: configured groups, the
// union of all groups, hosts imported from ssh_config, and variables stored
// during a REPL session. A State owns every list it hands out.
package selector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/hostlist"
)

const allName = "all"

var varNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// State holds the named host lists that @name tokens resolve to.
type State struct {
	groups map[string]*hostlist.HostList
	vars   map[string]*hostlist.HostList
	all    *hostlist.HostList // built on first use
	logger *slog.Logger
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.logger = l }
}

// New builds a State from cfg. Every group is expanded up front so a bad
// expression fails here rather than mid-session. When cfg names an
// ssh_config file its literal hosts become the "ssh" group.
func New(cfg *config.Config, opts ...Option) (*State, error) {
	s := &State{
		groups: make(map[string]*hostlist.HostList),
		vars:   make(map[string]*hostlist.HostList),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range config.GroupNames(cfg) {
		hl, err := config.GroupList(cfg, name)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.groups[name] = hl
	}

	if cfg.SSHConfig != "" {
		hosts, err := config.SSHHosts(cfg.SSHConfig)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.groups[config.SSHGroup] = hostlist.FromHosts(hosts...)
		s.logger.Debug("imported ssh_config hosts", "path", cfg.SSHConfig, "hosts", len(hosts))
	}

	return s, nil
}

// Arg converts a command-line token into an argument for the set-algebra
// engine. "@name" yields the borrowed list for that name; a glob such as
// "@web*" yields the range string of matching hosts from @all. Any other
// token is returned unchanged as a range expression.
func (s *State) Arg(token string) (any, error) {
	if !strings.HasPrefix(token, "@") {
		return token, nil
	}
	name := token[1:]
	if name == "" {
		return nil, fmt.Errorf("empty selector %q", token)
	}
	if hl, ok := s.Lookup(name); ok {
		return hl, nil
	}
	if strings.ContainsAny(name, "*?[") {
		return s.match(name)
	}
	return nil, fmt.Errorf("unknown selector %q (available: %v)", token, s.Names())
}

// Args converts every token with Arg.
func (s *State) Args(tokens []string) ([]any, error) {
	out := make([]any, len(tokens))
	for i, tok := range tokens {
		a, err := s.Arg(tok)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// Lookup returns the list bound to name, if any. The list stays owned by
// the State.
func (s *State) Lookup(name string) (*hostlist.HostList, bool) {
	if name == allName {
		return s.allHosts(), true
	}
	if hl, ok := s.vars[name]; ok {
		return hl, true
	}
	hl, ok := s.groups[name]
	return hl, ok
}

func (s *State) allHosts() *hostlist.HostList {
	if s.all == nil {
		s.all = hostlist.New()
		for _, name := range s.GroupNames() {
			s.all.PushList(s.groups[name])
		}
		s.all.Uniq()
		s.logger.Debug("built @all", "groups", len(s.groups), "hosts", s.all.Count())
	}
	return s.all
}

// Changed records that hl was modified in place. Modifying a group discards
// the cached @all so it is rebuilt on next use.
func (s *State) Changed(hl *hostlist.HostList) {
	if s.all == nil || hl == s.all {
		return
	}
	for _, g := range s.groups {
		if g == hl {
			if err := s.all.Release(); err == nil {
				s.all = nil
			}
			return
		}
	}
}

// match renders the hosts of @all that match pattern as a range string.
func (s *State) match(pattern string) (string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	matched := hostlist.New()
	defer matched.Release()
	for h := range s.allHosts().All() {
		if ok, _ := path.Match(pattern, h); ok {
			matched.PushHost(h)
		}
	}
	if matched.Count() == 0 {
		return "", fmt.Errorf("no hosts match @%s", pattern)
	}
	return matched.String(), nil
}

// Set stores hl as variable name, taking ownership of it. A previous value
// under the same name is released.
func (s *State) Set(name string, hl *hostlist.HostList) error {
	if !varNameRe.MatchString(name) {
		return fmt.Errorf("variable name %q must match [a-zA-Z0-9_-]+", name)
	}
	if name == allName {
		return fmt.Errorf("variable name %q is reserved", name)
	}
	if _, ok := s.groups[name]; ok {
		return fmt.Errorf("variable %q would shadow a group", name)
	}
	if old, ok := s.vars[name]; ok && old != hl {
		if err := old.Release(); err != nil {
			return fmt.Errorf("replacing @%s: %w", name, err)
		}
	}
	s.vars[name] = hl
	return nil
}

// Drop releases and forgets variable name.
func (s *State) Drop(name string) error {
	hl, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("no variable named %q", name)
	}
	if err := hl.Release(); err != nil {
		return fmt.Errorf("dropping @%s: %w", name, err)
	}
	delete(s.vars, name)
	return nil
}

// Owns reports whether hl is one of the lists held by the State.
func (s *State) Owns(hl *hostlist.HostList) bool {
	if hl == nil {
		return false
	}
	if hl == s.all {
		return true
	}
	for _, v := range s.vars {
		if v == hl {
			return true
		}
	}
	for _, g := range s.groups {
		if g == hl {
			return true
		}
	}
	return false
}

// GroupNames returns the group names in sorted order.
func (s *State) GroupNames() []string {
	return sortedKeys(s.groups)
}

// VarNames returns the variable names in sorted order.
func (s *State) VarNames() []string {
	return sortedKeys(s.vars)
}

// Names returns every name an @ token can resolve to.
func (s *State) Names() []string {
	names := append([]string{allName}, s.GroupNames()...)
	return append(names, s.VarNames()...)
}

// Close releases every list the State owns.
func (s *State) Close() error {
	var errs []error
	release := func(hl *hostlist.HostList) {
		if err := hl.Release(); err != nil && !errors.Is(err, hostlist.ErrReleased) {
			errs = append(errs, err)
		}
	}
	for _, hl := range s.vars {
		release(hl)
	}
	for _, hl := range s.groups {
		release(hl)
	}
	if s.all != nil {
		release(s.all)
	}
	clear(s.vars)
	clear(s.groups)
	s.all = nil
	return errors.Join(errs...)
}

func sortedKeys(m map[string]*hostlist.HostList) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
