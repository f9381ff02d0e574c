package selector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/hostlist"
)

func newState(t *testing.T) *State {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Groups["web"] = config.Group{Hosts: []string{"web[1-3]"}}
	cfg.Groups["db"] = config.Group{Hosts: []string{"db[1-2]", "web3"}}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func assertHosts(t *testing.T, got *hostlist.HostList, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, got.Hosts()); diff != "" {
		t.Errorf("hosts mismatch (-want +got):\n%s", diff)
	}
}

func TestArgPassesThroughExpressions(t *testing.T) {
	s := newState(t)
	got, err := s.Arg("node[1-4]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "node[1-4]" {
		t.Errorf("Arg = %v, want the raw expression", got)
	}
}

func TestArgGroup(t *testing.T) {
	s := newState(t)
	got, err := s.Arg("@web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hl, ok := got.(*hostlist.HostList)
	if !ok {
		t.Fatalf("Arg(@web) = %T, want *hostlist.HostList", got)
	}
	assertHosts(t, hl, []string{"web1", "web2", "web3"})

	again, _ := s.Arg("@web")
	if again != got {
		t.Error("repeated lookups should return the same handle")
	}
}

func TestArgAll(t *testing.T) {
	s := newState(t)
	got, err := s.Arg("@all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertHosts(t, got.(*hostlist.HostList), []string{"db1", "db2", "web1", "web2", "web3"})
}

func TestChangedGroupRebuildsAll(t *testing.T) {
	s := newState(t)
	all, _ := s.Lookup("all")
	web, _ := s.Lookup("web")

	web.PushHost("web9")
	s.Changed(web)

	if !all.Released() {
		t.Error("stale @all should be released")
	}
	rebuilt, _ := s.Lookup("all")
	if rebuilt.Find("web9") < 0 {
		t.Errorf("@all = %v, want web9 included", rebuilt.Hosts())
	}
}

func TestArgGlob(t *testing.T) {
	s := newState(t)
	got, err := s.Arg("@web*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "web[1-3]" {
		t.Errorf("Arg(@web*) = %v, want %q", got, "web[1-3]")
	}

	if _, err := s.Arg("@zzz*"); err == nil {
		t.Error("expected error when no hosts match")
	}
	if _, err := s.Arg("@[bad"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestArgUnknown(t *testing.T) {
	s := newState(t)
	_, err := s.Arg("@nope")
	if err == nil {
		t.Fatal("expected error for unknown selector")
	}
	if !strings.Contains(err.Error(), "[all db web]") {
		t.Errorf("error %q should list available names", err)
	}

	if _, err := s.Arg("@"); err == nil {
		t.Error("expected error for empty selector")
	}
}

func TestArgs(t *testing.T) {
	s := newState(t)
	args, err := s.Args([]string{"@db", "x[1-2]"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("len(args) = %d, want 2", len(args))
	}
	if _, ok := args[0].(*hostlist.HostList); !ok {
		t.Errorf("args[0] = %T, want *hostlist.HostList", args[0])
	}
	if args[1] != "x[1-2]" {
		t.Errorf("args[1] = %v, want %q", args[1], "x[1-2]")
	}

	if _, err := s.Args([]string{"a", "@missing"}); err == nil {
		t.Error("expected error for unknown selector")
	}
}

func TestSetAndDrop(t *testing.T) {
	s := newState(t)
	first := hostlist.FromHosts("a")
	if err := s.Set("mine", first); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, ok := s.Lookup("mine")
	if !ok || got != first {
		t.Fatal("variable not stored")
	}
	if !s.Owns(first) {
		t.Error("Owns(first) = false, want true")
	}

	second := hostlist.FromHosts("b")
	if err := s.Set("mine", second); err != nil {
		t.Fatalf("Set() replace error: %v", err)
	}
	if !first.Released() {
		t.Error("replaced value should be released")
	}

	// Setting the same list again must not release it.
	if err := s.Set("mine", second); err != nil {
		t.Fatal(err)
	}
	if second.Released() {
		t.Error("re-set value was released")
	}

	if diff := cmp.Diff([]string{"mine"}, s.VarNames()); diff != "" {
		t.Errorf("VarNames mismatch (-want +got):\n%s", diff)
	}

	if err := s.Drop("mine"); err != nil {
		t.Fatalf("Drop() error: %v", err)
	}
	if !second.Released() {
		t.Error("dropped value should be released")
	}
	if err := s.Drop("mine"); err == nil {
		t.Error("expected error dropping unknown variable")
	}
}

func TestSetRejectsReservedNames(t *testing.T) {
	s := newState(t)
	for _, name := range []string{"all", "web", "bad name", ""} {
		hl := hostlist.New()
		if err := s.Set(name, hl); err == nil {
			t.Errorf("Set(%q) should fail", name)
		}
		hl.Release()
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Groups["web"] = config.Group{Hosts: []string{"web1"}}
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	web, _ := s.Lookup("web")
	all, _ := s.Lookup("all")
	v := hostlist.FromHosts("x")
	if err := s.Set("v", v); err != nil {
		t.Fatal(err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	for name, hl := range map[string]*hostlist.HostList{"web": web, "all": all, "v": v} {
		if !hl.Released() {
			t.Errorf("%s not released by Close", name)
		}
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestSSHGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssh_config")
	content := "Host jump\n    User ops\n\nHost *\n    ForwardAgent no\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.SSHConfig = path
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Close()

	got, err := s.Arg("@ssh")
	if err != nil {
		t.Fatalf("Arg(@ssh) error: %v", err)
	}
	assertHosts(t, got.(*hostlist.HostList), []string{"jump"})
}

func TestNewBadSSHConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SSHConfig = filepath.Join(t.TempDir(), "missing")
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing ssh_config")
	}
}
