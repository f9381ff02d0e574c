package hostlist

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "login", []string{"login"}},
		{"range with list", "node[1-3,5]", []string{"node1", "node2", "node3", "node5"}},
		{"comma and space separated", "a,b c", []string{"a", "b", "c"}},
		{"zero padded", "node[01-03]", []string{"node01", "node02", "node03"}},
		{"padded across width", "node[08-10]", []string{"node08", "node09", "node10"}},
		{"suffix after range", "node[8-10]-ib", []string{"node8-ib", "node9-ib", "node10-ib"}},
		{"two groups", "rack[1-2]-n[1-2]", []string{"rack1-n1", "rack1-n2", "rack2-n1", "rack2-n2"}},
		{"duplicates kept", "n[1-2],n[1-2]", []string{"n1", "n2", "n1", "n2"}},
		{"digits only", "[1-3]", []string{"1", "2", "3"}},
		{"trailing separator", "a,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hl, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, hl.Hosts(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
			if hl.Count() != len(tt.want) {
				t.Errorf("Count() = %d, want %d", hl.Count(), len(tt.want))
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"node[1-3",
		"node1-3]",
		"node[[1]]",
		"node[]",
		"node[3-1]",
		"node[a-b]",
		"node[1,,2]",
		"node[1-100000]",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", in)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse(%q) error type = %T, want *ParseError", in, err)
			}
			if pe.Input != in {
				t.Errorf("ParseError.Input = %q, want %q", pe.Input, in)
			}
		})
	}
}

func TestParseProductTooLarge(t *testing.T) {
	old := MaxRange
	MaxRange = 10
	defer func() { MaxRange = old }()

	if _, err := Parse("r[1-4]n[1-4]"); err == nil {
		t.Fatal("expected error for 16 hosts with MaxRange 10")
	}
	if _, err := Parse("r[1-2]n[1-4]"); err != nil {
		t.Fatalf("unexpected error for 8 hosts: %v", err)
	}
}

func TestPushLeavesListOnError(t *testing.T) {
	hl := FromHosts("a")
	if err := hl.Push("b[1-"); err == nil {
		t.Fatal("expected error")
	}
	if hl.Count() != 1 {
		t.Errorf("Count() = %d after failed push, want 1", hl.Count())
	}
	if err := hl.Push("b[1-2]"); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b1", "b2"}, hl.Hosts()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPushListSelf(t *testing.T) {
	hl := FromHosts("a", "b")
	hl.PushList(hl)
	if diff := cmp.Diff([]string{"a", "b", "a", "b"}, hl.Hosts()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFindAndDeleteHost(t *testing.T) {
	hl := FromHosts("x", "y", "x", "z", "x")
	if got := hl.Find("x"); got != 0 {
		t.Errorf("Find(x) = %d, want 0", got)
	}
	if got := hl.Find("z"); got != 3 {
		t.Errorf("Find(z) = %d, want 3", got)
	}
	if got := hl.Find("nope"); got != -1 {
		t.Errorf("Find(nope) = %d, want -1", got)
	}

	if !hl.DeleteHost("x") {
		t.Fatal("DeleteHost(x) = false, want true")
	}
	if diff := cmp.Diff([]string{"y", "x", "z", "x"}, hl.Hosts()); diff != "" {
		t.Errorf("after one delete (-want +got):\n%s", diff)
	}
	if hl.DeleteHost("nope") {
		t.Error("DeleteHost(nope) = true, want false")
	}
}

func TestNthAndPop(t *testing.T) {
	hl := FromHosts("a", "b", "c")
	if h, ok := hl.Nth(1); !ok || h != "b" {
		t.Errorf("Nth(1) = %q, %v, want \"b\", true", h, ok)
	}
	if _, ok := hl.Nth(3); ok {
		t.Error("Nth(3) ok = true, want false")
	}
	if _, ok := hl.Nth(-1); ok {
		t.Error("Nth(-1) ok = true, want false")
	}

	hl.PushHost("d")
	if h, ok := hl.Pop(); !ok || h != "d" {
		t.Errorf("Pop() = %q, %v, want \"d\", true", h, ok)
	}
	if hl.Count() != 3 {
		t.Errorf("Count() = %d, want 3", hl.Count())
	}

	empty := New()
	if _, ok := empty.Pop(); ok {
		t.Error("Pop() on empty list ok = true, want false")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	hl := FromHosts("a", "b")
	cp := hl.Copy()
	cp.PushHost("c")
	hl.DeleteHost("a")
	if diff := cmp.Diff([]string{"b"}, hl.Hosts()); diff != "" {
		t.Errorf("source (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, cp.Hosts()); diff != "" {
		t.Errorf("copy (-want +got):\n%s", diff)
	}
}

func TestRelease(t *testing.T) {
	hl := FromHosts("a")
	if err := hl.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if !hl.Released() {
		t.Error("Released() = false after Release")
	}
	if hl.Count() != 0 {
		t.Errorf("Count() = %d after Release, want 0", hl.Count())
	}
	if err := hl.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release error = %v, want ErrReleased", err)
	}
}

func TestReleaseWithOpenIterator(t *testing.T) {
	hl := FromHosts("a", "b")
	it := hl.Iterator()
	if err := hl.Release(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Release with open iterator error = %v, want ErrBusy", err)
	}
	if hl.Released() {
		t.Fatal("list marked released despite ErrBusy")
	}
	it.Close()
	if err := hl.Release(); err != nil {
		t.Fatalf("Release after Close error: %v", err)
	}
}

func TestSort(t *testing.T) {
	hl := FromHosts("node10", "node2", "login", "node1", "node01", "rack10", "rack2", "node")
	hl.Sort()
	want := []string{"login", "node", "node1", "node01", "node2", "node10", "rack2", "rack10"}
	if diff := cmp.Diff(want, hl.Hosts()); diff != "" {
		t.Errorf("Sort mismatch (-want +got):\n%s", diff)
	}
}

func TestUniq(t *testing.T) {
	hl := FromHosts("b", "a", "b", "a1", "a1")
	hl.Uniq()
	if diff := cmp.Diff([]string{"a", "a1", "b"}, hl.Hosts()); diff != "" {
		t.Errorf("Uniq mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"node1", "node1", 0},
		{"node2", "node10", -1},
		{"node10", "node2", 1},
		{"node1", "node01", -1},
		{"rack2n1", "rack10n1", -1},
		{"a", "a1", -1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
