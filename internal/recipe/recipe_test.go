package recipe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/eval"
	"github.com/agent462/hostlist/internal/selector"
	"github.com/agent462/hostlist/internal/setalg"
)

func newRunner(t *testing.T) (*Runner, *selector.State) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Groups["web"] = config.Group{Hosts: []string{"web[1-4]"}}
	cfg.Groups["db"] = config.Group{Hosts: []string{"db[1-2]"}}
	state, err := selector.New(cfg)
	if err != nil {
		t.Fatalf("selector.New() error: %v", err)
	}
	t.Cleanup(func() { state.Close() })
	return New(eval.New(setalg.New(), state)), state
}

// --- ParseStep tests ---

func TestParseStep(t *testing.T) {
	tests := []struct {
		raw  string
		want Step
	}{
		{"count @web", Step{Line: "count @web"}},
		{"  string x1  ", Step{Line: "string x1"}},
		{"up = cidr 10.0.0.0/30", Step{Assign: "up", Line: "cidr 10.0.0.0/30"}},
		{"up=new a1", Step{Assign: "up", Line: "new a1"}},
		{"map --format 'a=b' @web", Step{Line: "map --format 'a=b' @web"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseStep(tt.raw)); diff != "" {
				t.Errorf("ParseStep mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSteps(t *testing.T) {
	got := Steps(config.Recipe{Steps: []string{"x = new a1", "count @x"}})
	want := []Step{{Assign: "x", Line: "new a1"}, {Line: "count @x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Steps mismatch (-want +got):\n%s", diff)
	}
}

// --- expand tests ---

func TestExpand(t *testing.T) {
	tests := []struct {
		line string
		args []string
		want []string
	}{
		{"union $1 $2", []string{"a1", "@web"}, []string{"union", "a1", "@web"}},
		{"union $@", []string{"a1", "b1"}, []string{"union", "a1", "b1"}},
		{"new n$1", []string{"[1-3]"}, []string{"new", "n[1-3]"}},
		{"new pre,$@", []string{"a", "b"}, []string{"new", "pre,a,b"}},
		{"count @web", nil, []string{"count", "@web"}},
		{"union $@", nil, []string{"union"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := expand(tt.line, tt.args)
			if err != nil {
				t.Fatalf("expand error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("expand mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandMissingParameter(t *testing.T) {
	for _, line := range []string{"count $2", "count $0", "count 'x"} {
		if _, err := expand(line, []string{"a"}); err == nil {
			t.Errorf("expand(%q) should fail", line)
		}
	}
}

// --- Run tests ---

func TestRun_BasicExecution(t *testing.T) {
	r, _ := newRunner(t)
	steps := []Step{
		{Line: "count @all"},
		{Line: "string @web"},
	}

	results, err := r.Run(context.Background(), steps, nil)
	defer ReleaseAll(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(results))
	}
	if results[0].Result.Number != 6 {
		t.Errorf("step 1 count = %d, want 6", results[0].Result.Number)
	}
	if results[1].Result.Text != "web[1-4]" {
		t.Errorf("step 2 text = %q, want %q", results[1].Result.Text, "web[1-4]")
	}
}

func TestRun_AssignmentPropagates(t *testing.T) {
	r, state := newRunner(t)
	steps := Steps(config.Recipe{Steps: []string{
		"block = new web[3-6]",
		"spare = subtract @block @web",
		"count @spare",
	}})

	results, err := r.Run(context.Background(), steps, nil)
	defer ReleaseAll(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := results[2].Result.Number; got != 2 {
		t.Errorf("count @spare = %d, want 2", got)
	}
	spare, ok := state.Lookup("spare")
	if !ok {
		t.Fatal("@spare not stored")
	}
	if diff := cmp.Diff([]string{"web5", "web6"}, spare.Hosts()); diff != "" {
		t.Errorf("@spare mismatch (-want +got):\n%s", diff)
	}
	if results[1].Result.Owned {
		t.Error("assigned result should be borrowed from the state")
	}
}

func TestRun_AssignBorrowedCopies(t *testing.T) {
	r, state := newRunner(t)
	results, err := r.Run(context.Background(), []Step{{Assign: "sorted", Line: "sort @web"}}, nil)
	defer ReleaseAll(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	web, _ := state.Lookup("web")
	sorted, _ := state.Lookup("sorted")
	if web == sorted {
		t.Error("variable must not alias the group")
	}
}

func TestRun_AssignHosts(t *testing.T) {
	r, state := newRunner(t)
	results, err := r.Run(context.Background(), []Step{{Assign: "fq", Line: "map --format {{.Host}}.lan @db"}}, nil)
	defer ReleaseAll(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fq, _ := state.Lookup("fq")
	if diff := cmp.Diff([]string{"db1.lan", "db2.lan"}, fq.Hosts()); diff != "" {
		t.Errorf("@fq mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Arguments(t *testing.T) {
	r, _ := newRunner(t)
	rec := BuiltinRecipes()["overlap"]

	results, err := r.Run(context.Background(), Steps(rec), []string{"@web", "web[3-9]"})
	defer ReleaseAll(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := results[1].Result.Text; got != "web[3-4]" {
		t.Errorf("string @both = %q, want %q", got, "web[3-4]")
	}
	if got := results[2].Result.Number; got != 2 {
		t.Errorf("count @both = %d, want 2", got)
	}
}

func TestRun_StopsAtFailure(t *testing.T) {
	r, _ := newRunner(t)
	steps := []Step{
		{Line: "count @web"},
		{Line: "count @missing"},
		{Line: "count @db"},
	}

	results, err := r.Run(context.Background(), steps, nil)
	defer ReleaseAll(results)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "step 2") {
		t.Errorf("error %q should name the failing step", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result before failure, got %d", len(results))
	}
}

func TestRun_RejectsBadAssignments(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{"non-list result", Step{Assign: "n", Line: "count @web"}},
		{"shadows group", Step{Assign: "db", Line: "new x1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRunner(t)
			results, err := r.Run(context.Background(), []Step{tt.step}, nil)
			defer ReleaseAll(results)
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	r, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.Run(ctx, []Step{{Line: "count @web"}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
