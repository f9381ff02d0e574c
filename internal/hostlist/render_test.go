package hostlist

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		hosts []string
		want  string
	}{
		{"empty", nil, ""},
		{"single numbered", []string{"node1"}, "node1"},
		{"single literal", []string{"login"}, "login"},
		{"run with gap", []string{"node1", "node2", "node3", "node5"}, "node[1-3,5]"},
		{"zero padded", []string{"node01", "node02", "node03"}, "node[01-03]"},
		{"padded width carries", []string{"node08", "node09", "node10"}, "node[08-10]"},
		{"natural across widths", []string{"node9", "node10", "node11"}, "node[9-11]"},
		{"list order kept", []string{"node3", "node1", "node2"}, "node[3,1-2]"},
		{"mixed prefixes", []string{"login", "node1", "node2", "login2"}, "login,node[1-2],login2"},
		{"interleaved prefixes", []string{"a1", "b1", "a2"}, "a1,b1,a2"},
		{"duplicates", []string{"n1", "n1"}, "n[1,1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hl := FromHosts(tt.hosts...)
			if got := hl.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"node[1-3,5]",
		"node[01-03],login",
		"rack[1-2]-n[1-2]",
		"node[8-10]-ib",
		"n[1-2],n[1-2]",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			hl, err := Parse(in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", in, err)
			}
			back, err := Parse(hl.String())
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", hl.String(), err)
			}
			want, got := hl.Hosts(), back.Hosts()
			if len(want) != len(got) {
				t.Fatalf("round trip of %q: %d hosts, want %d", in, len(got), len(want))
			}
			for i := range want {
				if want[i] != got[i] {
					t.Errorf("host %d = %q, want %q", i, got[i], want[i])
				}
			}
		})
	}
}

func TestRangedStringTruncates(t *testing.T) {
	hl := FromHosts("node1", "login", "node3")

	got, truncated := hl.RangedString(12)
	if !truncated {
		t.Fatal("truncated = false, want true")
	}
	if got != "node1,login+" {
		t.Errorf("RangedString(12) = %q, want %q", got, "node1,login+")
	}

	got, truncated = hl.RangedString(100)
	if truncated {
		t.Error("truncated = true for roomy limit")
	}
	if got != "node1,login,node3" {
		t.Errorf("RangedString(100) = %q, want %q", got, "node1,login,node3")
	}
}
