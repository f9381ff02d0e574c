package discover

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEnumerate(t *testing.T) {
	tests := []struct {
		name string
		cidr string
		want []string
	}{
		{"single host", "10.0.0.5/32", []string{"10.0.0.5"}},
		{"point to point", "10.0.0.0/31", []string{"10.0.0.0", "10.0.0.1"}},
		{"skips network and broadcast", "10.0.0.0/30", []string{"10.0.0.1", "10.0.0.2"}},
		{"unaligned address", "192.168.1.77/29", []string{
			"192.168.1.73", "192.168.1.74", "192.168.1.75",
			"192.168.1.76", "192.168.1.77", "192.168.1.78",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Enumerate(tt.cidr)
			if err != nil {
				t.Fatalf("Enumerate(%q) error: %v", tt.cidr, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Enumerate(%q) mismatch (-want +got):\n%s", tt.cidr, diff)
			}
		})
	}
}

func TestEnumerateSize(t *testing.T) {
	got, err := Enumerate("172.16.0.0/24")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 254 {
		t.Errorf("len = %d, want 254", len(got))
	}
	if got[0] != "172.16.0.1" || got[len(got)-1] != "172.16.0.254" {
		t.Errorf("range = %s..%s, want 172.16.0.1..172.16.0.254", got[0], got[len(got)-1])
	}
}

func TestEnumerateInvalid(t *testing.T) {
	tests := []struct {
		name string
		cidr string
	}{
		{"garbage string", "not-a-cidr"},
		{"missing prefix", "192.168.1.1"},
		{"invalid octets", "999.999.999.999/24"},
		{"ipv6", "2001:db8::/120"},
		{"too large", "10.0.0.0/8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosts, err := Enumerate(tt.cidr)
			if err == nil {
				t.Errorf("expected error for CIDR %q, got nil (hosts: %v)", tt.cidr, hosts)
			}
			if hosts != nil {
				t.Errorf("expected nil hosts on error, got %v", hosts)
			}
		})
	}
}

func listen(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a port that had a listener a moment ago.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestProbe(t *testing.T) {
	port := listen(t)
	got := Probe(context.Background(), []string{"127.0.0.1", "127.0.0.1"}, port, 2, 2*time.Second)
	if diff := cmp.Diff([]string{"127.0.0.1", "127.0.0.1"}, got); diff != "" {
		t.Errorf("Probe mismatch (-want +got):\n%s", diff)
	}
}

func TestProbeClosedPort(t *testing.T) {
	port := closedPort(t)
	got := Probe(context.Background(), []string{"127.0.0.1"}, port, 1, 200*time.Millisecond)
	if len(got) != 0 {
		t.Errorf("expected no hosts, got %v", got)
	}
}

func TestProbeContextCancel(t *testing.T) {
	port := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Probe(ctx, []string{"127.0.0.1", "127.0.0.1"}, port, 1, time.Second)
	if len(got) != 0 {
		t.Errorf("expected no hosts after cancellation, got %v", got)
	}
}
