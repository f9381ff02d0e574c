// Package discover turns IPv4 CIDR blocks into host lists and narrows them
// to hosts answering on a TCP port.
package discover

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxHosts caps how many addresses Enumerate will produce.
const MaxHosts = 1 << 16

// Enumerate returns the usable addresses of an IPv4 CIDR block in ascending
// order.
func Enumerate(cidr string) ([]string, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	if network.IP.To4() == nil {
		return nil, fmt.Errorf("invalid CIDR %q: only IPv4 is supported", cidr)
	}
	if ones, _ := network.Mask.Size(); ones < 32-16 {
		return nil, fmt.Errorf("CIDR %q is larger than %d hosts", cidr, MaxHosts)
	}

	ips := EnumerateHosts(network)
	hosts := make([]string, len(ips))
	for i, ip := range ips {
		hosts[i] = ip.String()
	}
	return hosts, nil
}

// EnumerateHosts returns all usable host IPs in the given network.
// For IPv4 networks larger than /31, it skips the network address
// (all host bits 0) and the broadcast address (all host bits 1).
func EnumerateHosts(network *net.IPNet) []net.IP {
	ip := network.IP.To4()
	if ip == nil {
		return nil
	}
	ones, bits := network.Mask.Size()
	if bits != 32 {
		return nil
	}

	start := binary.BigEndian.Uint32(ip)
	size := uint32(1) << uint(bits-ones)
	first, last := uint32(0), size
	// /31 is a point-to-point link and both addresses are usable (RFC 3021).
	if ones < 31 {
		first, last = 1, size-1
	}

	hosts := make([]net.IP, 0, last-first)
	for i := first; i < last; i++ {
		addr := make(net.IP, 4)
		binary.BigEndian.PutUint32(addr, start+i)
		hosts = append(hosts, addr)
	}
	return hosts
}

// Probe returns the hosts that accept a TCP connection on port within
// timeout, keeping their input order. At most concurrency dials run at once.
// Cancelling ctx stops new dials; hosts not yet dialled are dropped.
func Probe(ctx context.Context, hosts []string, port, concurrency int, timeout time.Duration) []string {
	if concurrency < 1 {
		concurrency = 1
	}
	open := make([]bool, len(hosts))
	dialer := net.Dialer{Timeout: timeout}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err != nil {
				return nil
			}
			conn.Close()
			open[i] = true
			return nil
		})
	}
	g.Wait()

	var up []string
	for i, ok := range open {
		if ok {
			up = append(up, hosts[i])
		}
	}
	return up
}
