package a2s

import (
	"context"
	"fmt"
	"net"
)

// Resolver translates a hostname to its IPv4 addresses. It is consumed,
// not implemented, by the dispatcher — callers may substitute a cache,
// a static hosts table, or a test double. DefaultResolver wraps
// net.DefaultResolver.
type Resolver interface {
	Resolve(ctx context.Context, host string) ([]net.IP, error)
}

// DefaultResolver resolves hostnames with the standard library's DNS
// resolver, keeping only IPv4 results: the protocol as specified here
// operates over IPv4 UDP only (see spec.md §1 Non-goals).
type DefaultResolver struct {
	Resolver *net.Resolver
}

// NewDefaultResolver returns a DefaultResolver backed by net.DefaultResolver.
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{Resolver: net.DefaultResolver}
}

// Resolve looks up host and returns its IPv4 addresses, in the order the
// underlying resolver returned them.
func (d *DefaultResolver) Resolve(ctx context.Context, host string) ([]net.IP, error) {
	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	// A literal dotted-quad doesn't need a DNS round trip.
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return []net.IP{ip4}, nil
		}
		return nil, fmt.Errorf("%w: %s has no IPv4 address", ErrResolve, host)
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResolve, host, err)
	}

	var v4 []net.IP
	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil {
			v4 = append(v4, ip4)
		}
	}
	if len(v4) == 0 {
		return nil, fmt.Errorf("%w: %s has no IPv4 address", ErrResolve, host)
	}
	return v4, nil
}
