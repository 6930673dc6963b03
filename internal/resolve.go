package internal

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// maxHostLen is the longest host part of a listen address to be resolved.
const maxHostLen = 127

// Lookup resolves host and service names. It is implemented by *net.Resolver.
type Lookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// SplitListenAddress splits a listen address into its host part, an optional
// port and an address family hint.
//
// Valid forms are "host", "host:port", "ipv4", "ipv4:port", "[ipv6]",
// "[ipv6]:port" and a bare "ipv6". As an unbracketed IPv6 address contains
// multiple colons, a port cannot be appended to it.
func SplitListenAddress(token string) (host, port string, hint Family, err error) {
	switch {
	case strings.HasPrefix(token, "["):
		end := strings.IndexByte(token, ']')
		if end < 0 {
			err = fmt.Errorf("%w: IPv6 address has no closing bracket (%s)", ErrSyntax, token)
			return
		}

		rest := token[end+1:]
		if rest != "" && rest[0] != ':' {
			err = fmt.Errorf("%w: invalid end of bracketed IPv6 address (%s)", ErrSyntax, token)
			return
		}

		host, hint = token[1:end], FamilyIPv6
		if rest != "" {
			port = rest[1:]
		}

	default:
		firstColon := strings.IndexByte(token, ':')
		if firstColon < 0 {
			host = token
		} else if strings.IndexByte(token[firstColon+1:], ':') < 0 {
			host, port = token[:firstColon], token[firstColon+1:]
		} else {
			host, hint = token, FamilyIPv6
		}
	}

	if len(host) > maxHostLen {
		err = fmt.Errorf("%w: address too long to be resolved (%s)", ErrSyntax, token)
		return "", "", FamilyUnspec, err
	}
	return
}

// Resolver creates the listen plan from a Registry and the requested ports.
type Resolver struct {
	Lookup     Lookup
	MaxSockets int
}

// NewResolver using the system's resolver.
func NewResolver() *Resolver {
	return &Resolver{
		Lookup:     net.DefaultResolver,
		MaxSockets: MaxListenSockets,
	}
}

// resolvePort parses a numeric port or looks up a UDP service name.
func (r *Resolver) resolvePort(ctx context.Context, port string) (uint16, error) {
	if n, err := strconv.ParseUint(port, 10, 16); err == nil {
		return uint16(n), nil
	}

	n, err := r.Lookup.LookupPort(ctx, "udp", port)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 0xffff {
		return 0, fmt.Errorf("port %d out of range", n)
	}
	return uint16(n), nil
}

// resolveHost returns the first address for host, restricted to the family
// hint. An empty host is the hint's wildcard address.
func (r *Resolver) resolveHost(ctx context.Context, host string, hint Family) (netip.Addr, error) {
	if host == "" {
		return hint.wildcard(), nil
	}

	var addrs []netip.Addr
	if addr, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{addr}
	} else {
		addrs, err = r.Lookup.LookupNetIP(ctx, hint.network(), host)
		if err != nil {
			return netip.Addr{}, err
		}
	}

	for _, addr := range addrs {
		// An IPv4-mapped IPv6 address satisfies the IPv6 hint, but is bound
		// as the IPv4 address it maps to.
		if hint == FamilyIPv6 && !addr.Is6() {
			continue
		}
		addr = addr.Unmap()
		if hint == FamilyIPv4 && !addr.Is4() {
			continue
		}
		return addr, nil
	}
	return netip.Addr{}, fmt.Errorf("no %s address for %q", hint, host)
}

// resolveAddrPort combines resolveHost and resolvePort.
func (r *Resolver) resolveAddrPort(ctx context.Context, host, port string, hint Family) (netip.AddrPort, error) {
	addr, err := r.resolveHost(ctx, host, hint)
	if err != nil {
		return netip.AddrPort{}, err
	}

	portNum, err := r.resolvePort(ctx, port)
	if err != nil {
		return netip.AddrPort{}, err
	}

	return netip.AddrPortFrom(addr, portNum), nil
}

// Resolve all declared addresses for all ports.
//
// Without any declared address, the IPv4 and IPv6 wildcard addresses are
// used for each port. Those entries are optional, as one address family
// might be unavailable. Otherwise, each declared address is resolved for each
// port. A port appended to a declared address is ignored.
func (r *Resolver) Resolve(ctx context.Context, registry *Registry, ports []string) ([]ListenSocket, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: no listen port", ErrResolve)
	}

	maxSockets := r.MaxSockets
	if maxSockets <= 0 {
		maxSockets = MaxListenSockets
	}

	plan := []ListenSocket{}
	add := func(ls ListenSocket) error {
		if len(plan) >= maxSockets {
			return fmt.Errorf("%w: more than %d listening sockets", ErrCapacity, maxSockets)
		}
		plan = append(plan, ls)
		return nil
	}

	if registry == nil || registry.Len() == 0 {
		for _, family := range addressFamilies {
			for _, port := range ports {
				portNum, err := r.resolvePort(ctx, port)
				if err != nil {
					log.WithError(err).WithField("port", port).Error("Cannot resolve listen port")
					return nil, fmt.Errorf("%w: port %s: %w", ErrResolve, port, err)
				}

				ls := ListenSocket{
					Addr:     netip.AddrPortFrom(family.wildcard(), portNum),
					Optional: true,
				}
				if err := add(ls); err != nil {
					return nil, err
				}
			}
		}

		log.WithField("sockets", len(plan)).Debug("Resolved wildcard listen addresses")
		return plan, nil
	}

	for _, name := range registry.Names() {
		host, namePort, hint, err := SplitListenAddress(name)
		if err != nil {
			log.WithError(err).WithField("address", name).Error("Cannot parse listen address")
			return nil, err
		}

		if namePort != "" {
			log.WithFields(log.Fields{
				"address": name,
				"port":    namePort,
			}).Debug("Ignoring the listen address' own port, using the listen ports")
		}

		for _, port := range ports {
			addrPort, err := r.resolveAddrPort(ctx, host, port, hint)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"address": name,
					"port":    port,
				}).Error("Cannot resolve listen address")
				return nil, fmt.Errorf("%w %s:%s: %w", ErrResolve, name, port, err)
			}

			ls := ListenSocket{
				Addr:       addrPort,
				Name:       name,
				NameNoPort: host,
			}
			if err := add(ls); err != nil {
				return nil, err
			}
		}

		log.WithFields(log.Fields{
			"address": name,
			"host":    host,
			"family":  hint,
		}).Debug("Resolved listen address")
	}

	return plan, nil
}
