package internal

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Sockets creates UDP sockets. The platform's implementation is returned by
// NewSockets.
type Sockets interface {
	// Open a datagram socket. An unsupported address family results in an
	// error wrapping ErrUnsupportedFamily.
	Open(family Family) (RawSocket, error)
}

// RawSocket is an open, possibly not yet bound, UDP socket.
type RawSocket interface {
	// SetIPv6Only disables IPv4-mapped traffic on an IPv6 socket. If the
	// platform does not know this option, the error wraps ErrOptionUnsupported.
	SetIPv6Only() error

	Bind(addr netip.AddrPort) error

	// PacketConn of the bound socket. The RawSocket stays usable and must
	// still be closed.
	PacketConn() (net.PacketConn, error)

	Close() error
}

// BindAll creates and binds a socket for each entry of the plan, in order.
//
// If the address family of an optional entry is not supported, this entry is
// dropped with a warning. Every other failure closes all sockets created so
// far and returns an error wrapping ErrBind. The returned slice holds only
// bound sockets.
func BindAll(plan []ListenSocket, sockets Sockets) ([]ListenSocket, error) {
	bound := make([]ListenSocket, 0, len(plan))

	fail := func(ls ListenSocket, sock RawSocket, msg string, err error) error {
		logger := log.WithError(err).WithField("listen", ls.String())
		if ls.Name != "" {
			logger = logger.WithField("address", ls.Name)
		}
		logger.Error(msg)

		if sock != nil {
			bound = append(bound, ListenSocket{Socket: sock})
		}
		if closeErr := CloseAll(bound); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close sockets during rollback")
		}
		return fmt.Errorf("%w %s: %w", ErrBind, ls, err)
	}

	for _, ls := range plan {
		family := ls.Family()

		sock, err := sockets.Open(family)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFamily) && ls.Optional {
				log.WithField("family", family).Warnf("Protocol %s isn't supported", family)
				continue
			}
			return nil, fail(ls, nil, "Socket creation failed", err)
		}

		if family == FamilyIPv6 {
			if err := sock.SetIPv6Only(); errors.Is(err, ErrOptionUnsupported) {
				log.WithError(err).Debug("IPV6_V6ONLY is not available, using the platform default")
			} else if err != nil {
				return nil, fail(ls, sock, "setsockopt(IPV6_V6ONLY) failed", err)
			}
		}

		if ls.Name != "" {
			log.WithFields(log.Fields{
				"address": ls.NameNoPort,
				"bound":   ls.String(),
			}).Infof("Listening on address %s (%s)", ls.NameNoPort, ls)
		} else {
			log.WithFields(log.Fields{
				"family": family,
				"bound":  ls.String(),
			}).Infof("Listening on all %s addresses (%s)", family, ls)
		}

		if err := sock.Bind(ls.Addr); err != nil {
			return nil, fail(ls, sock, "Socket binding failed", err)
		}

		ls.Socket = sock
		bound = append(bound, ls)
	}

	return bound, nil
}

// CloseAll closes every socket of the given entries and resets them.
func CloseAll(socks []ListenSocket) (err error) {
	for i := range socks {
		if socks[i].Socket == nil {
			continue
		}

		multierr.AppendInto(&err, socks[i].Socket.Close())
		socks[i].Socket = nil
	}
	return
}
