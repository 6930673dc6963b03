//go:build !(aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris)

package internal

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

// netSockets falls back to the net package, which creates and binds a socket
// in one step. The IPv6 sockets of the "udp6" network are IPv6-only already.
type netSockets struct{}

// NewSockets returns the platform's Sockets implementation.
func NewSockets() Sockets {
	return netSockets{}
}

func (netSockets) Open(family Family) (RawSocket, error) {
	switch family {
	case FamilyIPv4:
		return &netSocket{network: "udp4"}, nil
	case FamilyIPv6:
		return &netSocket{network: "udp6"}, nil
	default:
		return nil, ErrUnsupportedFamily
	}
}

type netSocket struct {
	network string
	conn    net.PacketConn
}

func (s *netSocket) SetIPv6Only() error {
	return nil
}

func (s *netSocket) Bind(addrPort netip.AddrPort) error {
	var lc net.ListenConfig

	conn, err := lc.ListenPacket(context.Background(), s.network, addrPort.String())
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *netSocket) PacketConn() (net.PacketConn, error) {
	if s.conn == nil {
		return nil, errors.New("socket is not bound")
	}
	return s.conn, nil
}

func (s *netSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
