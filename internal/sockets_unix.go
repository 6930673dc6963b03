//go:build aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris

package internal

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"

	syscall "golang.org/x/sys/unix"
)

// posixSockets creates UDP sockets by socket(2).
type posixSockets struct{}

// NewSockets returns the platform's Sockets implementation.
func NewSockets() Sockets {
	return posixSockets{}
}

func (posixSockets) Open(family Family) (RawSocket, error) {
	var domain int
	switch family {
	case FamilyIPv4:
		domain = syscall.AF_INET
	case FamilyIPv6:
		domain = syscall.AF_INET6
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFamily, family)
	}

	fd, err := syscall.Socket(domain, syscall.SOCK_DGRAM, syscall.IPPROTO_UDP)
	if errors.Is(err, syscall.EAFNOSUPPORT) {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFamily, err)
	} else if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	syscall.CloseOnExec(fd)

	return &posixSocket{
		file:   os.NewFile(uintptr(fd), "udp-"+family.network()),
		family: family,
	}, nil
}

// posixSocket owns its file descriptor through an *os.File.
type posixSocket struct {
	file   *os.File
	family Family
}

// control executes f on the raw file descriptor.
func (s *posixSocket) control(f func(fd int) error) error {
	rawConn, err := s.file.SyscallConn()
	if err != nil {
		return err
	}

	var opErr error
	err = rawConn.Control(func(fd uintptr) {
		opErr = f(int(fd))
	})
	if err != nil {
		return err
	}
	return opErr
}

func (s *posixSocket) SetIPv6Only() error {
	return s.control(func(fd int) error {
		err := syscall.SetsockoptInt(fd, syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, 1)
		if errors.Is(err, syscall.ENOPROTOOPT) {
			return fmt.Errorf("%w: %w", ErrOptionUnsupported, err)
		}
		return err
	})
}

// sockaddr converts an address of this socket's family for bind(2).
func (s *posixSocket) sockaddr(addrPort netip.AddrPort) (syscall.Sockaddr, error) {
	addr := addrPort.Addr()

	switch s.family {
	case FamilyIPv4:
		if !addr.Unmap().Is4() {
			return nil, fmt.Errorf("%v is no IPv4 address", addr)
		}
		return &syscall.SockaddrInet4{Port: int(addrPort.Port()), Addr: addr.Unmap().As4()}, nil

	case FamilyIPv6:
		sa := &syscall.SockaddrInet6{Port: int(addrPort.Port()), Addr: addr.As16()}
		if zone := addr.Zone(); zone != "" {
			ifi, err := net.InterfaceByName(zone)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", zone, err)
			}
			sa.ZoneId = uint32(ifi.Index)
		}
		return sa, nil

	default:
		return nil, ErrUnsupportedFamily
	}
}

func (s *posixSocket) Bind(addrPort netip.AddrPort) error {
	sa, err := s.sockaddr(addrPort)
	if err != nil {
		return err
	}

	return s.control(func(fd int) error {
		return syscall.Bind(fd, sa)
	})
}

func (s *posixSocket) PacketConn() (net.PacketConn, error) {
	return net.FilePacketConn(s.file)
}

func (s *posixSocket) Close() error {
	return s.file.Close()
}
