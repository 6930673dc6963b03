package internal

import (
	"net"
	"net/netip"

	log "github.com/sirupsen/logrus"
)

// Family of a socket address.
type Family int

const (
	FamilyUnspec Family = iota
	FamilyIPv4
	FamilyIPv6
)

// addressFamilies are iterated over for the wildcard defaults, in this order.
var addressFamilies = []Family{FamilyIPv4, FamilyIPv6}

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	default:
		return "UNKNOWN"
	}
}

// network returns the net package's network name for lookups of this family.
func (f Family) network() string {
	switch f {
	case FamilyIPv4:
		return "ip4"
	case FamilyIPv6:
		return "ip6"
	default:
		return "ip"
	}
}

// wildcard is the "any local interface" address of this family.
func (f Family) wildcard() netip.Addr {
	if f == FamilyIPv6 {
		return netip.IPv6Unspecified()
	}
	return netip.IPv4Unspecified()
}

// familyOf an address; IPv4-mapped IPv6 addresses count as IPv4.
func familyOf(addr netip.Addr) Family {
	switch {
	case !addr.IsValid():
		return FamilyUnspec
	case addr.Is4(), addr.Is4In6():
		return FamilyIPv4
	default:
		return FamilyIPv6
	}
}

// nonPrintableAddr is returned by FormatAddr for addresses it cannot print.
const nonPrintableAddr = "NON-PRINTABLE ADDRESS"

// FormatAddr returns the numeric display form of a socket address, e.g.,
// "203.0.113.5:27900" or "[::1]:27900".
func FormatAddr(addrPort netip.AddrPort) string {
	addr := addrPort.Addr()
	if !addr.IsValid() {
		log.WithField("address", addrPort).Warn("Cannot convert address to a printable form")
		return nonPrintableAddr
	}

	return netip.AddrPortFrom(addr.Unmap(), addrPort.Port()).String()
}

// ListenSocket is a resolved listening address, together with its socket
// after BindAll succeeded.
//
// Name and NameNoPort are the user's declaration and its host part, both
// empty for the synthesized wildcard defaults. Only optional entries may be
// skipped if their address family is unsupported by the operating system.
type ListenSocket struct {
	Addr       netip.AddrPort
	Name       string
	NameNoPort string
	Optional   bool

	Socket RawSocket
}

// Family of this entry's local address.
func (ls ListenSocket) Family() Family {
	return familyOf(ls.Addr.Addr())
}

// Port of this entry's local address.
func (ls ListenSocket) Port() uint16 {
	return ls.Addr.Port()
}

// SockaddrLen is the length of the native socket address structure.
func (ls ListenSocket) SockaddrLen() int {
	switch ls.Family() {
	case FamilyIPv4:
		return 16
	case FamilyIPv6:
		return 28
	default:
		return 0
	}
}

// String returns the formatted local address.
func (ls ListenSocket) String() string {
	return FormatAddr(ls.Addr)
}

// PacketConn hands a bound socket over to the protocol layer.
func (ls ListenSocket) PacketConn() (net.PacketConn, error) {
	if ls.Socket == nil {
		return nil, ErrBind
	}
	return ls.Socket.PacketConn()
}
