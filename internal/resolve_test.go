package internal

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"
)

// fakeLookup resolves names from static maps.
type fakeLookup struct {
	hosts map[string][]netip.Addr
	ports map[string]int
}

func (fl fakeLookup) LookupNetIP(_ context.Context, network, host string) ([]netip.Addr, error) {
	var addrs []netip.Addr
	for _, addr := range fl.hosts[host] {
		switch {
		case network == "ip4" && !addr.Is4():
		case network == "ip6" && !addr.Is6():
		default:
			addrs = append(addrs, addr)
		}
	}

	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func (fl fakeLookup) LookupPort(_ context.Context, network, service string) (int, error) {
	if port, ok := fl.ports[service]; ok && network == "udp" {
		return port, nil
	}
	return 0, &net.DNSError{Err: "unknown port", Name: network + "/" + service, IsNotFound: true}
}

func newFakeResolver() *Resolver {
	return &Resolver{
		Lookup: fakeLookup{
			hosts: map[string][]netip.Addr{
				"example.com": {
					netip.MustParseAddr("2001:db8::5"),
					netip.MustParseAddr("203.0.113.5"),
				},
				"a.example": {netip.MustParseAddr("192.0.2.1")},
				"b.example": {netip.MustParseAddr("192.0.2.2")},
				"v6.example": {netip.MustParseAddr("2001:db8::6")},
			},
			ports: map[string]int{
				"dpmaster": 27950,
			},
		},
		MaxSockets: MaxListenSockets,
	}
}

func TestSplitListenAddress(t *testing.T) {
	tests := []struct {
		input string
		host  string
		port  string
		hint  Family
		valid bool
	}{
		{"[::1]:27900", "::1", "27900", FamilyIPv6, true},
		{"[::1]", "::1", "", FamilyIPv6, true},
		{"[::1]:", "::1", "", FamilyIPv6, true},
		{"[fe80::1%eth0]:27900", "fe80::1%eth0", "27900", FamilyIPv6, true},
		{"::1:db8::1", "::1:db8::1", "", FamilyIPv6, true},
		{"2001:db8::1", "2001:db8::1", "", FamilyIPv6, true},
		{"example.com:27901", "example.com", "27901", FamilyUnspec, true},
		{"example.com", "example.com", "", FamilyUnspec, true},
		{"203.0.113.5:27900", "203.0.113.5", "27900", FamilyUnspec, true},
		{"203.0.113.5", "203.0.113.5", "", FamilyUnspec, true},
		{":27900", "", "27900", FamilyUnspec, true},
		{"[::1", "", "", FamilyUnspec, false},
		{"[::1]27900", "", "", FamilyUnspec, false},
		{"[::1]x:27900", "", "", FamilyUnspec, false},
		{strings.Repeat("a", maxHostLen), strings.Repeat("a", maxHostLen), "", FamilyUnspec, true},
		{strings.Repeat("a", maxHostLen+1), "", "", FamilyUnspec, false},
		{strings.Repeat("a", maxHostLen+1) + ":27900", "", "", FamilyUnspec, false},
		{"[" + strings.Repeat("1", maxHostLen+1) + "]", "", "", FamilyUnspec, false},
	}

	for _, test := range tests {
		host, port, hint, err := SplitListenAddress(test.input)
		if (err == nil) != test.valid {
			t.Fatalf("%q: error %v, expected valid %t", test.input, err, test.valid)
		}

		if !test.valid {
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("%q: error %v is no ErrSyntax", test.input, err)
			}
			continue
		}

		if host != test.host || port != test.port || hint != test.hint {
			t.Fatalf("%q: got (%q, %q, %v), expected (%q, %q, %v)",
				test.input, host, port, hint, test.host, test.port, test.hint)
		}
	}
}

func TestResolveWildcard(t *testing.T) {
	plan, err := newFakeResolver().Resolve(context.Background(), NewRegistry(0), []string{"27900"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"0.0.0.0:27900", "[::]:27900"}
	if len(plan) != len(expected) {
		t.Fatalf("Plan has %d entries, expected %d", len(plan), len(expected))
	}
	for i, ls := range plan {
		if ls.String() != expected[i] {
			t.Fatalf("Entry %d is %v, expected %s", i, ls, expected[i])
		}
		if !ls.Optional {
			t.Fatalf("Entry %d is not optional", i)
		}
		if ls.Name != "" || ls.NameNoPort != "" {
			t.Fatalf("Entry %d has a name: %q, %q", i, ls.Name, ls.NameNoPort)
		}
	}
}

func TestResolveWildcardFamilyOuter(t *testing.T) {
	plan, err := newFakeResolver().Resolve(context.Background(), nil, []string{"27950", "dpmaster", "27900"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"0.0.0.0:27950", "0.0.0.0:27950", "0.0.0.0:27900",
		"[::]:27950", "[::]:27950", "[::]:27900",
	}
	if len(plan) != len(expected) {
		t.Fatalf("Plan has %d entries, expected %d", len(plan), len(expected))
	}
	for i, ls := range plan {
		if ls.String() != expected[i] {
			t.Fatalf("Entry %d is %v, expected %s", i, ls, expected[i])
		}
	}
}

func TestResolveDeclared(t *testing.T) {
	registry := NewRegistry(0)
	for _, name := range []string{"a.example", "b.example"} {
		if err := registry.Declare(name); err != nil {
			t.Fatal(err)
		}
	}

	plan, err := newFakeResolver().Resolve(context.Background(), registry, []string{"27950", "27900"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []struct {
		name string
		addr string
	}{
		{"a.example", "192.0.2.1:27950"},
		{"a.example", "192.0.2.1:27900"},
		{"b.example", "192.0.2.2:27950"},
		{"b.example", "192.0.2.2:27900"},
	}
	if len(plan) != len(expected) {
		t.Fatalf("Plan has %d entries, expected %d", len(plan), len(expected))
	}
	for i, ls := range plan {
		if ls.Optional {
			t.Fatalf("Entry %d is optional", i)
		}
		if ls.Name != expected[i].name || ls.NameNoPort != expected[i].name {
			t.Fatalf("Entry %d is named %q, %q, expected %q", i, ls.Name, ls.NameNoPort, expected[i].name)
		}
		if ls.String() != expected[i].addr {
			t.Fatalf("Entry %d is %v, expected %s", i, ls, expected[i].addr)
		}
	}
}

func TestResolveDeclaredForms(t *testing.T) {
	tests := []struct {
		name       string
		addrs      []string
		nameNoPort string
	}{
		{"[::1]:27901", []string{"[::1]:27950", "[::1]:27900"}, "::1"},
		{"[::1]", []string{"[::1]:27950", "[::1]:27900"}, "::1"},
		{"::1", []string{"[::1]:27950", "[::1]:27900"}, "::1"},
		{"example.com:27901", []string{"[2001:db8::5]:27950", "[2001:db8::5]:27900"}, "example.com"},
		{"[example.com]", []string{"[2001:db8::5]:27950", "[2001:db8::5]:27900"}, "example.com"},
		{"203.0.113.5:dpmaster", []string{"203.0.113.5:27950", "203.0.113.5:27900"}, "203.0.113.5"},
		{":27901", []string{"0.0.0.0:27950", "0.0.0.0:27900"}, ""},
		{"[]:27901", []string{"[::]:27950", "[::]:27900"}, ""},
		{"[::ffff:192.0.2.1]", []string{"192.0.2.1:27950", "192.0.2.1:27900"}, "::ffff:192.0.2.1"},
		{"::ffff:192.0.2.1", []string{"192.0.2.1:27950", "192.0.2.1:27900"}, "::ffff:192.0.2.1"},
	}

	for _, test := range tests {
		registry := NewRegistry(0)
		if err := registry.Declare(test.name); err != nil {
			t.Fatal(err)
		}

		plan, err := newFakeResolver().Resolve(context.Background(), registry, []string{"27950", "27900"})
		if err != nil {
			t.Fatalf("%q: %v", test.name, err)
		}

		if len(plan) != len(test.addrs) {
			t.Fatalf("%q: plan has %d entries, expected %d", test.name, len(plan), len(test.addrs))
		}
		for i, ls := range plan {
			if ls.String() != test.addrs[i] {
				t.Fatalf("%q: entry %d is %v, expected %s", test.name, i, ls, test.addrs[i])
			}
			if ls.Name != test.name || ls.NameNoPort != test.nameNoPort {
				t.Fatalf("%q: entry %d is named %q, %q", test.name, i, ls.Name, ls.NameNoPort)
			}
		}
	}
}

func TestResolveDeclaredWithPortsProduct(t *testing.T) {
	registry := NewRegistry(0)
	for _, name := range []string{"a.example:27901", "b.example"} {
		if err := registry.Declare(name); err != nil {
			t.Fatal(err)
		}
	}

	plan, err := newFakeResolver().Resolve(context.Background(), registry, []string{"27950", "27900"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"192.0.2.1:27950", "192.0.2.1:27900", "192.0.2.2:27950", "192.0.2.2:27900"}
	if len(plan) != len(expected) {
		t.Fatalf("Plan has %d entries, expected %d", len(plan), len(expected))
	}
	for i, ls := range plan {
		if ls.String() != expected[i] {
			t.Fatalf("Entry %d is %v, expected %s", i, ls, expected[i])
		}
	}
}

func TestResolveMappedFamily(t *testing.T) {
	registry := NewRegistry(0)
	if err := registry.Declare("[::ffff:192.0.2.1]"); err != nil {
		t.Fatal(err)
	}

	plan, err := newFakeResolver().Resolve(context.Background(), registry, []string{"27950"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 {
		t.Fatalf("Plan has %d entries, expected 1", len(plan))
	}
	if plan[0].Family() != FamilyIPv4 || plan[0].SockaddrLen() != 16 {
		t.Fatalf("Mapped address resolved to family %v", plan[0].Family())
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		names   []string
		ports   []string
		max     int
		errKind error
	}{
		{[]string{"[::1"}, []string{"27950"}, 0, ErrSyntax},
		{[]string{"a.example", "[::1]x"}, []string{"27950"}, 0, ErrSyntax},
		{[]string{"unknown.example"}, []string{"27950"}, 0, ErrResolve},
		{[]string{"a.example"}, []string{"unknown-service"}, 0, ErrResolve},
		{[]string{"a.example"}, []string{"70000"}, 0, ErrResolve},
		{[]string{"[203.0.113.5]"}, []string{"27950"}, 0, ErrResolve},
		{[]string{"[a.example]"}, []string{"27950"}, 0, ErrResolve},
		{[]string{"a.example"}, []string{}, 0, ErrResolve},
		{[]string{}, []string{"unknown-service"}, 0, ErrResolve},
		{[]string{"a.example", "b.example"}, []string{"1", "2"}, 3, ErrCapacity},
		{[]string{}, []string{"1", "2"}, 3, ErrCapacity},
	}

	for _, test := range tests {
		registry := NewRegistry(0)
		for _, name := range test.names {
			if err := registry.Declare(name); err != nil {
				t.Fatal(err)
			}
		}

		resolver := newFakeResolver()
		resolver.MaxSockets = test.max

		plan, err := resolver.Resolve(context.Background(), registry, test.ports)
		if !errors.Is(err, test.errKind) {
			t.Fatalf("%v x %v: error %v, expected %v", test.names, test.ports, err, test.errKind)
		}
		if plan != nil {
			t.Fatalf("%v x %v: returned a plan on error", test.names, test.ports)
		}
	}
}

func TestResolveErrorCarriesToken(t *testing.T) {
	registry := NewRegistry(0)
	if err := registry.Declare("unknown.example:27901"); err != nil {
		t.Fatal(err)
	}

	_, err := newFakeResolver().Resolve(context.Background(), registry, []string{"27950"})
	if err == nil {
		t.Fatal("Resolve succeeded for an unknown host")
	}

	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) {
		t.Fatalf("Error %v does not carry the lookup's cause", err)
	}
	if !strings.Contains(err.Error(), "unknown.example:27901") {
		t.Fatalf("Error %q does not name the token", err)
	}
}
