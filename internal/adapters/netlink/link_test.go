package netlink

import (
	"errors"
	"net"
	"testing"
)

func fakeLink(name string, ifaces []net.Interface, withAddr map[string]bool) *InterfaceLink {
	return &InterfaceLink{
		name:       name,
		interfaces: func() ([]net.Interface, error) { return ifaces, nil },
		addrs: func(i net.Interface) ([]net.Addr, error) {
			if withAddr[i.Name] {
				return []net.Addr{&net.IPNet{IP: net.IPv4(192, 168, 1, 20), Mask: net.CIDRMask(24, 32)}}, nil
			}
			return nil, nil
		},
	}
}

func TestInterfaceLinkIgnoresLoopback(t *testing.T) {
	l := fakeLink("", []net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}}, map[string]bool{"lo": true})
	if l.Up() {
		t.Fatalf("loopback alone must not count as a link")
	}
}

func TestInterfaceLinkNeedsAddress(t *testing.T) {
	ifaces := []net.Interface{{Name: "wlan0", Flags: net.FlagUp}}
	if fakeLink("", ifaces, nil).Up() {
		t.Fatalf("interface without address must not count as up")
	}
	if !fakeLink("", ifaces, map[string]bool{"wlan0": true}).Up() {
		t.Fatalf("expected wlan0 with address to be up")
	}
}

func TestInterfaceLinkPinnedName(t *testing.T) {
	ifaces := []net.Interface{{Name: "eth0", Flags: net.FlagUp}, {Name: "wlan0"}}
	l := fakeLink("wlan0", ifaces, map[string]bool{"eth0": true, "wlan0": true})
	if l.Up() {
		t.Fatalf("pinned interface is down; eth0 must not satisfy the check")
	}
}

func TestInterfaceLinkError(t *testing.T) {
	l := &InterfaceLink{interfaces: func() ([]net.Interface, error) { return nil, errors.New("netlink") }}
	if l.Up() {
		t.Fatalf("expected down on enumeration error")
	}
}
