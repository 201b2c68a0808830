package netlink

import (
	"net"

	"github.com/ghalamif/airdaq/internal/ports"
)

// InterfaceLink reports the link as up when a non-loopback interface is up
// and has at least one address. Name pins the check to one interface.
type InterfaceLink struct {
	name       string
	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{
		name:       name,
		interfaces: net.Interfaces,
		addrs:      func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
}

func (l *InterfaceLink) Up() bool {
	ifaces, err := l.interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if l.name != "" && iface.Name != l.name {
			continue
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := l.addrs(iface)
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// AlwaysUp is used when link supervision is disabled.
type AlwaysUp struct{}

func (AlwaysUp) Up() bool { return true }

var (
	_ ports.Link = (*InterfaceLink)(nil)
	_ ports.Link = AlwaysUp{}
)
