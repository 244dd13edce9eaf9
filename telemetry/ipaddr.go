package telemetry

import (
	"net"
)

const (
	DefaultWiredInterface    = "eth0"
	DefaultWirelessInterface = "wlan0"
)

// InterfaceAddrs returns the addresses configured on a named interface.
type InterfaceAddrs func(name string) ([]net.Addr, error)

// SystemInterfaceAddrs looks interfaces up in the host network stack.
func SystemInterfaceAddrs(name string) ([]net.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return ifi.Addrs()
}

// IPResolver picks the address readings are tagged with: the wired
// interface if it has an IPv4 address, else the wireless one, else "".
type IPResolver struct {
	Wired    string
	Wireless string
	Addrs    InterfaceAddrs
}

func NewIPResolver(wired, wireless string) *IPResolver {
	return &IPResolver{Wired: wired, Wireless: wireless, Addrs: SystemInterfaceAddrs}
}

func (r *IPResolver) Resolve() string {
	for _, name := range []string{r.Wired, r.Wireless} {
		if name == "" {
			continue
		}
		if ip := r.ipv4(name); ip != "" {
			return ip
		}
	}
	return ""
}

func (r *IPResolver) ipv4(name string) string {
	addrs, err := r.Addrs(name)
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
