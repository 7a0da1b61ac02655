package domain

import "net/netip"

// ServerEndpoint is an address+port the host binds. A Port of zero means
// "OS-assigned"; the resolved port becomes readable only after binding.
type ServerEndpoint struct {
	Addr netip.Addr
	Port uint16
}

func (e ServerEndpoint) String() string {
	return netip.AddrPortFrom(e.Addr, e.Port).String()
}

// IsResolved reports whether Port has been assigned a non-zero value, i.e.
// whether this endpoint reflects a bound socket rather than a request.
func (e ServerEndpoint) IsResolved() bool {
	return e.Port != 0
}
