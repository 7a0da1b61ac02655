package clientstream

import (
	"net"
	"net/netip"

	"tunnelhost/application"
)

// RawStream is a thin wrapper over a TLS connection. The caller has
// already consumed the raw transport's version byte (0x01) before
// constructing this; every byte RawStream reads from here on is the
// dispatcher's RequestCode stream. Dispose always closes the underlying
// socket. It never implements application.ReusableClientStream: the raw
// variant is never returned to the host for reuse.
type RawStream struct {
	conn   net.Conn
	remote netip.AddrPort
	local  netip.AddrPort
}

var _ application.ClientStream = (*RawStream)(nil)

func NewRawStream(conn net.Conn) *RawStream {
	return &RawStream{
		conn:   conn,
		remote: addrPort(conn.RemoteAddr()),
		local:  addrPort(conn.LocalAddr()),
	}
}

func (s *RawStream) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *RawStream) Write(p []byte) (int, error) { return s.conn.Write(p) }

func (s *RawStream) RemoteAddr() netip.AddrPort { return s.remote }
func (s *RawStream) LocalAddr() netip.AddrPort  { return s.local }

// Dispose always closes the connection; graceful is accepted for
// interface symmetry with the chunked-reusable variant but has no raw
// equivalent to perform.
func (s *RawStream) Dispose(graceful bool) error {
	_ = graceful
	return s.conn.Close()
}

func addrPort(a net.Addr) netip.AddrPort {
	tcpAddr, ok := a.(*net.TCPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	addr, ok := netip.AddrFromSlice(tcpAddr.IP)
	if !ok {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(addr.Unmap(), uint16(tcpAddr.Port))
}
