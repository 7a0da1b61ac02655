package tlsacceptor

import (
	"context"
	"crypto/tls"
	"net"
	"net/netip"

	"tunnelhost/application"
)

// Acceptor performs the server side of the TLS handshake, selecting a
// certificate keyed by the local bind address a connection was accepted
// on. Client certificates are never required and no revocation checking
// is configured; any failure is classified and returned as a
// *application.TLSAuthError, distinguishable from ordinary I/O errors.
type Acceptor struct {
	certSource application.CertificateSource
}

func NewAcceptor(certSource application.CertificateSource) *Acceptor {
	return &Acceptor{certSource: certSource}
}

// Handshake wraps conn in a server-side *tls.Conn and completes the
// handshake, cancellation-aware via ctx.
func (a *Acceptor) Handshake(ctx context.Context, conn net.Conn) (*tls.Conn, error) {
	local := localAddrPort(conn.LocalAddr())

	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ClientAuth: tls.NoClientCert,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return a.certSource.CertificateFor(local)
		},
	}

	tlsConn := tls.Server(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, &application.TLSAuthError{Cause: err, Cancelled: ctx.Err() != nil}
	}
	return tlsConn, nil
}

// ClearCache releases any certificates cached by the certificate source.
func (a *Acceptor) ClearCache() {
	a.certSource.ClearCache()
}

func localAddrPort(addr net.Addr) netip.AddrPort {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	ip, ok := netip.AddrFromSlice(tcpAddr.IP)
	if !ok {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(ip.Unmap(), uint16(tcpAddr.Port))
}
