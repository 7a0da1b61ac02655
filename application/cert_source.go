package application

import (
	"crypto/tls"
	"net/netip"
)

// CertificateSource selects a TLS certificate keyed by the local endpoint a
// connection was accepted on; multiple bind addresses may carry distinct
// certificates. It is external to the core in the same sense the session
// manager is: the core only calls it and clears its cache on stop.
type CertificateSource interface {
	CertificateFor(local netip.AddrPort) (*tls.Certificate, error)
	ClearCache()
}
