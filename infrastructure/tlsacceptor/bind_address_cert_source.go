package tlsacceptor

import (
	"crypto/tls"
	"fmt"
	"net/netip"
	"sync"

	"tunnelhost/application"
)

// BindAddressCertSource selects a certificate by the exact local bind
// address a connection was accepted on, loading each certificate from a
// cert/key file pair on first use and caching the parsed result.
type BindAddressCertSource struct {
	files map[netip.AddrPort]certFiles

	mu    sync.RWMutex
	cache map[netip.AddrPort]*tls.Certificate
}

type certFiles struct {
	certFile, keyFile string
}

var _ application.CertificateSource = (*BindAddressCertSource)(nil)

func NewBindAddressCertSource() *BindAddressCertSource {
	return &BindAddressCertSource{
		files: make(map[netip.AddrPort]certFiles),
		cache: make(map[netip.AddrPort]*tls.Certificate),
	}
}

// Register associates a bind address with a certificate/key file pair.
// Must be called before the host starts accepting on that address.
func (s *BindAddressCertSource) Register(bind netip.AddrPort, certFile, keyFile string) {
	s.files[bind] = certFiles{certFile: certFile, keyFile: keyFile}
}

func (s *BindAddressCertSource) CertificateFor(local netip.AddrPort) (*tls.Certificate, error) {
	s.mu.RLock()
	if cert, ok := s.cache[local]; ok {
		s.mu.RUnlock()
		return cert, nil
	}
	s.mu.RUnlock()

	files, ok := s.files[local]
	if !ok {
		return nil, fmt.Errorf("no certificate registered for bind address %s", local)
	}

	cert, err := tls.LoadX509KeyPair(files.certFile, files.keyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate for %s: %w", local, err)
	}

	s.mu.Lock()
	s.cache[local] = &cert
	s.mu.Unlock()

	return &cert, nil
}

// ClearCache drops every cached parsed certificate; the next CertificateFor
// call for a given address reloads it from disk.
func (s *BindAddressCertSource) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[netip.AddrPort]*tls.Certificate)
	s.mu.Unlock()
}
