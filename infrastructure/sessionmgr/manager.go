package sessionmgr

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"net/netip"
	"sync/atomic"

	"tunnelhost/application"
	"tunnelhost/domain"
	"tunnelhost/infrastructure/cryptography/mem"
	"tunnelhost/infrastructure/cryptography/primitives"
)

// Manager is the default in-memory application.SessionManager. It owns no
// transport and no packet routing of its own; datagram and proxy channels
// attached to it are pumped by the minimal loops in channel.go. A
// deployment that needs real VPN packet delivery on the other end of a
// datagram channel supplies its own SessionManager behind this interface.
type Manager struct {
	repo       *repository
	keyDeriver primitives.KeyDeriver
	udpPort    int
	nextID     uint64
}

// NewManager builds a Manager. udpPort is the single UDP socket's bound
// port, published to every session that enables its UDP channel; sessions
// are demultiplexed by the 8-byte route id prefix, not by per-session port.
func NewManager(udpPort int) *Manager {
	return &Manager{
		repo:       newRepository(),
		keyDeriver: &primitives.DefaultKeyDeriver{},
		udpPort:    udpPort,
	}
}

func (m *Manager) CreateSession(_ context.Context, req domain.HelloRequest, remote netip.AddrPort) (application.Session, application.SessionKey, application.AccessUsage, error) {
	_, priv, err := m.keyDeriver.GenerateX25519KeyPair()
	if err != nil {
		return nil, nil, application.AccessUsage{}, application.NewSessionError(domain.ErrCodeGeneralError, "key generation failed")
	}
	defer mem.ZeroBytes(priv[:])

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, application.AccessUsage{}, application.NewSessionError(domain.ErrCodeGeneralError, "salt generation failed")
	}

	sessionKey, err := m.keyDeriver.DeriveKey(priv[:], salt, []byte("tunnelhost-session-key"))
	if err != nil {
		return nil, nil, application.AccessUsage{}, application.NewSessionError(domain.ErrCodeGeneralError, "key derivation failed")
	}

	id := application.SessionID(atomic.AddUint64(&m.nextID, 1))
	s := &session{
		id:           id,
		key:          sessionKey,
		externalAddr: remote,
	}
	m.repo.add(s)

	return s, sessionKey, application.AccessUsage{}, nil
}

func (m *Manager) Authenticate(_ context.Context, id application.SessionID, key application.SessionKey) (application.Session, error) {
	s, ok := m.repo.get(id)
	if !ok {
		return nil, application.NewSessionError(domain.ErrCodeUnknownSession, "")
	}
	if len(key) != len(s.key) || subtle.ConstantTimeCompare(key, s.key) != 1 {
		return nil, application.NewSessionError(domain.ErrCodeBadSessionKey, "")
	}
	return s, nil
}

func (m *Manager) EnableUDP(_ context.Context, id application.SessionID) ([]byte, int, error) {
	s, ok := m.repo.get(id)
	if !ok {
		return nil, 0, application.NewSessionError(domain.ErrCodeUnknownSession, "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.useUDPChannel = true
	if s.udpKey == nil {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, 0, application.NewSessionError(domain.ErrCodeGeneralError, "salt generation failed")
		}
		udpKey, err := m.keyDeriver.DeriveKey(s.key, salt, []byte("tunnelhost-udp-channel"))
		if err != nil {
			return nil, 0, application.NewSessionError(domain.ErrCodeGeneralError, "key derivation failed")
		}
		s.udpKey = udpKey
		s.udpPort = m.udpPort
	}
	return s.udpKey, s.udpPort, nil
}

func (m *Manager) Close(_ context.Context, id application.SessionID) error {
	s, ok := m.repo.delete(id)
	if !ok {
		return application.NewSessionError(domain.ErrCodeUnknownSession, "")
	}

	s.mu.Lock()
	datagramStream := s.datagramStream
	proxyStream := s.proxyStream
	s.mu.Unlock()

	if datagramStream != nil {
		_ = datagramStream.Dispose(true)
	}
	if proxyStream != nil {
		_ = proxyStream.Dispose(true)
	}

	mem.ZeroBytes(s.key)
	mem.ZeroBytes(s.udpKey)
	return nil
}

func (m *Manager) AttachDatagramChannel(_ context.Context, id application.SessionID, stream application.ClientStream) error {
	s, ok := m.repo.get(id)
	if !ok {
		return application.NewSessionError(domain.ErrCodeUnknownSession, "")
	}

	s.mu.Lock()
	s.datagramStream = stream
	s.mu.Unlock()

	go pumpDatagramChannel(stream)
	return nil
}

func (m *Manager) AttachProxyChannel(_ context.Context, id application.SessionID, stream application.ClientStream, destination string) error {
	s, ok := m.repo.get(id)
	if !ok {
		return application.NewSessionError(domain.ErrCodeUnknownSession, "")
	}

	s.mu.Lock()
	s.proxyStream = stream
	s.mu.Unlock()

	go spliceProxyChannel(stream, destination)
	return nil
}

// RouteUDPDatagram accepts a demultiplexed payload for a known session.
// Like pumpDatagramChannel, actual packet delivery belongs to an external
// packet-capture collaborator this default manager does not have; it only
// enforces the known-session precondition the transmitter relies on to
// decide whether to drop.
func (m *Manager) RouteUDPDatagram(_ context.Context, id application.SessionID, _ []byte, _ netip.AddrPort) error {
	if _, ok := m.repo.get(id); !ok {
		return application.NewSessionError(domain.ErrCodeUnknownSession, "")
	}
	return nil
}
