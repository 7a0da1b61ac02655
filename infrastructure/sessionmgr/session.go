package sessionmgr

import (
	"net/netip"
	"sync"

	"tunnelhost/application"
)

// session is the default in-memory implementation of application.Session,
// grounded on the session/Peer split the teacher's tunnel package uses:
// identity and transport state live here, while any attached long-lived
// channel (datagram or proxy) is tracked alongside it.
type session struct {
	mu sync.Mutex

	id           application.SessionID
	key          application.SessionKey
	externalAddr netip.AddrPort

	useUDPChannel bool
	udpKey        []byte
	udpPort       int

	datagramStream application.ClientStream
	proxyStream     application.ClientStream
}

func (s *session) ID() application.SessionID { return s.id }

func (s *session) UseUDPChannel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useUDPChannel
}

func (s *session) SetUseUDPChannel(use bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useUDPChannel = use
}
