package application

import (
	"context"
	"net/netip"

	"tunnelhost/domain"
)

// SessionID is the 64-bit identity a session is known by on the wire.
type SessionID uint64

// SessionKey is the opaque secret used to authenticate every non-Hello
// request belonging to a session.
type SessionKey []byte

// Session is the minimal view of a session the connection host needs; the
// session manager is free to keep richer state behind this handle.
type Session interface {
	ID() SessionID
	UseUDPChannel() bool
	SetUseUDPChannel(use bool)
}

// SessionManager is external to the core: session creation, lookup,
// per-session packet tunnelling and access-usage accounting all live on
// the other side of this interface. The core only ever calls it.
type SessionManager interface {
	// CreateSession assigns a new session for an incoming Hello. Failure
	// returns a *SessionError describing why.
	CreateSession(ctx context.Context, req domain.HelloRequest, remote netip.AddrPort) (Session, SessionKey, AccessUsage, error)

	// Authenticate looks up a session by id and verifies key against it.
	// Failure returns a *SessionError (ErrCodeUnknownSession or
	// ErrCodeBadSessionKey).
	Authenticate(ctx context.Context, id SessionID, key SessionKey) (Session, error)

	// EnableUDP turns on the session's UDP channel and returns its UDP key
	// and bound UDP port (0 if none).
	EnableUDP(ctx context.Context, id SessionID) (udpKey []byte, udpPort int, err error)

	// Close tears the session down. Called on Bye.
	Close(ctx context.Context, id SessionID) error

	// AttachDatagramChannel hands stream to the session as a long-lived
	// bidirectional datagram channel. Ownership of stream transfers to the
	// session: the caller must not touch it again after a nil error.
	AttachDatagramChannel(ctx context.Context, id SessionID, stream ClientStream) error

	// AttachProxyChannel hands stream to the session to be spliced with an
	// outbound connection to destination. Same ownership transfer as
	// AttachDatagramChannel.
	AttachProxyChannel(ctx context.Context, id SessionID, stream ClientStream, destination string) error

	// RouteUDPDatagram delivers a UDP payload (route-id prefix already
	// stripped) to the session's UDP channel, in arrival order per source
	// socket. An unknown id returns a *SessionError so the transmitter can
	// drop it silently, as required by the demux contract.
	RouteUDPDatagram(ctx context.Context, id SessionID, payload []byte, src netip.AddrPort) error
}

// AccessUsage mirrors domain.AccessUsage; kept as a distinct alias so the
// SessionManager boundary does not force callers to import domain's wire
// JSON tags for a pure accounting value.
type AccessUsage = domain.AccessUsage
