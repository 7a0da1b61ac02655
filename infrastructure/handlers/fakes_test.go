package handlers

import (
	"bytes"
	"context"
	"net/netip"

	"tunnelhost/application"
	"tunnelhost/domain"
	"tunnelhost/infrastructure/framing"
)

// bufferStream is a minimal application.ClientStream backed by an
// in-memory buffer, used to drive handlers without real sockets.
type bufferStream struct {
	in       bytes.Buffer
	out      bytes.Buffer
	disposed bool
	graceful bool
}

func (s *bufferStream) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *bufferStream) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s *bufferStream) RemoteAddr() netip.AddrPort  { return netip.AddrPort{} }
func (s *bufferStream) LocalAddr() netip.AddrPort   { return netip.AddrPort{} }
func (s *bufferStream) Dispose(graceful bool) error {
	s.disposed = true
	s.graceful = graceful
	return nil
}

func newFramedRequest(framer application.Framer, body []byte) *bufferStream {
	s := &bufferStream{}
	_ = framer.WriteFrame(&s.in, body)
	return s
}

// fakeSession is the minimal application.Session used by tests.
type fakeSession struct {
	id            application.SessionID
	useUDPChannel bool
}

func (s *fakeSession) ID() application.SessionID    { return s.id }
func (s *fakeSession) UseUDPChannel() bool          { return s.useUDPChannel }
func (s *fakeSession) SetUseUDPChannel(use bool)    { s.useUDPChannel = use }

// fakeSessionManager is a hand-built mock of application.SessionManager,
// recording calls so tests can assert ordering (e.g. Hello ordering).
type fakeSessionManager struct {
	createSessionCalled bool
	createSessionErr    error
	session             *fakeSession
	sessionKey          application.SessionKey
	usage               application.AccessUsage

	authenticateErr error

	udpKey  []byte
	udpPort int
	udpErr  error

	closeErr error

	attachedDatagramStream application.ClientStream
	attachedProxyStream    application.ClientStream
	attachedDestination    string
	attachErr              error

	routedSessionID application.SessionID
	routedPayload   []byte
	routedSrc       netip.AddrPort
	routeErr        error
}

func (m *fakeSessionManager) CreateSession(ctx context.Context, req domain.HelloRequest, remote netip.AddrPort) (application.Session, application.SessionKey, application.AccessUsage, error) {
	m.createSessionCalled = true
	if m.createSessionErr != nil {
		return nil, nil, application.AccessUsage{}, m.createSessionErr
	}
	if m.session == nil {
		m.session = &fakeSession{id: 1}
	}
	return m.session, m.sessionKey, m.usage, nil
}

func (m *fakeSessionManager) Authenticate(ctx context.Context, id application.SessionID, key application.SessionKey) (application.Session, error) {
	if m.authenticateErr != nil {
		return nil, m.authenticateErr
	}
	if m.session == nil {
		m.session = &fakeSession{id: id}
	}
	return m.session, nil
}

func (m *fakeSessionManager) EnableUDP(ctx context.Context, id application.SessionID) ([]byte, int, error) {
	return m.udpKey, m.udpPort, m.udpErr
}

func (m *fakeSessionManager) Close(ctx context.Context, id application.SessionID) error {
	return m.closeErr
}

func (m *fakeSessionManager) AttachDatagramChannel(ctx context.Context, id application.SessionID, stream application.ClientStream) error {
	m.attachedDatagramStream = stream
	return m.attachErr
}

func (m *fakeSessionManager) AttachProxyChannel(ctx context.Context, id application.SessionID, stream application.ClientStream, destination string) error {
	m.attachedProxyStream = stream
	m.attachedDestination = destination
	return m.attachErr
}

func (m *fakeSessionManager) RouteUDPDatagram(ctx context.Context, id application.SessionID, payload []byte, src netip.AddrPort) error {
	m.routedSessionID = id
	m.routedPayload = payload
	m.routedSrc = src
	return m.routeErr
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

func testDeps(sm application.SessionManager) Dependencies {
	return Dependencies{
		SessionManager: sm,
		Logger:         noopLogger{},
		Framer:         framing.NewLengthPrefixFramer(1 << 20),
		ServerVersion:  "1.0.0-test",
		TCPEndpoint:    "127.0.0.1:443",
	}
}
