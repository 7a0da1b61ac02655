package udptransmitter

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// Transmitter owns a single UDP socket, demultiplexing inbound datagrams by
// their 8-byte route-id prefix (domain.ReadUDPRouteID) and handing the rest
// to the session manager. Outbound writes from session UDP channels are
// serialized through Send, satisfying the single-writer invariant.
type Transmitter struct {
	conn           *net.UDPConn
	sessionManager application.SessionManager
	logger         application.Logger

	writeMu sync.Mutex
	closed  atomic.Bool

	done chan struct{}
}

// New binds addr (port 0 means OS-assigned) and returns a Transmitter ready
// to Run. BoundPort reports the resolved port immediately after New.
func New(addr string, sessionManager application.SessionManager, logger application.Logger) (*Transmitter, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Transmitter{
		conn:           conn,
		sessionManager: sessionManager,
		logger:         logger,
		done:           make(chan struct{}),
	}, nil
}

// BoundPort reports the resolved local port, useful when addr requested
// port 0.
func (t *Transmitter) BoundPort() int {
	return t.conn.LocalAddr().(*net.UDPAddr).Port
}

// Run reads datagrams until ctx is cancelled or the socket is closed.
// Datagrams too short to carry a route id, or addressed to an unknown
// session, are dropped without a reply or an error-level log, per the
// demux contract.
func (t *Transmitter) Run(ctx context.Context) error {
	defer close(t.done)

	go func() {
		<-ctx.Done()
		t.closed.Store(true)
		_ = t.conn.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			t.logger.Printf("udp transmitter read error: %v", err)
			continue
		}
		if n < domain.MinUDPEnvelopeLength {
			continue
		}

		id := domain.ReadUDPRouteID(buf[:n])
		payload := make([]byte, n-domain.UDPRouteIDLength)
		copy(payload, buf[domain.UDPRouteIDLength:n])

		srcAddr, ok := netip.AddrFromSlice(src.IP)
		if !ok {
			continue
		}
		srcAddrPort := netip.AddrPortFrom(srcAddr.Unmap(), uint16(src.Port))

		if err := t.sessionManager.RouteUDPDatagram(ctx, application.SessionID(id), payload, srcAddrPort); err != nil {
			continue
		}
	}
}

// Send writes payload to dst, serialized against other concurrent senders.
func (t *Transmitter) Send(dst netip.AddrPort, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.conn.WriteToUDP(payload, net.UDPAddrFromAddrPort(dst))
	return err
}

// Dispose closes the socket, ending Run.
func (t *Transmitter) Dispose() error {
	t.closed.Store(true)
	err := t.conn.Close()
	<-t.done
	return err
}
