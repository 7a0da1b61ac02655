package host

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"tunnelhost/application"
	"tunnelhost/domain"
	"tunnelhost/infrastructure/dispatcher"
	"tunnelhost/infrastructure/handlers"
)

// serveConnection runs the per-connection pipeline in §4.6: TLS-authenticate,
// sniff the transport, then process request/response exchanges until the
// stream is disposed, handed off, or reuse is exhausted.
func (h *ConnectionHost) serveConnection(ctx context.Context, conn net.Conn) {
	handshakeCtx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	tlsConn, err := h.acceptor.Handshake(handshakeCtx, conn)
	if err != nil {
		h.logErr(err)
		_ = conn.Close()
		return
	}

	stream, reusable, err := sniffStream(tlsConn)
	if err != nil {
		if isTransportClosed(err) {
			return
		}
		h.logErr(err)
		h.replyAnonymous(tlsConn)
		_ = tlsConn.Close()
		return
	}

	for {
		_ = tlsConn.SetDeadline(time.Now().Add(h.requestTimeout))
		exchangeCtx, exchangeCancel := context.WithTimeout(ctx, h.requestTimeout)
		outcome, err := h.serveExchange(exchangeCtx, stream)
		exchangeCancel()

		if err != nil {
			h.handleExchangeError(stream, err)
			return
		}

		switch outcome {
		case handlers.HandedOff:
			// Ownership transferred to the session manager.
		case handlers.DisposeGraceful:
			if reusable != nil && reusable.Reuse() {
				continue
			}
			_ = stream.Dispose(true)
		default:
			_ = stream.Dispose(false)
		}
		return
	}
}

// serveExchange reads one RequestCode and dispatches to its handler.
func (h *ConnectionHost) serveExchange(ctx context.Context, stream application.ClientStream) (handlers.Outcome, error) {
	code, err := dispatcher.ReadRequestCode(stream)
	if err != nil {
		return handlers.DisposeUngraceful, err
	}

	switch code {
	case domain.Hello:
		return handlers.HandleHello(ctx, stream, h.deps, stream.RemoteAddr())
	case domain.TcpDatagramChannel:
		return handlers.HandleTcpDatagramChannel(ctx, stream, h.deps)
	case domain.TcpProxyChannel:
		return handlers.HandleTcpProxyChannel(ctx, stream, h.deps)
	case domain.UdpChannel:
		return handlers.HandleUdpChannel(ctx, stream, h.deps)
	case domain.Bye:
		return handlers.HandleBye(ctx, stream, h.deps)
	default:
		return handlers.DisposeUngraceful, &application.RequestParseError{Cause: errInvalidDispatch}
	}
}

// handleExchangeError implements §4.8: a *SessionError gets a structured
// reply, everything else gets the anonymous 401.
func (h *ConnectionHost) handleExchangeError(stream application.ClientStream, err error) {
	h.logErr(err)

	var sessionErr *application.SessionError
	if errors.As(err, &sessionErr) {
		_ = handlers.WriteSessionError(stream, h.deps.Framer, sessionErr.Code, sessionErr.Diagnostic)
		_ = stream.Dispose(false)
		return
	}

	if isTransportClosed(err) {
		_ = stream.Dispose(false)
		return
	}

	_ = handlers.WriteAnonymousReply(stream, time.Now())
	_ = stream.Dispose(false)
}

func (h *ConnectionHost) replyAnonymous(w io.Writer) {
	_ = handlers.WriteAnonymousReply(w, time.Now())
}

func (h *ConnectionHost) logErr(err error) {
	var selfLogging application.SelfLogging
	if errors.As(err, &selfLogging) {
		selfLogging.LogSelf(h.logger)
		return
	}
	h.logger.Printf("connection error: %v", err)
}

func isTransportClosed(err error) bool {
	var closedErr *application.TransportClosedError
	return errors.As(err, &closedErr)
}

var errInvalidDispatch = errors.New("dispatcher returned an unroutable request code")
