package handlers

import (
	"context"
	"encoding/json"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// HandleTcpDatagramChannel implements §4.7 TcpDatagramChannel: authenticate,
// then hand the stream to the session as a long-lived datagram channel.
// The host relinquishes ownership of stream on success.
func HandleTcpDatagramChannel(ctx context.Context, stream application.ClientStream, deps Dependencies) (Outcome, error) {
	body, err := deps.Framer.ReadFrame(stream)
	if err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	var req domain.TcpDatagramChannelRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	session, err := authenticate(ctx, deps, req.SessionId, req.SessionKey)
	if err != nil {
		return DisposeUngraceful, err
	}

	if err := deps.SessionManager.AttachDatagramChannel(ctx, session.ID(), stream); err != nil {
		return DisposeUngraceful, err
	}

	return HandedOff, nil
}
