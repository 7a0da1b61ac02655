package handlers

import (
	"context"
	"encoding/json"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// HandleTcpProxyChannel implements §4.7 TcpProxyChannel: authenticate,
// then hand the stream to the session to be spliced with an outbound
// connection to the requested destination. Same ownership transfer as
// HandleTcpDatagramChannel.
func HandleTcpProxyChannel(ctx context.Context, stream application.ClientStream, deps Dependencies) (Outcome, error) {
	body, err := deps.Framer.ReadFrame(stream)
	if err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	var req domain.TcpProxyChannelRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	session, err := authenticate(ctx, deps, req.SessionId, req.SessionKey)
	if err != nil {
		return DisposeUngraceful, err
	}

	if err := deps.SessionManager.AttachProxyChannel(ctx, session.ID(), stream, req.Destination); err != nil {
		return DisposeUngraceful, err
	}

	return HandedOff, nil
}
