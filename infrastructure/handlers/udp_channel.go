package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// HandleUdpChannel implements §4.7 UdpChannel: authenticate, enable the
// session's UDP channel, and reply with its key and bound port.
func HandleUdpChannel(ctx context.Context, stream application.ClientStream, deps Dependencies) (Outcome, error) {
	body, err := deps.Framer.ReadFrame(stream)
	if err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	var req domain.UdpChannelRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	session, err := authenticate(ctx, deps, req.SessionId, req.SessionKey)
	if err != nil {
		return DisposeUngraceful, err
	}

	udpKey, udpPort, err := deps.SessionManager.EnableUDP(ctx, session.ID())
	if err != nil {
		return DisposeUngraceful, err
	}

	resp := domain.UdpChannelSessionResponse{
		SessionResponseBase: domain.SessionResponseBase{ErrorCode: domain.ErrCodeOk},
		UdpKey:               hex.EncodeToString(udpKey),
		UdpPort:              udpPort,
	}
	respBody, err := json.Marshal(resp)
	if err != nil {
		return DisposeUngraceful, err
	}
	if err := deps.Framer.WriteFrame(stream, respBody); err != nil {
		return DisposeUngraceful, err
	}

	return DisposeGraceful, nil
}
