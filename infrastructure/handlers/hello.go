package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// minSupportedProtocolVersion is the oldest client protocol version this
// host still serves. Validated deliberately after session creation so the
// wire cannot distinguish an unknown client from a known-old one.
const minSupportedProtocolVersion = 2

// HandleHello implements §4.7 Hello: create the session first, validate
// the client's protocol version only after, and reply with either a
// HelloResponse or an UnsupportedClient session error.
func HandleHello(ctx context.Context, stream application.ClientStream, deps Dependencies, remote netip.AddrPort) (Outcome, error) {
	body, err := deps.Framer.ReadFrame(stream)
	if err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	var req domain.HelloRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	session, sessionKey, usage, err := deps.SessionManager.CreateSession(ctx, req, remote)
	if err != nil {
		return DisposeUngraceful, err
	}
	session.SetUseUDPChannel(req.UseUdpChannel)

	// Checked only after create_session, by design: an UnsupportedClient
	// reply must not be distinguishable on the wire from a reply to a
	// known-old client that was simply rejected later.
	if req.ClientInfo.ProtocolVersion < minSupportedProtocolVersion {
		return DisposeUngraceful, application.NewSessionError(domain.ErrCodeUnsupportedClient, "")
	}

	var udpKeyBytes []byte
	udpPort := 0
	if req.UseUdpChannel {
		udpKeyBytes, udpPort, err = deps.SessionManager.EnableUDP(ctx, session.ID())
		if err != nil {
			return DisposeUngraceful, err
		}
		if req.UseUdpChannel2 {
			udpKeyBytes = sessionKey
		}
	}

	resp := domain.HelloResponse{
		SessionResponseBase:     domain.SessionResponseBase{ErrorCode: domain.ErrCodeOk},
		SessionId:               uint64(session.ID()),
		SessionKey:              hex.EncodeToString(sessionKey),
		ServerSecret:            "",
		TcpEndpoint:             deps.TCPEndpoint,
		UdpEndpoint:             deps.UDPEndpoint,
		UdpPort:                 udpPort,
		ServerVersion:           deps.ServerVersion,
		ServerProtocolVersion:   domain.ServerProtocolVersion,
		AccessUsage:             usage,
		MaxDatagramChannelCount: deps.Filter.MaxDatagramChannelCount,
		ClientPublicAddress:     remote.Addr().String(),
		IncludeIpRanges:         deps.Filter.IncludeIpRanges,
		ExcludeIpRanges:         deps.Filter.ExcludeIpRanges,
		IsIPv6Supported:         deps.Filter.IsIPv6Supported,
	}
	if udpKeyBytes != nil {
		resp.UdpKey = hex.EncodeToString(udpKeyBytes)
	}

	respBody, err := json.Marshal(resp)
	if err != nil {
		return DisposeUngraceful, fmt.Errorf("marshal HelloResponse: %w", err)
	}
	if err := deps.Framer.WriteFrame(stream, respBody); err != nil {
		return DisposeUngraceful, err
	}

	// The pipeline disposes a raw stream gracefully here and offers a
	// reusable (chunked) stream back for another exchange first.
	return DisposeGraceful, nil
}
