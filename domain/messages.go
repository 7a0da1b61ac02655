package domain

// ClientInfo identifies the connecting client software.
type ClientInfo struct {
	ClientId        string `json:"ClientId"`
	ProtocolVersion int    `json:"ProtocolVersion"`
	ClientVersion   string `json:"ClientVersion"`
	UserAgent       string `json:"UserAgent"`
}

// HelloRequest is the body of the Hello request code.
type HelloRequest struct {
	TokenId        string     `json:"TokenId"`
	ClientInfo     ClientInfo `json:"ClientInfo"`
	UseUdpChannel  bool       `json:"UseUdpChannel"`
	UseUdpChannel2 bool       `json:"UseUdpChannel2"`
}

// RequestBase is embedded by every non-Hello request: it carries the
// session identity used to authenticate the request.
type RequestBase struct {
	SessionId   uint64 `json:"SessionId"`
	SessionKey  string `json:"SessionKey"`
	RequestId   string `json:"RequestId"`
}

// TcpDatagramChannelRequest asks the host to hand its ClientStream to the
// session as a long-lived datagram channel.
type TcpDatagramChannelRequest struct {
	RequestBase
}

// TcpProxyChannelRequest asks the host to splice its ClientStream with an
// outbound connection to Destination.
type TcpProxyChannelRequest struct {
	RequestBase
	Destination string `json:"Destination"`
	ProxyMeta   string `json:"ProxyMeta,omitempty"`
}

// UdpChannelRequest asks the session to enable its UDP channel.
type UdpChannelRequest struct {
	RequestBase
}

// ByeRequest closes a session.
type ByeRequest struct {
	RequestBase
}

// SessionResponseBase is the common envelope for every response that can
// carry a SessionErrorCode.
type SessionResponseBase struct {
	ErrorCode  SessionErrorCode `json:"ErrorCode"`
	Diagnostic string           `json:"Diagnostic,omitempty"`
}

// AccessUsage is a point-in-time snapshot of session accounting data, as
// reported by the external session manager.
type AccessUsage struct {
	UsedBytes  uint64 `json:"UsedBytes"`
	QuotaBytes uint64 `json:"QuotaBytes,omitempty"`
}

// HelloResponse answers a HelloRequest.
type HelloResponse struct {
	SessionResponseBase
	SessionId             uint64      `json:"SessionId"`
	SessionKey            string      `json:"SessionKey"`
	ServerSecret          string      `json:"ServerSecret"`
	TcpEndpoint           string      `json:"TcpEndpoint"`
	UdpEndpoint           string      `json:"UdpEndpoint,omitempty"`
	UdpKey                string      `json:"UdpKey,omitempty"`
	UdpPort               int         `json:"UdpPort"`
	ServerVersion          string     `json:"ServerVersion"`
	ServerProtocolVersion int         `json:"ServerProtocolVersion"`
	SuppressedBy          string      `json:"SuppressedBy,omitempty"`
	AccessUsage           AccessUsage `json:"AccessUsage"`
	MaxDatagramChannelCount int       `json:"MaxDatagramChannelCount"`
	ClientPublicAddress   string      `json:"ClientPublicAddress"`
	IncludeIpRanges       []string    `json:"IncludeIpRanges,omitempty"`
	ExcludeIpRanges       []string    `json:"ExcludeIpRanges,omitempty"`
	IsIPv6Supported       bool        `json:"IsIPv6Supported"`
}

// UdpChannelSessionResponse answers a UdpChannelRequest.
type UdpChannelSessionResponse struct {
	SessionResponseBase
	UdpKey  string `json:"UdpKey,omitempty"`
	UdpPort int    `json:"UdpPort"`
}
