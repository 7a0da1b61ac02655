package domain

// RequestCode tags the single byte that opens every request read from a
// ClientStream. Exact numeric values are stable once assigned.
type RequestCode byte

const (
	Hello               RequestCode = 0x01
	TcpDatagramChannel  RequestCode = 0x02
	TcpProxyChannel     RequestCode = 0x03
	UdpChannel          RequestCode = 0x04
	Bye                 RequestCode = 0x05
)

// ServerProtocolVersion is sent on every HelloResponse. The raw transport's
// version byte (0x01) also happens to equal Hello's request code; no
// version-negotiation story exists yet for a future non-legacy raw version,
// so the collision is left as-is.
const ServerProtocolVersion = 3

// TransportSniffByte values recognized immediately after the TLS handshake.
const (
	RawTransportByte     byte = 0x01
	ChunkedTransportByte byte = 0x50 // ASCII 'P'
)

// SessionErrorCode enumerates the structured error codes a SessionResponseBase
// may carry.
type SessionErrorCode string

const (
	ErrCodeOk                SessionErrorCode = "Ok"
	ErrCodeGeneralError      SessionErrorCode = "GeneralError"
	ErrCodeUnsupportedClient SessionErrorCode = "UnsupportedClient"
	ErrCodeUnknownSession    SessionErrorCode = "UnknownSession"
	ErrCodeBadSessionKey     SessionErrorCode = "BadSessionKey"
)
