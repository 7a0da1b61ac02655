package host

import (
	"fmt"
	"io"
	"net"

	"tunnelhost/application"
	"tunnelhost/domain"
	"tunnelhost/infrastructure/clientstream"
)

// sniffStream reads the transport version byte and builds the matching
// ClientStream variant. reusable is non-nil only for the chunked variant.
func sniffStream(conn net.Conn) (stream application.ClientStream, reusable application.ReusableClientStream, err error) {
	var b [1]byte
	if _, err := io.ReadFull(conn, b[:]); err != nil {
		return nil, nil, &application.TransportClosedError{Cause: err}
	}

	switch b[0] {
	case domain.RawTransportByte:
		return clientstream.NewRawStream(conn), nil, nil
	case domain.ChunkedTransportByte:
		cs, err := clientstream.NewChunkedStream(conn, b[0])
		if err != nil {
			return nil, nil, &application.RequestParseError{Cause: err}
		}
		return cs, cs, nil
	default:
		return nil, nil, &application.RequestParseError{Cause: fmt.Errorf("unsupported transport sniff byte 0x%02x", b[0])}
	}
}
