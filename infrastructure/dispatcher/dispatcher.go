package dispatcher

import (
	"errors"
	"fmt"
	"io"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// knownCodes is the complete set of request codes the protocol defines.
var knownCodes = map[domain.RequestCode]bool{
	domain.Hello:              true,
	domain.TcpDatagramChannel: true,
	domain.TcpProxyChannel:    true,
	domain.UdpChannel:         true,
	domain.Bye:                true,
}

// ReadRequestCode reads exactly one byte, the RequestCode, from r.
//
// A clean close before any byte is read is reported as
// *application.TransportClosedError (benign, trace-log only). Any other
// read failure, or a byte that does not name a known request, is
// reported as *application.RequestParseError — the pipeline answers both
// with the anonymous 401 reply.
func ReadRequestCode(r io.Reader) (domain.RequestCode, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, &application.TransportClosedError{Cause: err}
		}
		return 0, &application.RequestParseError{Cause: err}
	}

	code := domain.RequestCode(b[0])
	if !knownCodes[code] {
		return 0, &application.RequestParseError{Cause: fmt.Errorf("unknown request code 0x%02x", b[0])}
	}
	return code, nil
}
