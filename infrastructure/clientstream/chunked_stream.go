package clientstream

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/netip"

	"tunnelhost/application"
)

// chunkedResponseHeader is the literal status line and header block
// written before every chunked response body. The wire format is literal
// HTTP/1.1 chunked transfer-encoding, not a higher-level framework, so it
// is written by hand rather than through net/http's server.
const chunkedResponseHeader = "HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nTransfer-Encoding: chunked\r\n\r\n"

// ChunkedStream carries request/response exchanges inside HTTP/1.1
// chunked transfer-encoding framing, itself carried inside the TLS
// stream. The sentinel first byte ('P', 0x50) read during transport
// sniffing is fed back into the request parser so the first request line
// parses correctly. After a response body is fully written, Reuse
// terminates the chunked body and primes the next pipelined request on
// the same connection; it is never safe to close the TLS connection
// between exchanges if further reuse is expected.
type ChunkedStream struct {
	conn   net.Conn
	br     *bufio.Reader
	remote netip.AddrPort
	local  netip.AddrPort

	curReq        *http.Request
	curBody       io.ReadCloser
	chunkedWriter io.WriteCloser
	headerWritten bool
}

var (
	_ application.ClientStream        = (*ChunkedStream)(nil)
	_ application.ReusableClientStream = (*ChunkedStream)(nil)
)

// NewChunkedStream builds a ChunkedStream over conn, given the sniffed
// first byte that was already consumed off the wire.
func NewChunkedStream(conn net.Conn, sniffedByte byte) (*ChunkedStream, error) {
	cs := &ChunkedStream{
		conn:   conn,
		br:     bufio.NewReader(io.MultiReader(bytes.NewReader([]byte{sniffedByte}), conn)),
		remote: addrPort(conn.RemoteAddr()),
		local:  addrPort(conn.LocalAddr()),
	}
	if err := cs.primeRequest(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *ChunkedStream) primeRequest() error {
	req, err := http.ReadRequest(cs.br)
	if err != nil {
		return err
	}
	cs.curReq = req
	cs.curBody = req.Body
	cs.headerWritten = false
	return nil
}

func (cs *ChunkedStream) Read(p []byte) (int, error) {
	if cs.curBody == nil {
		return 0, io.EOF
	}
	return cs.curBody.Read(p)
}

// Write lazily emits the response status line and headers on the first
// call of an exchange, then forwards bytes through the chunked writer.
func (cs *ChunkedStream) Write(p []byte) (int, error) {
	if !cs.headerWritten {
		if _, err := io.WriteString(cs.conn, chunkedResponseHeader); err != nil {
			return 0, err
		}
		cs.chunkedWriter = httputil.NewChunkedWriter(cs.conn)
		cs.headerWritten = true
	}
	return cs.chunkedWriter.Write(p)
}

func (cs *ChunkedStream) RemoteAddr() netip.AddrPort { return cs.remote }
func (cs *ChunkedStream) LocalAddr() netip.AddrPort  { return cs.local }

// Reuse closes the current response's chunked body (writing its
// terminating zero-length chunk) and attempts to parse the next
// pipelined request off the same connection. It returns false, without
// closing the connection, when no further request could be read.
func (cs *ChunkedStream) Reuse() bool {
	cs.finishResponse()
	if cs.curBody != nil {
		_ = cs.curBody.Close()
		cs.curBody = nil
	}
	return cs.primeRequest() == nil
}

func (cs *ChunkedStream) finishResponse() {
	if cs.chunkedWriter != nil {
		_ = cs.chunkedWriter.Close()
		// The chunked writer stops after the zero-length chunk; the CRLF
		// that ends the (empty) trailer section is written here.
		_, _ = io.WriteString(cs.conn, "\r\n")
		cs.chunkedWriter = nil
	}
}

// Dispose ends the stream. A graceful dispose finishes any in-flight
// chunked response (sending the final zero-length chunk) before closing;
// an ungraceful dispose closes immediately.
func (cs *ChunkedStream) Dispose(graceful bool) error {
	if graceful {
		cs.finishResponse()
	}
	if cs.curBody != nil {
		_ = cs.curBody.Close()
	}
	return cs.conn.Close()
}
