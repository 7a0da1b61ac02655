package application

import (
	"io"
	"net/netip"
)

// ReusableClientStream is the capability trait a ClientStream implements
// when it is able to hand itself back to the host for another
// request/response exchange. The raw variant does not implement it; the
// chunked-reusable variant does. The reuse callback itself lives on the
// host, not the stream: a reusable stream only announces "I am reusable,
// here I am" by calling back into the host.
type ReusableClientStream interface {
	ClientStream
	// Reuse arranges for the next pipelined request on this stream to be
	// readable, returning false once no further request can be read
	// (peer closed, idle timeout, parse error).
	Reuse() bool
}

// ClientStream is a logical connection carrying one or more
// request/response exchanges. It is read like a io.Reader/io.Writer.
type ClientStream interface {
	io.Reader
	io.Writer

	RemoteAddr() netip.AddrPort
	LocalAddr() netip.AddrPort

	// Dispose ends the stream. graceful controls whether a clean
	// shutdown sequence (e.g. the chunked variant's terminating
	// zero-length chunk) is attempted before closing the socket.
	Dispose(graceful bool) error
}
