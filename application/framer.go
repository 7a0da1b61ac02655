package application

import "io"

// Framer reads and writes length-delimited, JSON-bodied messages over a
// byte stream: a 4-byte little-endian length prefix followed by UTF-8
// JSON. A declared length beyond the configured ceiling, or a missing
// prefix, is an error. Writes are atomic from the framer's perspective:
// on a partial write the caller must dispose the stream without reuse.
type Framer interface {
	// ReadFrame reads exactly one frame's JSON body from r.
	ReadFrame(r io.Reader) ([]byte, error)
	// WriteFrame writes body as one frame to w.
	WriteFrame(w io.Writer, body []byte) error
}
