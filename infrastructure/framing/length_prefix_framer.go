package framing

import (
	"encoding/binary"
	"fmt"
	"io"

	"tunnelhost/application"
)

// LengthPrefixFramer implements application.Framer with a 4-byte
// little-endian length prefix followed by a JSON body, per §4.1 and §6 of
// the wire protocol. Reading fails if the declared length exceeds cap.
// LengthPrefixFramer holds no per-stream state and is safe to share
// across connections.
type LengthPrefixFramer struct {
	cap uint32
}

// NewLengthPrefixFramer constructs a framer that rejects any declared
// length greater than frameCap bytes.
func NewLengthPrefixFramer(frameCap uint32) application.Framer {
	return &LengthPrefixFramer{cap: frameCap}
}

func (f *LengthPrefixFramer) ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read length prefix: %w", err)
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length == 0 {
		return nil, ErrZeroLengthFrame
	}
	if length > f.cap {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameCapExceeded, length, f.cap)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}

// WriteFrame writes body as one frame. A partial underlying write is
// reported to the caller, who must dispose the stream without reuse.
func (f *LengthPrefixFramer) WriteFrame(w io.Writer, body []byte) error {
	if uint32(len(body)) > f.cap {
		return fmt.Errorf("%w: %d > %d", ErrFrameCapExceeded, len(body), f.cap)
	}
	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], body)
	return writeFull(w, buf)
}

func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if n > 0 {
			p = p[n:]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
