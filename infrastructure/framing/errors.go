package framing

import "errors"

var (
	ErrFrameCapExceeded = errors.New("frame exceeds maximum allowed frame size")
	ErrZeroLengthFrame  = errors.New("zero length frame")
)
