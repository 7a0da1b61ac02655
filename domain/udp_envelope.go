package domain

import "encoding/binary"

// UDPRouteIDLength is the size, in bytes, of the session id prefix carried
// by every UDP datagram. It is readable without touching the ciphertext
// that follows, so the transmitter can demux without decrypting.
const UDPRouteIDLength = 8

// MinUDPEnvelopeLength is the shortest a well-formed datagram can be: the
// session id prefix plus at least one byte of cryptographic framing.
const MinUDPEnvelopeLength = UDPRouteIDLength + 1

// ReadUDPRouteID extracts the little-endian session id prefix from a raw
// UDP datagram. The caller must ensure len(packet) >= UDPRouteIDLength.
func ReadUDPRouteID(packet []byte) uint64 {
	return binary.LittleEndian.Uint64(packet[:UDPRouteIDLength])
}

// PutUDPRouteID writes id as the little-endian session id prefix of packet.
// The caller must ensure len(packet) >= UDPRouteIDLength.
func PutUDPRouteID(packet []byte, id uint64) {
	binary.LittleEndian.PutUint64(packet[:UDPRouteIDLength], id)
}
