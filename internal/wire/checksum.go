package wire

import (
	gheader "gvisor.dev/gvisor/pkg/tcpip/header"
)

// InternetChecksum computes the RFC 1071 one's-complement checksum of b,
// as used by the IPv4 header and (with a pseudo-header) TCP/UDP. The
// running-sum arithmetic is delegated to gvisor's header package rather
// than re-derived here; only the final one's-complement fold is ours.
func InternetChecksum(b []byte) uint16 {
	return ^gheader.Checksum(b, 0)
}

// InternetChecksumWithInitial folds in a precomputed partial sum (e.g. a
// pseudo-header) before completing the checksum.
func InternetChecksumWithInitial(b []byte, initial uint16) uint16 {
	return ^gheader.Checksum(b, initial)
}
