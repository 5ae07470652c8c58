package vapid

import (
	"errors"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ErrInvalidSignature is returned for signatures that are neither DER nor raw r||s.
var ErrInvalidSignature = errors.New("vapid: malformed ECDSA signature")

// RawSignature converts an ECDSA P-256 signature to the 64-byte r||s form JWS
// requires. DER input (SEQUENCE of two INTEGERs) is unpacked with each integer
// stripped of leading zeros and left-padded to 32 bytes; a 64-byte raw signature
// is returned unchanged.
func RawSignature(sig []byte) ([]byte, error) {
	if out, ok := parseDER(sig); ok {
		return out, nil
	}
	if len(sig) == 2*coordinateSize {
		return sig, nil
	}
	return nil, ErrInvalidSignature
}

func parseDER(sig []byte) ([]byte, bool) {
	var inner, r, s cryptobyte.String
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1(&r, asn1.INTEGER) ||
		!inner.ReadASN1(&s, asn1.INTEGER) ||
		!inner.Empty() {
		return nil, false
	}

	out := make([]byte, 2*coordinateSize)
	if !putPadded(out[:coordinateSize], r) || !putPadded(out[coordinateSize:], s) {
		return nil, false
	}
	return out, true
}

func putPadded(dst, v []byte) bool {
	for len(v) > 0 && v[0] == 0 {
		v = v[1:]
	}
	if len(v) > len(dst) {
		return false
	}
	copy(dst[len(dst)-len(v):], v)
	return true
}
