package vapid

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

func derSignature(t *testing.T, r, s *big.Int) []byte {
	t.Helper()
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	out, err := b.Bytes()
	require.NoError(t, err)
	return out
}

func TestRawSignature_DERPadding(t *testing.T) {
	// r has its high bit set, so DER prefixes a 0x00; s is a single byte.
	r := new(big.Int).Lsh(big.NewInt(1), 255)
	r.Add(r, big.NewInt(5))
	s := big.NewInt(7)

	der := derSignature(t, r, s)
	raw, err := RawSignature(der)
	require.NoError(t, err)
	require.Len(t, raw, 64)

	assert.Equal(t, r.FillBytes(make([]byte, 32)), raw[:32])
	assert.Equal(t, append(make([]byte, 31), 0x07), raw[32:])
}

func TestRawSignature_DERRandom(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	for i := 0; i < 64; i++ {
		r, err := rand.Int(rand.Reader, max)
		require.NoError(t, err)
		s, err := rand.Int(rand.Reader, new(big.Int).Rsh(max, uint(i%40)))
		require.NoError(t, err)

		raw, err := RawSignature(derSignature(t, r, s))
		require.NoError(t, err)
		require.Len(t, raw, 64)
		assert.Equal(t, 0, r.Cmp(new(big.Int).SetBytes(raw[:32])))
		assert.Equal(t, 0, s.Cmp(new(big.Int).SetBytes(raw[32:])))
	}
}

func TestRawSignature_AlreadyRaw(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 64)
	got, err := RawSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestRawSignature_Invalid(t *testing.T) {
	_, err := RawSignature([]byte{0x30, 0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = RawSignature(nil)
	require.ErrorIs(t, err, ErrInvalidSignature)

	// 33 significant bytes cannot fit a P-256 component.
	tooBig := new(big.Int).Lsh(big.NewInt(1), 264)
	_, err = RawSignature(derSignature(t, tooBig, big.NewInt(1)))
	require.ErrorIs(t, err, ErrInvalidSignature)

	trailing := append(derSignature(t, big.NewInt(1), big.NewInt(2)), 0x00)
	_, err = RawSignature(trailing)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
