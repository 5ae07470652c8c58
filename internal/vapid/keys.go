// Package vapid signs Web Push requests with Voluntary Application Server
// Identification tokens (RFC 8292).
//
// ref: https://datatracker.ietf.org/doc/html/rfc8292
package vapid

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	coordinateSize    = 32
	publicKeySize     = 1 + 2*coordinateSize
	uncompressedPoint = 0x04
)

var (
	ErrInvalidPublicKey  = errors.New("vapid: public key is not a 65-byte uncompressed P-256 point")
	ErrInvalidPrivateKey = errors.New("vapid: private key is not a 32-byte P-256 scalar")
	ErrKeyMismatch       = errors.New("vapid: private key does not match public key")
)

// KeyPair holds the application server key pair as configured: the public key is
// the base64url uncompressed point, the private key the base64url raw scalar.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Empty reports whether either half of the pair is missing.
func (k KeyPair) Empty() bool {
	return strings.TrimSpace(k.PublicKey) == "" || strings.TrimSpace(k.PrivateKey) == ""
}

// DecodeBase64URL decodes base64url with or without padding. Standard-alphabet
// input is accepted as well since keys are often pasted from other tools.
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

// DecodePublicKey decodes a base64url public key and splits it into its x and y
// coordinates.
func DecodePublicKey(b64 string) (x, y []byte, err error) {
	raw, err := DecodeBase64URL(b64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return SplitPublicKey(raw)
}

// SplitPublicKey splits a 65-byte uncompressed point (0x04 || x || y) into x and y.
func SplitPublicKey(raw []byte) (x, y []byte, err error) {
	if len(raw) != publicKeySize || raw[0] != uncompressedPoint {
		return nil, nil, ErrInvalidPublicKey
	}
	if _, err := ecdh.P256().NewPublicKey(raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	x = bytes.Clone(raw[1 : 1+coordinateSize])
	y = bytes.Clone(raw[1+coordinateSize:])
	return x, y, nil
}

// JoinPublicKey is the inverse of SplitPublicKey.
func JoinPublicKey(x, y []byte) []byte {
	out := make([]byte, 0, publicKeySize)
	out = append(out, uncompressedPoint)
	out = append(out, x...)
	return append(out, y...)
}

// ParsePrivateKey imports the scalar together with the public point into an
// ECDSA P-256 signing key.
func ParsePrivateKey(pair KeyPair) (*ecdsa.PrivateKey, error) {
	x, y, err := DecodePublicKey(pair.PublicKey)
	if err != nil {
		return nil, err
	}
	d, err := DecodeBase64URL(pair.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if len(d) != coordinateSize {
		return nil, ErrInvalidPrivateKey
	}
	priv, err := ecdh.P256().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if !bytes.Equal(priv.PublicKey().Bytes(), JoinPublicKey(x, y)) {
		return nil, ErrKeyMismatch
	}

	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		},
		D: new(big.Int).SetBytes(d),
	}, nil
}

// EncodePublicKey returns the base64url uncompressed point of pub.
func EncodePublicKey(pub *ecdsa.PublicKey) (string, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return "", ErrInvalidPublicKey
	}
	k, err := pub.ECDH()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return base64.RawURLEncoding.EncodeToString(k.Bytes()), nil
}

// EncodeKeyPair renders priv in the configured KeyPair format.
func EncodeKeyPair(priv *ecdsa.PrivateKey) (KeyPair, error) {
	pub, err := EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, err
	}
	d := priv.D.FillBytes(make([]byte, coordinateSize))
	return KeyPair{
		PublicKey:  pub,
		PrivateKey: base64.RawURLEncoding.EncodeToString(d),
	}, nil
}
