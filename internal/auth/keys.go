// Package auth issues and verifies the bearer tokens and cookie sessions that
// identify Askify users, and runs the email one-time-code login.
package auth

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keyLen = 32

// Keys are derived from APP_SECRET so one secret covers every purpose.
type Keys struct {
	Token        []byte
	SessionHash  []byte
	SessionBlock []byte
}

// DeriveKeys expands secret into independent per-purpose keys with HKDF-SHA256.
func DeriveKeys(secret string) (Keys, error) {
	if len(secret) < keyLen {
		return Keys{}, errors.New("auth: secret must be at least 32 bytes")
	}
	derive := func(info string) ([]byte, error) {
		r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
		key := make([]byte, keyLen)
		_, err := io.ReadFull(r, key)
		return key, err
	}

	var k Keys
	var err error
	if k.Token, err = derive("askify/bearer-token"); err != nil {
		return Keys{}, err
	}
	if k.SessionHash, err = derive("askify/session-hash"); err != nil {
		return Keys{}, err
	}
	if k.SessionBlock, err = derive("askify/session-block"); err != nil {
		return Keys{}, err
	}
	return k, nil
}
