package vapid

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a signed token stays valid.
const TokenTTL = 24 * time.Hour

// ErrInvalidEndpoint is returned when the push endpoint has no origin to use as audience.
var ErrInvalidEndpoint = errors.New("vapid: endpoint has no scheme/host")

// Token is a signed VAPID JWT together with the public key the push service
// checks it against.
type Token struct {
	JWT       string
	PublicKey string
	ExpiresAt time.Time
}

// Authorization renders the value of the Authorization header.
func (t Token) Authorization() string {
	return "vapid t=" + t.JWT + ", k=" + t.PublicKey
}

// Signer produces VAPID tokens. It is immutable and safe for concurrent use.
type Signer struct {
	key       crypto.Signer
	publicKey string
	subject   string
	now       func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the time source used for the exp claim.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// NewSigner imports pair and returns a signer identifying itself with subject
// (a mailto: or https: contact URI).
func NewSigner(pair KeyPair, subject string, opts ...Option) (*Signer, error) {
	priv, err := ParsePrivateKey(pair)
	if err != nil {
		return nil, err
	}
	return NewSignerFromKey(priv, subject, opts...)
}

// NewSignerFromKey wraps any crypto.Signer backed by a P-256 ECDSA key, such as
// a software key or an HSM/KMS handle.
func NewSignerFromKey(key crypto.Signer, subject string, opts ...Option) (*Signer, error) {
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: signer is not a P-256 ECDSA key", ErrInvalidPrivateKey)
	}
	encoded, err := EncodePublicKey(pub)
	if err != nil {
		return nil, err
	}

	s := &Signer{
		key:       key,
		publicKey: encoded,
		subject:   subject,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PublicKey returns the base64url public key sent as the k= parameter.
func (s *Signer) PublicKey() string { return s.publicKey }

// Sign builds and signs the token for a push to endpoint.
func (s *Signer) Sign(endpoint string) (Token, error) {
	aud, err := Audience(endpoint)
	if err != nil {
		return Token{}, err
	}
	exp := s.now().Add(TokenTTL)

	claims := jwt.MapClaims{
		"aud": aud,
		"exp": exp.Unix(),
	}
	if s.subject != "" {
		claims["sub"] = s.subject
	}
	signingString, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SigningString()
	if err != nil {
		return Token{}, fmt.Errorf("vapid: encode token: %w", err)
	}

	digest := sha256.Sum256([]byte(signingString))
	sig, err := s.key.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return Token{}, fmt.Errorf("vapid: sign token: %w", err)
	}
	raw, err := RawSignature(sig)
	if err != nil {
		return Token{}, err
	}

	return Token{
		JWT:       signingString + "." + base64.RawURLEncoding.EncodeToString(raw),
		PublicKey: s.publicKey,
		ExpiresAt: exp,
	}, nil
}

// Audience returns the origin (scheme://host[:port]) of endpoint.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}
