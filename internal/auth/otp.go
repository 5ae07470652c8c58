package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
)

// One-time code parameters.
const (
	OTPTTL         = 10 * time.Minute
	OTPDigits      = otp.DigitsSix
	OTPMaxAttempts = 5
	otpIssuer      = "Askify"
)

// userNamespace scopes the name-based user ids derived from email addresses.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://askify.app/users"))

// UserIDForEmail returns the stable user id of an email address.
func UserIDForEmail(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(NormalizeEmail(email))).String()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OTPStore keeps per-email secrets and attempt counters.
type OTPStore interface {
	SaveOTPSecret(ctx context.Context, email, secret string, ttl time.Duration) error
	GetOTPSecret(ctx context.Context, email string) (string, error)
	IncrOTPAttempts(ctx context.Context, email string, ttl time.Duration) (int64, error)
	DeleteOTP(ctx context.Context, email string) error
}

// Mailer delivers a code to the user.
type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogMailer only logs that a code was issued; the code itself is not logged.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) SendCode(_ context.Context, email, _ string) error {
	m.Log.Info("one-time code issued", zap.String("email", email))
	return nil
}

// Login is the result of a successful verification.
type Login struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type OTPService struct {
	store  OTPStore
	mailer Mailer
	tokens *Tokens
	now    func() time.Time
}

func NewOTPService(store OTPStore, mailer Mailer, tokens *Tokens) *OTPService {
	return &OTPService{store: store, mailer: mailer, tokens: tokens, now: time.Now}
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(OTPTTL / time.Second),
		Skew:      1,
		Digits:    OTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func parseEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", errs.ErrInvalidRequest)
	}
	return email, nil
}

// Send creates a fresh secret for email and mails the current code.
func (s *OTPService) Send(ctx context.Context, email string) error {
	email, err := parseEmail(email)
	if err != nil {
		return err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: email,
		Period:      uint(OTPTTL / time.Second),
		Digits:      OTPDigits,
	})
	if err != nil {
		return err
	}
	code, err := totp.GenerateCodeCustom(key.Secret(), s.now(), validateOpts())
	if err != nil {
		return err
	}
	if err := s.store.SaveOTPSecret(ctx, email, key.Secret(), OTPTTL); err != nil {
		return fmt.Errorf("save otp secret: %w", err)
	}
	return s.mailer.SendCode(ctx, email, code)
}

// Verify checks code and issues a bearer token. After OTPMaxAttempts wrong codes
// the secret is discarded and a new code must be requested.
func (s *OTPService) Verify(ctx context.Context, email, code string) (Login, error) {
	email, err := parseEmail(email)
	if err != nil {
		return Login{}, err
	}
	secret, err := s.store.GetOTPSecret(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return Login{}, errs.ErrInvalidOTP
	}
	if err != nil {
		return Login{}, err
	}

	attempts, err := s.store.IncrOTPAttempts(ctx, email, OTPTTL)
	if err != nil {
		return Login{}, err
	}
	if attempts > OTPMaxAttempts {
		if err := s.store.DeleteOTP(ctx, email); err != nil {
			return Login{}, err
		}
		return Login{}, errs.ErrTooManyAttempts
	}

	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), validateOpts())
	if err != nil || !ok {
		return Login{}, errs.ErrInvalidOTP
	}
	if err := s.store.DeleteOTP(ctx, email); err != nil {
		return Login{}, err
	}

	userID := UserIDForEmail(email)
	tok, exp, err := s.tokens.Issue(userID)
	if err != nil {
		return Login{}, err
	}
	return Login{UserID: userID, Token: tok, ExpiresAt: exp}, nil
}
