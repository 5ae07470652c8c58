// Package pushclient bridges a browser's Push API to the subscription endpoints
// of the server. web/static/push-client.js is the in-browser implementation;
// this package drives the same flow against an abstract Browser so it can be
// exercised from Go (and from headless test harnesses).
package pushclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/vapid"
)

// Service worker registration parameters.
const (
	WorkerScript = "/sw.js"
	WorkerScope  = "/"
)

var (
	ErrUnsupported      = errors.New("push notifications are not supported by this browser")
	ErrPermissionDenied = errors.New("notification permission denied")
)

// Permission mirrors Notification.permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Capabilities reports which browser APIs exist.
type Capabilities struct {
	ServiceWorker bool
	PushManager   bool
	Notification  bool
}

func (c Capabilities) supported() bool {
	return c.ServiceWorker && c.PushManager && c.Notification
}

// BrowserSubscription is a live PushSubscription object.
type BrowserSubscription interface {
	Endpoint() string
	Keys() models.SubscriptionKeys
	Unsubscribe(ctx context.Context) error
}

// Registration is a ServiceWorkerRegistration's pushManager.
type Registration interface {
	// Subscription returns the current subscription, if any.
	Subscription(ctx context.Context) (BrowserSubscription, bool, error)
	Subscribe(ctx context.Context, applicationServerKey []byte) (BrowserSubscription, error)
}

type Browser interface {
	Capabilities() Capabilities
	Permission() Permission
	// RequestPermission prompts the user. Browsers only prompt once.
	RequestPermission(ctx context.Context) (Permission, error)
	// Register registers the worker or returns the existing registration.
	Register(ctx context.Context, script, scope string) (Registration, error)
	// Registration returns the existing registration without creating one.
	Registration(ctx context.Context) (Registration, bool, error)
}

// API is the server side of the subscription flow.
type API interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	SaveSubscription(ctx context.Context, token string, req models.SubscriptionRequest) error
	DeleteSubscription(ctx context.Context, token, endpoint string) error
}

// Session returns the bearer token of the signed-in user, or "" when signed out.
type Session func() string

type Manager struct {
	browser   Browser
	api       API
	session   Session
	publicKey string
}

// NewManager creates a Manager. When publicKey is empty it is fetched from the
// API on first use.
func NewManager(browser Browser, api API, session Session, publicKey string) *Manager {
	return &Manager{browser: browser, api: api, session: session, publicKey: publicKey}
}

func (m *Manager) token() (string, error) {
	if m.session == nil {
		return "", errs.ErrUnauthenticated
	}
	tok := m.session()
	if tok == "" {
		return "", errs.ErrUnauthenticated
	}
	return tok, nil
}

// Subscribe asks for permission, subscribes the browser and stores the
// subscription for the signed-in user. A denied permission leaves no trace.
func (m *Manager) Subscribe(ctx context.Context) (models.SubscriptionRequest, error) {
	tok, err := m.token()
	if err != nil {
		return models.SubscriptionRequest{}, err
	}
	if !m.browser.Capabilities().supported() {
		return models.SubscriptionRequest{}, ErrUnsupported
	}
	if err := m.ensurePermission(ctx); err != nil {
		return models.SubscriptionRequest{}, err
	}

	key, err := m.applicationServerKey(ctx)
	if err != nil {
		return models.SubscriptionRequest{}, err
	}
	reg, err := m.browser.Register(ctx, WorkerScript, WorkerScope)
	if err != nil {
		return models.SubscriptionRequest{}, fmt.Errorf("register service worker: %w", err)
	}
	sub, ok, err := reg.Subscription(ctx)
	if err != nil {
		return models.SubscriptionRequest{}, err
	}
	if !ok {
		if sub, err = reg.Subscribe(ctx, key); err != nil {
			return models.SubscriptionRequest{}, fmt.Errorf("push subscribe: %w", err)
		}
	}

	req := models.SubscriptionRequest{Endpoint: sub.Endpoint(), Keys: sub.Keys()}
	if err := m.api.SaveSubscription(ctx, tok, req); err != nil {
		return models.SubscriptionRequest{}, fmt.Errorf("save subscription: %w", err)
	}
	return req, nil
}

func (m *Manager) ensurePermission(ctx context.Context) error {
	switch m.browser.Permission() {
	case PermissionGranted:
		return nil
	case PermissionDenied:
		return ErrPermissionDenied
	}
	p, err := m.browser.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if p != PermissionGranted {
		return ErrPermissionDenied
	}
	return nil
}

func (m *Manager) applicationServerKey(ctx context.Context) ([]byte, error) {
	if m.publicKey == "" {
		k, err := m.api.VAPIDPublicKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch vapid public key: %w", err)
		}
		m.publicKey = k
	}
	raw, err := vapid.DecodeBase64URL(m.publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vapid.ErrInvalidPublicKey, err)
	}
	if _, _, err := vapid.SplitPublicKey(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Unsubscribe drops the browser subscription and its stored row. It is a no-op
// when the browser has no subscription.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	tok, err := m.token()
	if err != nil {
		return err
	}
	sub, ok, err := m.current(ctx)
	if err != nil || !ok {
		return err
	}
	endpoint := sub.Endpoint()
	if err := sub.Unsubscribe(ctx); err != nil {
		return fmt.Errorf("push unsubscribe: %w", err)
	}
	if err := m.api.DeleteSubscription(ctx, tok, endpoint); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// CheckSubscription reports whether the browser holds a live subscription.
func (m *Manager) CheckSubscription(ctx context.Context) (bool, error) {
	if !m.browser.Capabilities().supported() {
		return false, nil
	}
	_, ok, err := m.current(ctx)
	return ok, err
}

func (m *Manager) current(ctx context.Context) (BrowserSubscription, bool, error) {
	reg, ok, err := m.browser.Registration(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return reg.Subscription(ctx)
}
