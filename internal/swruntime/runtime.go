// Package swruntime models the Askify service worker: install/activate
// lifecycle, push rendering, notification-click routing and the offline
// navigation fallback. web/static/sw.js implements the same behaviour in the
// browser; this package is the reference the server and tests rely on.
//
// Every handler returns only after its asynchronous work has finished, which is
// what event.waitUntil/respondWith guarantee in the browser.
package swruntime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// OfflinePage is pre-cached on install and served when navigation fails.
const OfflinePage = "/offline.html"

// MessageNotificationClick is the type of the message posted to a focused client.
const MessageNotificationClick = "NOTIFICATION_CLICK"

var (
	ErrNotActive = errors.New("swruntime: worker is not active")
	ErrOffline   = errors.New("swruntime: network failed and no offline page cached")
)

// State is the worker lifecycle state.
type State int

const (
	StateParsed State = iota
	StateInstalled
	StateActivated
	StateRedundant
)

// Request is an intercepted fetch.
type Request struct {
	URL  string
	Mode string
}

// Response is a cached or fetched response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Cache is one named cache.
type Cache interface {
	Put(ctx context.Context, url string, resp Response) error
	Match(ctx context.Context, url string) (Response, bool, error)
}

// CacheStorage is the worker's caches global.
type CacheStorage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Client is a window controlled (or controllable) by the worker.
type Client interface {
	URL() string
	Focus(ctx context.Context) error
	PostMessage(ctx context.Context, msg any) error
	Navigate(ctx context.Context, url string) error
}

// Clients is the worker's clients global.
type Clients interface {
	MatchWindows(ctx context.Context) ([]Client, error)
	OpenWindow(ctx context.Context, url string) error
	Claim(ctx context.Context) error
}

// Notifier is registration.showNotification.
type Notifier interface {
	ShowNotification(ctx context.Context, n Notification) error
}

// Network performs a real fetch.
type Network func(ctx context.Context, req Request) (Response, error)

// ClickMessage is posted to the focused client on notification click.
type ClickMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ClickEvent is a notificationclick event.
type ClickEvent struct {
	Notification Notification
	Action       string
	// Close dismisses the notification from the tray.
	Close func()
}

type Runtime struct {
	version  string
	origin   *url.URL
	caches   CacheStorage
	clients  Clients
	notifier Notifier
	network  Network
	now      func() time.Time

	state       State
	skipWaiting bool
}

// Config wires a Runtime to its environment.
type Config struct {
	// Version is the current cache name; other caches are evicted on activate.
	Version  string
	Origin   string
	Caches   CacheStorage
	Clients  Clients
	Notifier Notifier
	Network  Network
	Clock    func() time.Time
}

func New(cfg Config) (*Runtime, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("swruntime: invalid origin %q", cfg.Origin)
	}
	if cfg.Version == "" {
		return nil, errors.New("swruntime: cache version is required")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Runtime{
		version:  cfg.Version,
		origin:   origin,
		caches:   cfg.Caches,
		clients:  cfg.Clients,
		notifier: cfg.Notifier,
		network:  cfg.Network,
		now:      now,
	}, nil
}

func (r *Runtime) State() State { return r.state }

// SkipWaiting reports whether install asked to activate without waiting for
// old clients to close.
func (r *Runtime) SkipWaiting() bool { return r.skipWaiting }

// Install pre-caches the offline page and skips waiting.
func (r *Runtime) Install(ctx context.Context) error {
	resp, err := r.network(ctx, Request{URL: r.resolve(OfflinePage), Mode: "no-cors"})
	if err != nil {
		r.state = StateRedundant
		return fmt.Errorf("swruntime: precache %s: %w", OfflinePage, err)
	}
	cache, err := r.caches.Open(ctx, r.version)
	if err != nil {
		r.state = StateRedundant
		return err
	}
	if err := cache.Put(ctx, OfflinePage, resp); err != nil {
		r.state = StateRedundant
		return err
	}
	r.skipWaiting = true
	r.state = StateInstalled
	return nil
}

// Activate evicts caches of other versions and claims open clients.
func (r *Runtime) Activate(ctx context.Context) error {
	if r.state != StateInstalled {
		return ErrNotActive
	}
	names, err := r.caches.Keys(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == r.version {
			continue
		}
		if err := r.caches.Delete(ctx, name); err != nil {
			return fmt.Errorf("swruntime: delete cache %s: %w", name, err)
		}
	}
	if err := r.clients.Claim(ctx); err != nil {
		return err
	}
	r.state = StateActivated
	return nil
}

// Push shows a notification for the push data, defaulting when it is missing
// or malformed.
func (r *Runtime) Push(ctx context.Context, data []byte) (Notification, error) {
	if r.state != StateActivated {
		return Notification{}, ErrNotActive
	}
	n := Render(DecodePush(data), r.now())
	return n, r.notifier.ShowNotification(ctx, n)
}

// NotificationClick closes the notification and brings the app to the target
// page, reusing an open same-origin window when there is one.
func (r *Runtime) NotificationClick(ctx context.Context, ev ClickEvent) error {
	if r.state != StateActivated {
		return ErrNotActive
	}
	if ev.Close != nil {
		ev.Close()
	}
	if ev.Action == ActionClose {
		return nil
	}

	target := r.resolve(ClickTarget(ev.Notification.Data))
	windows, err := r.clients.MatchWindows(ctx)
	if err != nil {
		return err
	}
	for _, c := range windows {
		if !r.sameOrigin(c.URL()) {
			continue
		}
		if err := c.Focus(ctx); err != nil {
			return err
		}
		msg := ClickMessage{Type: MessageNotificationClick, Data: ev.Notification.Data}
		if err := c.PostMessage(ctx, msg); err != nil {
			return err
		}
		return c.Navigate(ctx, target)
	}
	return r.clients.OpenWindow(ctx, target)
}

// NotificationClose handles a dismissed notification. Nothing is tracked.
func (r *Runtime) NotificationClose(context.Context, Notification) error {
	if r.state != StateActivated {
		return ErrNotActive
	}
	return nil
}

// Fetch intercepts navigation requests only. handled is false when the browser
// should perform the request itself.
func (r *Runtime) Fetch(ctx context.Context, req Request) (resp Response, handled bool, err error) {
	if r.state != StateActivated || req.Mode != "navigate" {
		return Response{}, false, nil
	}
	resp, err = r.network(ctx, req)
	if err == nil {
		return resp, true, nil
	}

	cache, cerr := r.caches.Open(ctx, r.version)
	if cerr != nil {
		return Response{}, true, cerr
	}
	cached, ok, cerr := cache.Match(ctx, OfflinePage)
	if cerr != nil {
		return Response{}, true, cerr
	}
	if !ok {
		return Response{}, true, ErrOffline
	}
	return cached, true, nil
}

func (r *Runtime) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return r.origin.String()
	}
	return r.origin.ResolveReference(ref).String()
}

func (r *Runtime) sameOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == r.origin.Scheme && u.Host == r.origin.Host
}
