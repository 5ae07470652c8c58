// Package push delivers Web Push messages to every stored subscription of a user.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/metrics"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/swruntime"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/vapid"
)

const (
	// DefaultTTL is how long (seconds) the push service keeps an undelivered message.
	DefaultTTL = 86400
	// DefaultConcurrency bounds in-flight sends per dispatch.
	DefaultConcurrency = 8

	urgencyHigh = "high"
)

// SubscriptionStore is the part of the store the dispatcher needs.
type SubscriptionStore interface {
	GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscriptionByID(ctx context.Context, id string) error
}

// KeyProvider returns the VAPID key pair; it is consulted on every dispatch.
type KeyProvider interface {
	VAPIDKeys() (vapid.KeyPair, error)
}

// HTTPClient is satisfied by *http.Client and by webpush.HTTPClient.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Options tunes a Dispatcher. Zero values select defaults.
type Options struct {
	Subject     string
	Concurrency int
	TTL         int
	// EncryptPayload sends the notification JSON encrypted per RFC 8291 instead
	// of an empty body.
	EncryptPayload bool
	Client         HTTPClient
	Metrics        *metrics.Push
	Clock          func() time.Time
}

type Dispatcher struct {
	subs    SubscriptionStore
	keys    KeyProvider
	log     *zap.Logger
	opts    Options
	metrics *metrics.Push
}

func NewDispatcher(subs SubscriptionStore, keys KeyProvider, log *zap.Logger, opts Options) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewPush(nil)
	}
	return &Dispatcher{subs: subs, keys: keys, log: log, opts: opts, metrics: m}
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeGone
)

// Dispatch sends one push to each subscription of req.UserID. Individual
// delivery failures are counted, never returned; only invalid requests, missing
// VAPID keys and store lookups fail the call.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) (models.DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return models.DispatchResult{}, err
	}
	pair, err := d.keys.VAPIDKeys()
	if err != nil {
		return models.DispatchResult{}, err
	}
	if pair.Empty() {
		return models.DispatchResult{}, errs.ErrMissingVAPIDKeys
	}

	start := time.Now()
	defer func() { d.metrics.Duration.Observe(time.Since(start).Seconds()) }()

	subs, err := d.subs.GetPushSubscriptions(ctx, req.UserID)
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("load subscriptions for %s: %w", req.UserID, err)
	}
	if len(subs) == 0 {
		d.log.Debug("no push subscriptions", zap.String("user_id", req.UserID))
		return models.DispatchResult{}, nil
	}

	signer, signErr := vapid.NewSigner(pair, d.opts.Subject, vapid.WithClock(d.opts.Clock))
	if signErr != nil {
		d.log.Error("vapid key import failed", zap.Error(signErr))
	}
	payload, err := d.payload(req)
	if err != nil {
		return models.DispatchResult{}, err
	}

	var sent, failed, pruned atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			if signErr != nil {
				d.metrics.Failed.WithLabelValues(metrics.ReasonSigning).Inc()
				failed.Add(1)
				return nil
			}
			switch d.deliver(ctx, signer, pair, sub, payload) {
			case outcomeSent:
				sent.Add(1)
			case outcomeGone:
				failed.Add(1)
				if d.prune(ctx, sub) {
					pruned.Add(1)
				}
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := models.DispatchResult{
		Sent:   int(sent.Load()),
		Failed: int(failed.Load()),
		Pruned: int(pruned.Load()),
	}
	d.log.Info("push dispatched",
		zap.String("user_id", req.UserID),
		zap.Int("subscriptions", len(subs)),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("pruned", res.Pruned),
	)
	return res, nil
}

func (d *Dispatcher) payload(req models.DispatchRequest) ([]byte, error) {
	if !d.opts.EncryptPayload {
		return nil, nil
	}
	p := req.Payload()
	if p.Data.URL == "" {
		p.Data.URL = swruntime.ClickTarget(p.Data)
	}
	return json.Marshal(p)
}

func (d *Dispatcher) deliver(ctx context.Context, signer *vapid.Signer, pair vapid.KeyPair, sub models.PushSubscription, payload []byte) outcome {
	log := d.log.With(zap.String("subscription_id", sub.ID), zap.String("push_service", origin(sub.Endpoint)))

	var (
		resp *http.Response
		err  error
	)
	if payload != nil {
		// webpush-go signs its own VAPID JWT from pair; signer is unused here.
		resp, err = webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &webpush.Options{
			HTTPClient:      d.opts.Client,
			Subscriber:      d.opts.Subject,
			TTL:             d.opts.TTL,
			Urgency:         webpush.UrgencyHigh,
			VAPIDPublicKey:  pair.PublicKey,
			VAPIDPrivateKey: pair.PrivateKey,
		})
	} else {
		resp, err = d.post(ctx, signer, sub.Endpoint)
	}
	if err != nil {
		if errors.Is(err, vapid.ErrInvalidEndpoint) {
			d.metrics.Failed.WithLabelValues(metrics.ReasonSigning).Inc()
		} else {
			d.metrics.Failed.WithLabelValues(metrics.ReasonNetwork).Inc()
		}
		log.Warn("push send failed", zap.Error(err))
		return outcomeFailed
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		d.metrics.Sent.Inc()
		log.Debug("push sent", zap.Int("status", resp.StatusCode))
		return outcomeSent
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		d.metrics.Failed.WithLabelValues(metrics.ReasonGone).Inc()
		log.Info("push endpoint gone", zap.Int("status", resp.StatusCode))
		return outcomeGone
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.metrics.Failed.WithLabelValues(metrics.ReasonStatus).Inc()
		log.Warn("push rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return outcomeFailed
	}
}

// post issues the payload-less push: no body, only TTL/Urgency/Authorization.
func (d *Dispatcher) post(ctx context.Context, signer *vapid.Signer, endpoint string) (*http.Response, error) {
	tok, err := signer.Sign(endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("TTL", strconv.Itoa(d.opts.TTL))
	req.Header.Set("Urgency", urgencyHigh)
	req.Header.Set("Authorization", tok.Authorization())
	return d.opts.Client.Do(req)
}

func (d *Dispatcher) prune(ctx context.Context, sub models.PushSubscription) bool {
	err := d.subs.DeletePushSubscriptionByID(ctx, sub.ID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		// A concurrent dispatch already removed it.
		return false
	case err != nil:
		d.log.Error("failed to prune push subscription", zap.String("subscription_id", sub.ID), zap.Error(err))
		return false
	}
	d.metrics.Pruned.Inc()
	return true
}

// origin keeps logs free of the per-device part of the endpoint.
func origin(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
