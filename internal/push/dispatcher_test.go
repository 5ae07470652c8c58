package push

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/metrics"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/vapid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]models.PushSubscription
	listErr error
	lists   int
}

func newMemStore(subs ...models.PushSubscription) *memStore {
	s := &memStore{rows: map[string]models.PushSubscription{}}
	for _, sub := range subs {
		s.rows[sub.ID] = sub
	}
	return s
}

func (s *memStore) GetPushSubscriptions(_ context.Context, userID string) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.PushSubscription
	for _, sub := range s.rows {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memStore) DeletePushSubscriptionByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type staticKeys struct {
	pair vapid.KeyPair
	err  error
}

func (k staticKeys) VAPIDKeys() (vapid.KeyPair, error) { return k.pair, k.err }

func newPair(t *testing.T) vapid.KeyPair {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pair, err := vapid.EncodeKeyPair(priv)
	require.NoError(t, err)
	return pair
}

func sub(id, endpoint string) models.PushSubscription {
	return models.PushSubscription{ID: id, UserID: "user-1", Endpoint: endpoint, P256dh: "p", Auth: "a"}
}

func newTestDispatcher(t *testing.T, store SubscriptionStore, keys KeyProvider, opts Options) (*Dispatcher, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	opts.Client = &http.Client{Transport: mock}
	if opts.Subject == "" {
		opts.Subject = "mailto:ops@askify.app"
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewPush(nil)
	}
	return NewDispatcher(store, keys, zaptest.NewLogger(t), opts), mock
}

var request = models.DispatchRequest{UserID: "user-1", Title: "Ana", Body: "sent you a message"}

func TestDispatch_HealthyAndDead(t *testing.T) {
	store := newMemStore(
		sub("alive", "https://fcm.googleapis.com/fcm/send/alive"),
		sub("dead", "https://updates.push.services.mozilla.com/wpush/v2/dead"),
	)
	m := metrics.NewPush(nil)
	d, mock := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{Metrics: m})
	mock.RegisterResponder(http.MethodPost, "https://fcm.googleapis.com/fcm/send/alive", httpmock.NewStringResponder(201, ""))
	mock.RegisterResponder(http.MethodPost, "https://updates.push.services.mozilla.com/wpush/v2/dead", httpmock.NewStringResponder(404, ""))

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, models.DispatchResult{Sent: 1, Failed: 1, Pruned: 1}, res)
	assert.Equal(t, []string{"alive"}, store.ids())
	assert.Equal(t, 2, mock.GetTotalCallCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Pruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed.WithLabelValues(metrics.ReasonGone)))
}

func TestDispatch_GoneRemovesOnlyThatRow(t *testing.T) {
	store := newMemStore(
		sub("a", "https://push.example/a"),
		sub("b", "https://push.example/b"),
		sub("c", "https://push.example/c"),
	)
	d, mock := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{})
	mock.RegisterResponder(http.MethodPost, "https://push.example/a", httpmock.NewStringResponder(201, ""))
	mock.RegisterResponder(http.MethodPost, "https://push.example/b", httpmock.NewStringResponder(410, "gone"))
	mock.RegisterResponder(http.MethodPost, "https://push.example/c", httpmock.NewStringResponder(200, ""))

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"a", "c"}, store.ids())
}

func TestDispatch_TransientFailuresKeepRows(t *testing.T) {
	store := newMemStore(
		sub("net", "https://push.example/net"),
		sub("busy", "https://push.example/busy"),
		sub("limited", "https://push.example/limited"),
	)
	m := metrics.NewPush(nil)
	d, mock := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{Metrics: m})
	mock.RegisterResponder(http.MethodPost, "https://push.example/net", httpmock.NewErrorResponder(errors.New("connection reset")))
	mock.RegisterResponder(http.MethodPost, "https://push.example/busy", httpmock.NewStringResponder(500, "oops"))
	mock.RegisterResponder(http.MethodPost, "https://push.example/limited", httpmock.NewStringResponder(429, ""))

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{Failed: 3}, res)
	assert.Equal(t, []string{"busy", "limited", "net"}, store.ids())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed.WithLabelValues(metrics.ReasonNetwork)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failed.WithLabelValues(metrics.ReasonStatus)))
	assert.Zero(t, testutil.ToFloat64(m.Pruned))
}

func TestDispatch_MissingKeys(t *testing.T) {
	for name, keys := range map[string]staticKeys{
		"empty pair":     {},
		"only public":    {pair: vapid.KeyPair{PublicKey: "BAAA"}},
		"provider error": {err: errs.ErrMissingVAPIDKeys},
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore(sub("a", "https://push.example/a"))
			d, mock := newTestDispatcher(t, store, keys, Options{})

			_, err := d.Dispatch(context.Background(), request)
			require.ErrorIs(t, err, errs.ErrMissingVAPIDKeys)
			assert.Zero(t, store.lists)
			assert.Zero(t, mock.GetTotalCallCount())
		})
	}
}

func TestDispatch_MismatchedKeysFailEverySubscription(t *testing.T) {
	good, other := newPair(t), newPair(t)
	store := newMemStore(sub("a", "https://push.example/a"), sub("b", "https://push.example/b"))
	m := metrics.NewPush(nil)
	d, mock := newTestDispatcher(t, store, staticKeys{pair: vapid.KeyPair{PublicKey: other.PublicKey, PrivateKey: good.PrivateKey}}, Options{Metrics: m})

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{Failed: 2}, res)
	assert.Zero(t, mock.GetTotalCallCount())
	assert.Len(t, store.ids(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failed.WithLabelValues(metrics.ReasonSigning)))
}

func TestDispatch_PayloadlessRequest(t *testing.T) {
	pair := newPair(t)
	store := newMemStore(sub("a", "https://fcm.googleapis.com/fcm/send/xyz"))
	d, mock := newTestDispatcher(t, store, staticKeys{pair: pair}, Options{})

	var got *http.Request
	var body []byte
	mock.RegisterResponder(http.MethodPost, "https://fcm.googleapis.com/fcm/send/xyz", func(req *http.Request) (*http.Response, error) {
		got = req
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
		}
		return httpmock.NewStringResponse(201, ""), nil
	})

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	require.Equal(t, 1, res.Sent)
	require.NotNil(t, got)

	assert.Equal(t, "86400", got.Header.Get("TTL"))
	assert.Equal(t, "high", got.Header.Get("Urgency"))
	assert.Empty(t, body)
	assert.Empty(t, got.Header.Get("Content-Encoding"))

	auth := got.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "vapid t="), auth)
	assert.True(t, strings.HasSuffix(auth, ", k="+pair.PublicKey), auth)
}

func TestDispatch_EncryptedPayload(t *testing.T) {
	client, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	store := newMemStore(models.PushSubscription{
		ID:       "a",
		UserID:   "user-1",
		Endpoint: "https://push.example/enc",
		P256dh:   base64.RawURLEncoding.EncodeToString(client.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(secret),
	})
	d, mock := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{EncryptPayload: true})

	var encoding string
	var size int
	mock.RegisterResponder(http.MethodPost, "https://push.example/enc", func(req *http.Request) (*http.Response, error) {
		encoding = req.Header.Get("Content-Encoding")
		b, _ := io.ReadAll(req.Body)
		size = len(b)
		return httpmock.NewStringResponse(201, ""), nil
	})

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, "aes128gcm", encoding)
	assert.Positive(t, size)
}

func TestDispatch_NoSubscriptions(t *testing.T) {
	d, mock := newTestDispatcher(t, newMemStore(), staticKeys{pair: newPair(t)}, Options{})

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{}, res)
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestDispatch_InvalidRequest(t *testing.T) {
	store := newMemStore(sub("a", "https://push.example/a"))
	d, _ := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{})

	_, err := d.Dispatch(context.Background(), models.DispatchRequest{UserID: "user-1", Body: "x"})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "title")
	assert.Zero(t, store.lists)
}

func TestDispatch_StoreError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection refused")
	d, _ := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{})

	_, err := d.Dispatch(context.Background(), request)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDispatch_ConcurrencyBound(t *testing.T) {
	var subs []models.PushSubscription
	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		subs = append(subs, sub(id, "https://push.example/"+id))
	}
	store := newMemStore(subs...)
	d, mock := newTestDispatcher(t, store, staticKeys{pair: newPair(t)}, Options{Concurrency: 2})

	var mu sync.Mutex
	inFlight, peak := 0, 0
	mock.RegisterResponder(http.MethodPost, `=~^https://push\.example/\d\z`, func(*http.Request) (*http.Response, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
		return httpmock.NewStringResponse(201, ""), nil
	})

	res, err := d.Dispatch(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Sent)
	assert.LessOrEqual(t, peak, 2)
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "fcm.googleapis.com", origin("https://fcm.googleapis.com/fcm/send/secret"))
	assert.Equal(t, "invalid", origin("not a url"))
}
