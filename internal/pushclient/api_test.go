package pushclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

func newAPI(t *testing.T) (*HTTPAPI, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	return NewHTTPAPI("https://askify.app/", &http.Client{Transport: mock}), mock
}

func TestHTTPAPI_VAPIDPublicKey(t *testing.T) {
	api, mock := newAPI(t)
	mock.RegisterResponder(http.MethodGet, "https://askify.app/api/push/vapid-public-key",
		httpmock.NewJsonResponderOrPanic(200, map[string]string{"publicKey": "BPub"}))

	key, err := api.VAPIDPublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BPub", key)
}

func TestHTTPAPI_SaveSubscription(t *testing.T) {
	api, mock := newAPI(t)
	var got models.SubscriptionRequest
	var auth string
	mock.RegisterResponder(http.MethodPost, "https://askify.app/api/push/subscriptions", func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(201, `{}`), nil
	})

	in := models.SubscriptionRequest{Endpoint: "https://push.example/1", Keys: models.SubscriptionKeys{P256dh: "p", Auth: "a"}}
	require.NoError(t, api.SaveSubscription(context.Background(), "tok", in))
	assert.Equal(t, in, got)
	assert.Equal(t, "Bearer tok", auth)
}

func TestHTTPAPI_Errors(t *testing.T) {
	api, mock := newAPI(t)
	mock.RegisterResponder(http.MethodPost, "https://askify.app/api/push/subscriptions", httpmock.NewStringResponder(401, "unauthorized"))
	mock.RegisterResponder(http.MethodDelete, "https://askify.app/api/push/subscriptions", httpmock.NewStringResponder(404, "not found"))

	err := api.SaveSubscription(context.Background(), "tok", models.SubscriptionRequest{})
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	err = api.DeleteSubscription(context.Background(), "tok", "https://push.example/1")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.RegisterResponder(http.MethodPost, "https://askify.app/api/push/subscriptions", httpmock.NewStringResponder(400, "endpoint, p256dh and auth are required\n"))
	err = api.SaveSubscription(context.Background(), "tok", models.SubscriptionRequest{})
	require.ErrorIs(t, err, errs.ErrInvalidSubscription)
	assert.Contains(t, err.Error(), "endpoint, p256dh and auth are required")

	mock.RegisterResponder(http.MethodPost, "https://askify.app/api/push/subscriptions", httpmock.NewStringResponder(502, ""))
	err = api.SaveSubscription(context.Background(), "tok", models.SubscriptionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
