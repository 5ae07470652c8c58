package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

// HTTPAPI talks to the push routes of the Askify server.
type HTTPAPI struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAPI(baseURL string, client *http.Client) *HTTPAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAPI{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (a *HTTPAPI) VAPIDPublicKey(ctx context.Context) (string, error) {
	var out struct {
		PublicKey string `json:"publicKey"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/push/vapid-public-key", "", nil, &out); err != nil {
		return "", err
	}
	return out.PublicKey, nil
}

func (a *HTTPAPI) SaveSubscription(ctx context.Context, token string, req models.SubscriptionRequest) error {
	return a.do(ctx, http.MethodPost, "/api/push/subscriptions", token, req, nil)
}

func (a *HTTPAPI) DeleteSubscription(ctx context.Context, token, endpoint string) error {
	body := struct {
		Endpoint string `json:"endpoint"`
	}{endpoint}
	return a.do(ctx, http.MethodDelete, "/api/push/subscriptions", token, body, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errs.ErrUnauthenticated
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s", errs.ErrInvalidSubscription, strings.TrimSpace(string(msg)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
