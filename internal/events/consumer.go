// Package events feeds dispatch requests arriving on the Redis bus or through
// Postgres NOTIFY into the push dispatcher.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/store"
)

// DefaultTimeout bounds a single dispatch triggered from a source.
const DefaultTimeout = 2 * time.Minute

// Source delivers raw dispatch payloads until ctx ends.
type Source interface {
	Run(ctx context.Context, handle store.NotificationHandler) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) (models.DispatchResult, error)
}

type Consumer struct {
	dispatcher Dispatcher
	log        *zap.Logger
	timeout    time.Duration
}

func NewConsumer(d Dispatcher, log *zap.Logger) *Consumer {
	return &Consumer{dispatcher: d, log: log, timeout: DefaultTimeout}
}

// Handle decodes one payload and dispatches it. Bad payloads are logged and
// dropped; there is no redelivery.
func (c *Consumer) Handle(ctx context.Context, payload []byte) {
	var req models.DispatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.log.Warn("dropping malformed dispatch payload", zap.Error(err), zap.Int("size", len(payload)))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.dispatcher.Dispatch(ctx, req)
	switch {
	case errors.Is(err, errs.ErrInvalidRequest):
		c.log.Warn("dropping invalid dispatch request", zap.Error(err))
	case err != nil:
		c.log.Error("dispatch from event failed", zap.String("user_id", req.UserID), zap.Error(err))
	default:
		c.log.Debug("dispatch from event",
			zap.String("user_id", req.UserID),
			zap.Int("sent", res.Sent),
			zap.Int("failed", res.Failed),
		)
	}
}

// Run consumes every source until ctx ends or one of them fails.
func (c *Consumer) Run(ctx context.Context, sources ...Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			return src.Run(ctx, c.Handle)
		})
	}
	return g.Wait()
}
