package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/store"
)

func TestMain(m *testing.M) {
	// go-redis starts its time cache when internal/store is loaded.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.startGlobalTimeCache.func1"))
}

type recorder struct {
	mu    sync.Mutex
	calls []models.DispatchRequest
	err   error
}

func (r *recorder) Dispatch(ctx context.Context, req models.DispatchRequest) (models.DispatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return models.DispatchResult{}, errors.New("no deadline")
	}
	r.calls = append(r.calls, req)
	if err := req.Validate(); err != nil {
		return models.DispatchResult{}, err
	}
	return models.DispatchResult{Sent: 1}, r.err
}

// sliceSource replays payloads then blocks until ctx ends.
type sliceSource struct {
	payloads []string
	err      error
}

func (s sliceSource) Run(ctx context.Context, handle store.NotificationHandler) error {
	for _, p := range s.payloads {
		handle(ctx, []byte(p))
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func TestHandle(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(rec, zaptest.NewLogger(t))

	c.Handle(context.Background(), []byte(`{"userId":"u1","title":"Ana","body":"hi","data":{"type":"direct_message","senderId":"ana"}}`))
	c.Handle(context.Background(), []byte(`not json`))
	c.Handle(context.Background(), []byte(`{"userId":"u1"}`))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "Ana", rec.calls[0].Title)
	require.NotNil(t, rec.calls[0].Data)
	assert.Equal(t, "ana", rec.calls[0].Data.SenderID)
}

func TestRun_AllSources(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(rec, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx,
			sliceSource{payloads: []string{`{"userId":"a","title":"t","body":"b"}`}},
			sliceSource{payloads: []string{`{"userId":"b","title":"t","body":"b"}`}},
		)
	}()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.calls) == 2
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRun_SourceFailureStopsAll(t *testing.T) {
	c := NewConsumer(&recorder{}, zaptest.NewLogger(t))
	boom := errors.New("subscribe failed")

	err := c.Run(context.Background(), sliceSource{}, sliceSource{err: boom})
	require.ErrorIs(t, err, boom)
}
