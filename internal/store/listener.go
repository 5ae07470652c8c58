package store

import (
	"context"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DispatchListener receives NOTIFY push_dispatch payloads, so database triggers
// and functions (notify_push_dispatch) can request pushes.
type DispatchListener struct {
	listener *pq.Listener
	log      *zap.Logger
}

// NewDispatchListener opens a dedicated LISTEN connection.
func NewDispatchListener(databaseURL string, log *zap.Logger) (*DispatchListener, error) {
	l := pq.NewListener(databaseURL, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := l.Listen(DispatchChannel); err != nil {
		_ = l.Close()
		return nil, err
	}
	return &DispatchListener{listener: l, log: log}, nil
}

// Run feeds notifications to handle until ctx ends.
func (d *DispatchListener) Run(ctx context.Context, handle NotificationHandler) error {
	defer d.listener.Close()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case n := <-d.listener.Notify:
			// nil signals a reconnect; notifications sent meanwhile are lost.
			if n == nil {
				d.log.Info("postgres listener reconnected")
				continue
			}
			handle(ctx, []byte(n.Extra))
		case <-ping.C:
			go func() {
				if err := d.listener.Ping(); err != nil {
					d.log.Warn("postgres listener ping", zap.Error(err))
				}
			}()
		case <-ctx.Done():
			return nil
		}
	}
}
