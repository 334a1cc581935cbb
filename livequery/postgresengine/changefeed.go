package postgresengine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const (
	logMsgListenFailed       = "failed to listen on change channel"
	logMsgNotificationFailed = "waiting for change notification failed"

	listenRetryDelay = time.Second
)

// ChangeFeed signals that entity data may have changed, waking subscriptions
// ahead of their poll interval. Implementations own their connection and
// must close the Changes channel when Close is called.
type ChangeFeed interface {
	Changes() <-chan struct{}
	Close()
}

// pgxChangeFeed runs LISTEN on a dedicated connection from a pgx pool and
// relays every notification. The connection is re-acquired after errors, so
// a dropped connection degrades to poll-only until the listener recovers.
type pgxChangeFeed struct {
	pool    *pgxpool.Pool
	channel string
	changes chan struct{}
	cancel  context.CancelFunc
}

func newPGXChangeFeed(pool *pgxpool.Pool, channel string) *pgxChangeFeed {
	ctx, cancel := context.WithCancel(context.Background())

	feed := &pgxChangeFeed{
		pool:    pool,
		channel: channel,
		changes: make(chan struct{}, 1),
		cancel:  cancel,
	}

	go feed.run(ctx)

	return feed
}

// Changes implements ChangeFeed.
func (f *pgxChangeFeed) Changes() <-chan struct{} {
	return f.changes
}

// Close implements ChangeFeed.
func (f *pgxChangeFeed) Close() {
	f.cancel()
}

func (f *pgxChangeFeed) run(ctx context.Context) {
	defer close(f.changes)

	for ctx.Err() == nil {
		if err := f.listen(ctx); err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-time.After(listenRetryDelay):
			}
		}
	}
}

func (f *pgxChangeFeed) listen(ctx context.Context) error {
	conn, acquireErr := f.pool.Acquire(ctx)
	if acquireErr != nil {
		return acquireErr
	}
	defer conn.Release()

	if _, execErr := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); execErr != nil {
		return execErr
	}

	for {
		if _, waitErr := conn.Conn().WaitForNotification(ctx); waitErr != nil {
			return waitErr
		}

		f.signal()
	}
}

func (f *pgxChangeFeed) signal() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// pqChangeFeed relays notifications from a caller-owned lib/pq listener, for
// engines constructed over database/sql or sqlx connections. The caller
// remains responsible for closing the listener; Close here only stops the
// relay.
type pqChangeFeed struct {
	listener *pq.Listener
	channel  string
	changes  chan struct{}
	done     chan struct{}
}

func newPQChangeFeed(listener *pq.Listener, channel string) *pqChangeFeed {
	feed := &pqChangeFeed{
		listener: listener,
		channel:  channel,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	go feed.run()

	return feed
}

// Changes implements ChangeFeed.
func (f *pqChangeFeed) Changes() <-chan struct{} {
	return f.changes
}

// Close implements ChangeFeed.
func (f *pqChangeFeed) Close() {
	close(f.done)
}

func (f *pqChangeFeed) run() {
	defer close(f.changes)

	if err := f.listener.Listen(f.channel); err != nil {
		return
	}

	for {
		select {
		case <-f.done:
			return
		case _, ok := <-f.listener.Notify:
			if !ok {
				return
			}

			select {
			case f.changes <- struct{}{}:
			default:
			}
		}
	}
}
