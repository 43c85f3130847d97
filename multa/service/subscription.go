// multa/service/subscription.go
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/feed"
)

const snapshotLoadTimeout = 5 * time.Second

// Session describes the caller behind a live subscription.
type Session struct {
	UID string
	// Expires ends the subscription when reached. Zero means never.
	Expires time.Time
	// Check is run before every refresh; an error ends the subscription. Nil skips it.
	Check func(ctx context.Context) error
}

// Subscription is a running live query. Snapshots are delivered in order from
// one goroutine.
type Subscription struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
	err  error
}

// Unsubscribe stops delivery and waits for the delivery goroutine to exit. It
// is safe to call more than once, but not from inside the delivery callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Done is closed once the subscription has ended for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the subscription ended. Nil after an explicit Unsubscribe or
// context cancellation. Only meaningful once Done is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

// liveQuery couples a loader with the callback for one kind of snapshot.
type liveQuery[T any] struct {
	kind    string
	load    func(ctx context.Context) (T, error)
	deliver func(v T, version uint64) error
}

// listen attaches to the bus before the caller performs its initial load so no
// change committed in between is missed. Events only mark the query dirty;
// bursts collapse into a single reload.
func listen(bus feed.Bus, relevant func(feed.Event) bool) (chan struct{}, feed.Unsubscribe) {
	dirty := make(chan struct{}, 1)
	unlisten := bus.Listen(func(ev feed.Event) {
		if !relevant(ev) {
			return
		}
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	return dirty, unlisten
}

// run starts the delivery goroutine with initial as the first snapshot.
func (q liveQuery[T]) run(ctx context.Context, rs *RosterService, sess Session, dirty <-chan struct{}, unlisten feed.Unsubscribe, initial T) *Subscription {
	sub := &Subscription{stop: make(chan struct{}), done: make(chan struct{})}
	rs.gauge(q.kind, 1)

	go func() {
		defer close(sub.done)
		defer rs.gauge(q.kind, -1)
		defer unlisten()

		var expired <-chan time.Time
		if !sess.Expires.IsZero() {
			timer := time.NewTimer(time.Until(sess.Expires))
			defer timer.Stop()
			expired = timer.C
		}

		var version uint64
		pending, has := initial, true
		for {
			if has {
				version++
				if err := q.deliver(pending, version); err != nil {
					sub.err = err
					return
				}
				has = false
			}

			select {
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			case <-expired:
				sub.err = ErrUnauthorized
				return
			case <-dirty:
			}

			if sess.Check != nil {
				if err := sess.Check(ctx); err != nil {
					sub.err = err
					return
				}
			}
			loadCtx, cancel := context.WithTimeout(ctx, snapshotLoadTimeout)
			v, err := q.load(loadCtx)
			cancel()
			if err != nil {
				// Keep the last delivered state; the next event retries.
				rs.logger.Warn("failed to refresh live snapshot", zap.String("kind", q.kind), zap.String("uid", sess.UID), zap.Error(err))
				continue
			}
			pending, has = v, true
		}
	}()
	return sub
}
