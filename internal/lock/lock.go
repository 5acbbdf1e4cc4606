// Package lock provides exclusive locks with a bounded acquisition wait.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTimeout = errors.New("lock wait timed out")

// Locker hands out an exclusive lock. The returned release func must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Mutex is an in-process lock that gives up after Wait.
type Mutex struct {
	ch   chan struct{}
	Wait time.Duration
}

func NewMutex(wait time.Duration) *Mutex {
	return &Mutex{ch: make(chan struct{}, 1), Wait: wait}
}

func (m *Mutex) Acquire(ctx context.Context) (func(), error) {
	ctx, cancel := withWait(ctx, m.Wait)
	defer cancel()

	select {
	case m.ch <- struct{}{}:
		return m.releaser(), nil
	case <-ctx.Done():
		return nil, waitError(ctx)
	}
}

func (m *Mutex) releaser() func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		<-m.ch
	}
}

// Advisory serialises holders across processes with a Postgres session
// advisory lock, polled until Wait elapses.
type Advisory struct {
	pool     *pgxpool.Pool
	key      int64
	Wait     time.Duration
	Interval time.Duration
}

func NewAdvisory(pool *pgxpool.Pool, key int64, wait time.Duration) *Advisory {
	return &Advisory{pool: pool, key: key, Wait: wait, Interval: 100 * time.Millisecond}
}

func (a *Advisory) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := withWait(ctx, a.Wait)
	defer cancel()

	conn, err := a.pool.Acquire(waitCtx)
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, waitError(waitCtx)
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	for {
		var locked bool
		if err := conn.QueryRow(waitCtx, `SELECT pg_try_advisory_lock($1)`, a.key).Scan(&locked); err != nil {
			conn.Release()
			if waitCtx.Err() != nil {
				return nil, waitError(waitCtx)
			}
			return nil, fmt.Errorf("try advisory lock: %w", err)
		}
		if locked {
			break
		}
		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			conn.Release()
			return nil, waitError(waitCtx)
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock($1)`, a.key); err != nil {
			// the session still holds the lock; drop the connection so it is freed
			_ = conn.Conn().Close(unlockCtx)
		}
		conn.Release()
	}, nil
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

func waitError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
