package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/catalog/internal/model"
)

// hub fans committed write sets out to live subscriptions.
type hub struct {
	mu        sync.Mutex
	listeners map[*listener]struct{}
}

func newHub() *hub {
	return &hub{listeners: make(map[*listener]struct{})}
}

// listener is one subscription's view of the hub. While all is set it
// matches every table.
type listener struct {
	mu     sync.Mutex
	all    bool
	tables map[model.Table]struct{}
	notify chan struct{}
}

func newListener() *listener {
	// Buffer of one: pending notifications coalesce into a single re-run.
	return &listener{all: true, notify: make(chan struct{}, 1)}
}

func (l *listener) watchAll() {
	l.mu.Lock()
	l.all = true
	l.mu.Unlock()
}

func (l *listener) watch(tables []model.Table) {
	set := make(map[model.Table]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	l.mu.Lock()
	l.all = false
	l.tables = set
	l.mu.Unlock()
}

func (l *listener) matches(written map[model.Table]struct{}) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.all {
		return true
	}
	for t := range written {
		if _, ok := l.tables[t]; ok {
			return true
		}
	}
	return false
}

func (h *hub) subscribe(l *listener) {
	h.mu.Lock()
	h.listeners[l] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) unsubscribe(l *listener) {
	h.mu.Lock()
	delete(h.listeners, l)
	h.mu.Unlock()
}

func (h *hub) publish(written map[model.Table]struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for l := range h.listeners {
		if !l.matches(written) {
			continue
		}
		select {
		case l.notify <- struct{}{}:
		default:
		}
	}
}

// QueryFunc computes a live result inside a read-only transaction. The
// tables it reads through tx decide which commits trigger a re-run.
type QueryFunc[R any] func(ctx context.Context, tx *Tx) (R, error)

// Snapshot is one emission of a live query.
type Snapshot[R any] struct {
	Value R
	Err   error
}

// Subscription is a running live query. Close it to release its goroutine.
type Subscription[R any] struct {
	updates chan Snapshot[R]
	done    chan struct{}
	exited  chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	hub     *hub
	l       *listener
}

// Live starts a live query. The first result is emitted as soon as it is
// computed, then again after every committed write to a table the previous
// evaluation touched. Slow consumers see the latest state: notifications
// arriving while a result is pending collapse into one re-run.
func Live[R any](s *Store, query QueryFunc[R]) *Subscription[R] {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription[R]{
		updates: make(chan Snapshot[R]),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		cancel:  cancel,
		hub:     s.hub,
		l:       newListener(),
	}
	s.hub.subscribe(sub.l)
	go sub.run(ctx, s, query)
	return sub
}

// Updates returns the emission channel. It is closed after Close.
func (sub *Subscription[R]) Updates() <-chan Snapshot[R] {
	return sub.updates
}

// Close stops future emissions and waits for the worker to exit.
// Safe to call more than once.
func (sub *Subscription[R]) Close() {
	sub.once.Do(func() {
		close(sub.done)
		sub.cancel()
		sub.hub.unsubscribe(sub.l)
	})
	<-sub.exited
}

func (sub *Subscription[R]) run(ctx context.Context, s *Store, query QueryFunc[R]) {
	defer close(sub.exited)
	defer close(sub.updates)

	for {
		// Any commit racing with the evaluation forces another run.
		sub.l.watchAll()

		var snap Snapshot[R]
		var touched []model.Table
		snap.Err = s.Transaction(ctx, ReadOnly, nil, func(tx *Tx) error {
			v, err := query(ctx, tx)
			touched = tx.Touched()
			snap.Value = v
			return err
		})
		sub.l.watch(touched)

		if ctx.Err() != nil {
			return
		}
		if snap.Err != nil {
			slog.Debug("live query failed", "error", snap.Err)
		}

		select {
		case sub.updates <- snap:
		case <-sub.done:
			return
		}

		select {
		case <-sub.l.notify:
		case <-sub.done:
			return
		}
	}
}
