package router

import (
	"fmt"
	"sync"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
	"github.com/surrealkit/surrealdb.go/pkg/logger"
	"github.com/surrealkit/surrealdb.go/pkg/models"
)

const (
	// maxEarlyQueries bounds how many unregistered ids may hold notifications.
	maxEarlyQueries = 64
	// maxKilled bounds how many killed ids are remembered.
	maxKilled = 256
)

// liveRegistry maps live query ids to notification channels.
// Notifications that arrive before their live query is registered are
// held until it is. Notifications for killed queries are dropped.
type liveRegistry struct {
	mu       sync.Mutex
	buffer   int
	channels map[string]chan models.Notification
	early    map[string][]models.Notification
	killed   map[string]struct{}
	// killOrder holds the keys of killed, oldest first.
	killOrder []string
	closed    bool
	logger    logger.Logger
}

func newLiveRegistry(buffer int, log logger.Logger) *liveRegistry {
	return &liveRegistry{
		buffer:   buffer,
		channels: make(map[string]chan models.Notification),
		early:    make(map[string][]models.Notification),
		killed:   make(map[string]struct{}),
		logger:   log,
	}
}

func (l *liveRegistry) register(id models.UUID) {
	key := id.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if _, ok := l.channels[key]; ok {
		return
	}
	ch := make(chan models.Notification, l.buffer)
	l.channels[key] = ch

	for _, n := range l.early[key] {
		l.deliver(ch, n)
	}
	delete(l.early, key)
}

func (l *liveRegistry) get(id models.UUID) (chan models.Notification, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.channels[id.String()]
	return ch, ok
}

func (l *liveRegistry) notify(n models.Notification) {
	key := n.ID.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	ch, ok := l.channels[key]
	if !ok {
		l.stash(key, n)
		return
	}

	if n.Action == models.KilledAction {
		close(ch)
		delete(l.channels, key)
		l.markKilled(key)
		return
	}
	l.deliver(ch, n)
}

// stash must be called with mu held.
func (l *liveRegistry) stash(key string, n models.Notification) {
	if _, ok := l.killed[key]; ok {
		l.logger.Debug("dropping notification for killed live query", "id", key)
		return
	}
	pending, ok := l.early[key]
	if !ok && len(l.early) >= maxEarlyQueries {
		l.logger.Warn("too many unknown live queries, dropping notification", "id", key)
		return
	}
	if len(pending) >= l.buffer {
		l.logger.Warn("dropping notification for unknown live query", "id", key)
		return
	}
	l.early[key] = append(pending, n)
}

// markKilled must be called with mu held.
func (l *liveRegistry) markKilled(key string) {
	delete(l.early, key)
	if _, ok := l.killed[key]; ok {
		return
	}
	if len(l.killOrder) >= maxKilled {
		delete(l.killed, l.killOrder[0])
		l.killOrder = l.killOrder[1:]
	}
	l.killed[key] = struct{}{}
	l.killOrder = append(l.killOrder, key)
}

// deliver must be called with mu held.
func (l *liveRegistry) deliver(ch chan models.Notification, n models.Notification) {
	select {
	case ch <- n:
	default:
		l.logger.Warn("notification channel full, dropping notification", "id", n.ID.String(), "action", string(n.Action))
	}
}

func (l *liveRegistry) remove(id models.UUID) {
	key := id.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.channels[key]; ok {
		close(ch)
		delete(l.channels, key)
	}
	l.markKilled(key)
}

func (l *liveRegistry) closeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for key, ch := range l.channels {
		close(ch)
		delete(l.channels, key)
	}
	l.early = map[string][]models.Notification{}
}

func toUUID(v any) (models.UUID, error) {
	switch id := v.(type) {
	case models.UUID:
		return id, nil
	case *models.UUID:
		if id != nil {
			return *id, nil
		}
	case string:
		u, err := models.ParseUUID(id)
		if err != nil {
			return models.UUID{}, fmt.Errorf("%w: %v", constants.ErrDecode, err)
		}
		return u, nil
	}
	return models.UUID{}, fmt.Errorf("%w: live query id has type %T", constants.ErrDecode, v)
}
