package inproc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fleet_console/internal/domain"
)

var ErrSubscriberQueueFull = errors.New("subscriber queue is full")

// Bus fans player events out to every registered subscriber. A subscriber
// whose buffer is full misses the event; Publish reports which ones did.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]chan domain.PlayerEvent
	buffer  int
	dropped map[string]int
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:    make(map[string]chan domain.PlayerEvent),
		buffer:  buffer,
		dropped: make(map[string]int),
	}
}

func (b *Bus) Register(subscriberID string) <-chan domain.PlayerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[subscriberID]; ok {
		return ch
	}
	ch := make(chan domain.PlayerEvent, b.buffer)
	b.subs[subscriberID] = ch
	return ch
}

func (b *Bus) Unregister(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[subscriberID]
	if !ok {
		return
	}
	delete(b.subs, subscriberID)
	delete(b.dropped, subscriberID)
	close(ch)
}

func (b *Bus) Publish(ev domain.PlayerEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var full []string
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped[id]++
			full = append(full, id)
		}
	}
	if len(full) == 0 {
		return nil
	}
	sort.Strings(full)
	return fmt.Errorf("%w: %s", ErrSubscriberQueueFull, strings.Join(full, ", "))
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Dropped(subscriberID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[subscriberID]
}

// Close unregisters every subscriber, closing their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.dropped = make(map[string]int)
}
