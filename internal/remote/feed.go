package remote

import (
	"sync"

	"github.com/dmitrijs2005/finsync/internal/models"
)

// FeedKey scopes a change feed to one user's collection.
func FeedKey(userID string, c models.Collection) string {
	return userID + "/" + string(c)
}

// Feed fans committed changes out to subscribers. Each subscriber gets its
// own goroutine and a bounded queue; a subscriber whose queue is full is
// dropped with ErrSubscriptionLagging instead of blocking the publisher.
type Feed struct {
	mu     sync.Mutex
	subs   map[string]map[*feedSub]struct{}
	buffer int
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{subs: make(map[string]map[*feedSub]struct{}), buffer: buffer}
}

type feedSub struct {
	feed     *Feed
	key      string
	ch       chan []Change
	done     chan struct{}
	once     sync.Once
	onChange ChangeHandler
	onError  ErrorHandler
}

// Subscribe registers handlers for key.
func (f *Feed) Subscribe(key string, onChange ChangeHandler, onError ErrorHandler) Subscription {
	s := &feedSub{
		feed:     f,
		key:      key,
		ch:       make(chan []Change, f.buffer),
		done:     make(chan struct{}),
		onChange: onChange,
		onError:  onError,
	}

	f.mu.Lock()
	if f.subs[key] == nil {
		f.subs[key] = make(map[*feedSub]struct{})
	}
	f.subs[key][s] = struct{}{}
	f.mu.Unlock()

	go s.loop()
	return s
}

func (s *feedSub) loop() {
	for {
		select {
		case <-s.done:
			return
		case changes := <-s.ch:
			select {
			case <-s.done:
				return
			default:
			}
			if s.onChange != nil {
				s.onChange(changes)
			}
		}
	}
}

// Stop unregisters the subscriber. It is safe to call more than once.
func (s *feedSub) Stop() {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.done)
	})
}

func (f *Feed) remove(s *feedSub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[s.key], s)
	if len(f.subs[s.key]) == 0 {
		delete(f.subs, s.key)
	}
}

// Publish queues changes for every subscriber of key.
func (f *Feed) Publish(key string, changes []Change) {
	if len(changes) == 0 {
		return
	}

	var lagging []*feedSub
	f.mu.Lock()
	for s := range f.subs[key] {
		select {
		case s.ch <- changes:
		default:
			lagging = append(lagging, s)
		}
	}
	f.mu.Unlock()

	for _, s := range lagging {
		s.Stop()
		if s.onError != nil {
			go s.onError(ErrSubscriptionLagging)
		}
	}
}

// Subscribers reports how many subscribers key has.
func (f *Feed) Subscribers(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[key])
}
