package server

import (
	"slices"
	"sync"
)

// RefreshFeed fans export-index refreshes out to open event streams.
//
// Each refresh bumps a generation counter. A follower channel holds at most
// the latest generation: a slow follower sees only the newest refresh it
// missed, never a backlog.
type RefreshFeed struct {
	mu         sync.Mutex
	followers  []chan uint64
	generation uint64
}

// NewRefreshFeed creates a feed at generation zero.
func NewRefreshFeed() *RefreshFeed {
	return &RefreshFeed{}
}

// Follow registers a follower. Callers must Unfollow when their stream ends.
func (f *RefreshFeed) Follow() <-chan uint64 {
	ch := make(chan uint64, 1)
	f.mu.Lock()
	f.followers = append(f.followers, ch)
	f.mu.Unlock()
	return ch
}

// Unfollow drops a follower and closes its channel. Unknown channels are ignored.
func (f *RefreshFeed) Unfollow(ch <-chan uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.followers, func(c chan uint64) bool { return c == ch })
	if i < 0 {
		return
	}
	close(f.followers[i])
	f.followers = slices.Delete(f.followers, i, i+1)
}

// Refreshed records a refresh and hands its generation to every follower.
func (f *RefreshFeed) Refreshed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	for _, ch := range f.followers {
		select {
		case ch <- f.generation:
		default:
			// replace the stale generation; the feed is the only sender
			select {
			case <-ch:
			default:
			}
			ch <- f.generation
		}
	}
	return f.generation
}

// Generation returns the number of refreshes recorded so far.
func (f *RefreshFeed) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Followers returns the number of open followers.
func (f *RefreshFeed) Followers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.followers)
}
