package ledger

import (
	"sync"
	"time"
)

// auctionLocks serializes bid placement per auction id. Each auction owns a
// one-slot channel; acquisition waits at most the given timeout so a
// stalled auction cannot starve callers. Different auctions never contend.
//
// Slots are reference counted and removed once the last holder or waiter
// leaves, so the map does not accumulate an entry per auction ever bid on.
type auctionLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newAuctionLocks() *auctionLocks {
	return &auctionLocks{slots: make(map[string]*lockSlot)}
}

// acquire takes the auction's slot, waiting up to timeout. Returns false on
// timeout without side effects.
func (l *auctionLocks) acquire(auctionID string, timeout time.Duration) bool {
	l.mu.Lock()
	slot, ok := l.slots[auctionID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[auctionID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return true
	case <-timer.C:
		l.unref(auctionID, slot)
		return false
	}
}

// release frees the auction's slot. Must follow a successful acquire.
func (l *auctionLocks) release(auctionID string) {
	l.mu.Lock()
	slot := l.slots[auctionID]
	l.mu.Unlock()

	<-slot.ch
	l.unref(auctionID, slot)
}

// unref drops one reference; the last one out removes the map entry. A
// holder's reference keeps the entry pinned, so a concurrent acquire always
// finds the channel the holder will release into.
func (l *auctionLocks) unref(auctionID string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, auctionID)
	}
}

func (l *auctionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
