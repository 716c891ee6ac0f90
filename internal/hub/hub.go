package hub

import (
	"sync"

	"github.com/uizzuu/ddauction-project-sub000/internal/metrics"
	"github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// BidSource supplies the bid list snapshot sent to new subscribers.
type BidSource interface {
	GetBidsByAuction(auctionID string) ([]models.Bid, error)
}

// subscription is the reverse index entry for one connection.
type subscription struct {
	auctions map[string]struct{}
	userID   string
}

// Hub fans auction events out to subscribed connections. It owns no
// persistent state; everything it sends is reconstructible from the store.
// Delivery is best-effort, at most once per connection per event: a
// connection that fails a write is closed and pruned, and the next full
// bid list broadcast brings surviving clients back in sync.
type Hub struct {
	source  BidSource
	metrics *metrics.Metrics

	mu       sync.Mutex
	auctions map[string]map[Conn]struct{} // auctionID -> subscribers
	users    map[string]map[Conn]struct{} // userID -> notification conns
	conns    map[Conn]*subscription      // reverse index for Unsubscribe
}

// New creates an empty hub.
func New(source BidSource, m *metrics.Metrics) *Hub {
	return &Hub{
		source:   source,
		metrics:  m,
		auctions: make(map[string]map[Conn]struct{}),
		users:    make(map[string]map[Conn]struct{}),
		conns:    make(map[Conn]*subscription),
	}
}

// Subscribe registers the connection for an auction's events and
// immediately sends it the current bid list.
func (h *Hub) Subscribe(conn Conn, auctionID string) error {
	bids, err := h.source.GetBidsByAuction(auctionID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	sub := h.register(conn)
	sub.auctions[auctionID] = struct{}{}
	if h.auctions[auctionID] == nil {
		h.auctions[auctionID] = make(map[Conn]struct{})
	}
	h.auctions[auctionID][conn] = struct{}{}
	h.mu.Unlock()

	snapshot := BidListEvent{Type: EventBidList, AuctionID: auctionID, Bids: BidViews(bids)}
	if err := conn.WriteJSON(snapshot); err != nil {
		h.drop(conn)
		return err
	}
	return nil
}

// SubscribeUser registers the connection as a notification channel for the
// given user.
func (h *Hub) SubscribeUser(conn Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := h.register(conn)
	sub.userID = userID
	if h.users[userID] == nil {
		h.users[userID] = make(map[Conn]struct{})
	}
	h.users[userID][conn] = struct{}{}
}

// register adds the reverse index entry; caller holds h.mu.
func (h *Hub) register(conn Conn) *subscription {
	sub, ok := h.conns[conn]
	if !ok {
		sub = &subscription{auctions: make(map[string]struct{})}
		h.conns[conn] = sub
		h.metrics.SubscriberAdded()
	}
	return sub
}

// PublishBidList broadcasts the updated bid list to every subscriber of
// the auction.
func (h *Hub) PublishBidList(auctionID string, bids []models.Bid) {
	h.publish(auctionID, BidListEvent{Type: EventBidList, AuctionID: auctionID, Bids: BidViews(bids)})
}

// PublishClosed broadcasts the terminal settlement event. winnerID is empty
// when the auction expired without bids.
func (h *Hub) PublishClosed(auctionID, winnerID string, finalAmount int64) {
	event := ClosedEvent{Type: EventClosed, AuctionID: auctionID}
	if winnerID != "" {
		event.WinnerID = &winnerID
		event.FinalAmount = &finalAmount
	}
	h.publish(auctionID, event)
}

// publish sends payload to each subscriber; failed connections are pruned.
func (h *Hub) publish(auctionID string, payload any) {
	h.mu.Lock()
	targets := make([]Conn, 0, len(h.auctions[auctionID]))
	for conn := range h.auctions[auctionID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if err := conn.WriteJSON(payload); err != nil {
			utils.Warn("hub: dropping subscriber after failed write", map[string]any{
				"auction_id": auctionID,
				"error":      err.Error(),
			})
			h.drop(conn)
		}
	}
}

// NotifyUser attempts delivery of a notification to every open connection
// the user has. Returns true when at least one connection took the write.
func (h *Hub) NotifyUser(userID string, n models.Notification) bool {
	h.mu.Lock()
	targets := make([]Conn, 0, len(h.users[userID]))
	for conn := range h.users[userID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	delivered := false
	event := NotificationEvent{Type: EventNotification, Notification: n}
	for _, conn := range targets {
		if err := conn.WriteJSON(event); err != nil {
			h.drop(conn)
			continue
		}
		delivered = true
	}
	return delivered
}

// Unsubscribe removes the connection from every auction and user channel it
// was registered under. Safe to call for unknown connections.
func (h *Hub) Unsubscribe(conn Conn) {
	h.mu.Lock()
	h.remove(conn)
	h.mu.Unlock()
}

// drop unregisters and closes a connection that failed a write.
func (h *Hub) drop(conn Conn) {
	h.mu.Lock()
	h.remove(conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// remove deletes all registry entries for conn; caller holds h.mu.
func (h *Hub) remove(conn Conn) {
	sub, ok := h.conns[conn]
	if !ok {
		return
	}
	for auctionID := range sub.auctions {
		delete(h.auctions[auctionID], conn)
		if len(h.auctions[auctionID]) == 0 {
			delete(h.auctions, auctionID)
		}
	}
	if sub.userID != "" {
		delete(h.users[sub.userID], conn)
		if len(h.users[sub.userID]) == 0 {
			delete(h.users, sub.userID)
		}
	}
	delete(h.conns, conn)
	h.metrics.SubscriberRemoved()
}

// SubscriberCount reports the number of connections subscribed to an
// auction.
func (h *Hub) SubscriberCount(auctionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.auctions[auctionID])
}
