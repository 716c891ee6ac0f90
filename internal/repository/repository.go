package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	model "github.com/uizzuu/ddauction-project-sub000/internal/models"
)

// AuctionStore defines the storage interface for the auction subsystem.
// Auctions, bids and notifications are the only persistent entities.
type AuctionStore interface {
	CreateAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	// TryCloseAuction flips the auction status from ACTIVE to the given
	// terminal status. changed=false without error means another caller
	// already closed it; this is the exactly-once settlement guard.
	TryCloseAuction(auctionID string, to model.AuctionStatus) (model.Auction, bool, error)
	ListExpiredActiveAuctions(now time.Time) ([]model.Auction, error)

	// InsertBid records a bid only if no existing bid on the auction has
	// an equal or higher amount; a lost race returns ErrBidTooLow.
	InsertBid(bid model.Bid) error
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	GetHighestBid(auctionID string) (model.Bid, error)
	// SetWinningBid marks one bid as the winner, clears the flag on all
	// other bids of the auction, and records the winner on the auction.
	SetWinningBid(auctionID, bidID string) error

	InsertNotification(n model.Notification) error
	GetNotificationsByRecipient(recipientID string) ([]model.Notification, error)
	MarkNotificationRead(notificationID string) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore.
type MemoryRepo struct {
	mu            sync.RWMutex
	auctions      map[string]model.Auction
	bids          map[string][]model.Bid          // key: auctionID, append order = acceptance order
	notifications map[string]model.Notification   // key: notificationID
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:      make(map[string]model.Auction),
		bids:          make(map[string][]model.Bid),
		notifications: make(map[string]model.Notification),
	}
}

// CreateAuction registers a new auction.
func (r *MemoryRepo) CreateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: already exists", auction.AuctionID)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns auction metadata by id.
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// TryCloseAuction performs the conditional ACTIVE -> terminal transition.
func (r *MemoryRepo) TryCloseAuction(auctionID string, to model.AuctionStatus) (model.Auction, bool, error) {
	if !to.Terminal() {
		return model.Auction{}, false, fmt.Errorf("try close auction %s: %s is not a terminal status", auctionID, to)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, false, fmt.Errorf("try close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.AuctionActive {
		return auction, false, nil
	}

	auction.Status = to
	r.auctions[auctionID] = auction
	return auction, true, nil
}

// ListExpiredActiveAuctions returns auctions still ACTIVE whose deadline
// has passed.
func (r *MemoryRepo) ListExpiredActiveAuctions(now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	for _, auction := range r.auctions {
		if auction.Status == model.AuctionActive && !auction.Deadline.After(now) {
			expired = append(expired, auction)
		}
	}
	return expired, nil
}

// InsertBid appends a bid, guarding against an equal-or-higher existing bid
// so that concurrent equal-amount submissions cannot both land.
func (r *MemoryRepo) InsertBid(bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("insert bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}

	for _, existing := range r.bids[bid.AuctionID] {
		if existing.Amount >= bid.Amount {
			return fmt.Errorf("insert bid for auction %s: %w",
				bid.AuctionID, &auctionerrors.BidTooLowError{MinRequired: existing.Amount + 1})
		}
	}

	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// GetBidsByAuction returns all bids for an auction, highest amount first.
func (r *MemoryRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	bids := append([]model.Bid(nil), r.bids[auctionID]...)
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Amount > bids[j].Amount
	})
	return bids, nil
}

// GetHighestBid returns the highest bid for an auction.
func (r *MemoryRepo) GetHighestBid(auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}

	highest := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > highest.Amount {
			highest = b
		}
	}
	return highest, nil
}

// SetWinningBid marks the winning bid and records the winner on the auction.
func (r *MemoryRepo) SetWinningBid(auctionID, bidID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("set winning bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	bids := r.bids[auctionID]
	winner := -1
	for i := range bids {
		if bids[i].BidID == bidID {
			winner = i
			break
		}
	}
	// Confirm the bid exists before touching any flags so a bad bidID
	// leaves the stored state untouched.
	if winner < 0 {
		return fmt.Errorf("set winning bid for auction %s: bid %s: %w", auctionID, bidID, auctionerrors.ErrNoBids)
	}

	for i := range bids {
		bids[i].IsWinning = i == winner
	}
	auction.WinnerID = bids[winner].BidderID
	r.auctions[auctionID] = auction
	return nil
}

// InsertNotification stores a notification record.
func (r *MemoryRepo) InsertNotification(n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[n.NotificationID] = n
	return nil
}

// GetNotificationsByRecipient returns a user's notifications, newest first.
func (r *MemoryRepo) GetNotificationsByRecipient(recipientID string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkNotificationRead flips the read flag on a notification.
func (r *MemoryRepo) MarkNotificationRead(notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[notificationID]
	if !ok {
		return fmt.Errorf("mark notification %s read: %w", notificationID, auctionerrors.ErrNotificationNotFound)
	}
	n.Read = true
	r.notifications[notificationID] = n
	return nil
}
