package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/internal/metrics"
	"github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// Broadcaster receives the updated bid list after each accepted bid. The
// hub satisfies this.
type Broadcaster interface {
	PublishBidList(auctionID string, bids []models.Bid)
}

// Notifier enqueues best-effort user notifications. The dispatcher
// satisfies this.
type Notifier interface {
	Send(recipientID string, category models.NotificationCategory, message string)
}

// Config holds the bidding rules the ledger enforces.
type Config struct {
	// MinIncrement is the smallest amount a bid must exceed the current
	// highest bid by.
	MinIncrement int64
	// BidWaitTimeout bounds the wait for the per-auction serialization
	// slot before PlaceBid fails with ErrBusy.
	BidWaitTimeout time.Duration
}

// Ledger validates and records bids. It is the single authority on whether
// a bid is accepted, and the source of truth for an auction's current
// price, which is always derived from the highest recorded bid rather than
// any cached field.
type Ledger struct {
	store       repository.AuctionStore
	broadcaster Broadcaster
	notifier    Notifier
	metrics     *metrics.Metrics
	cfg         Config
	locks       *auctionLocks

	now func() time.Time
}

// New creates a Ledger. broadcaster and notifier may be nil, in which case
// the corresponding side effects are skipped.
func New(store repository.AuctionStore, broadcaster Broadcaster, notifier Notifier, m *metrics.Metrics, cfg Config) *Ledger {
	return &Ledger{
		store:       store,
		broadcaster: broadcaster,
		notifier:    notifier,
		metrics:     m,
		cfg:         cfg,
		locks:       newAuctionLocks(),
		now:         time.Now,
	}
}

// PlaceBid validates and records a bid. Preconditions are checked in a
// fixed order, each with its own error kind; a failed precondition never
// mutates state. Calls for the same auction serialize; calls for different
// auctions run fully in parallel.
func (l *Ledger) PlaceBid(auctionID, bidderID string, amount int64) (models.Bid, error) {
	start := l.now()
	defer l.metrics.ObservePlaceBid(start)

	if auctionID == "" || bidderID == "" {
		l.metrics.BidRejected("invalid")
		return models.Bid{}, fmt.Errorf("ledger: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		l.metrics.BidRejected("invalid")
		return models.Bid{}, fmt.Errorf("ledger: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	if !l.locks.acquire(auctionID, l.cfg.BidWaitTimeout) {
		l.metrics.BidRejected("busy")
		return models.Bid{}, fmt.Errorf("ledger: auction %s: %w", auctionID, auctionerrors.ErrBusy)
	}
	defer l.locks.release(auctionID)

	auction, err := l.store.GetAuction(auctionID)
	if err != nil {
		l.metrics.BidRejected(lookupRejection(err))
		return models.Bid{}, fmt.Errorf("ledger: %w", err)
	}

	if bidderID == auction.SellerID {
		l.metrics.BidRejected("self_bid")
		return models.Bid{}, fmt.Errorf("ledger: auction %s: %w", auctionID, auctionerrors.ErrSelfBidForbidden)
	}

	if auction.Status != models.AuctionActive || !l.now().Before(auction.Deadline) {
		l.metrics.BidRejected("closed")
		return models.Bid{}, fmt.Errorf("ledger: auction %s: %w", auctionID, auctionerrors.ErrAuctionClosed)
	}

	currentHighest, previous, err := l.currentHighest(auction)
	if err != nil {
		l.metrics.BidRejected("internal")
		return models.Bid{}, fmt.Errorf("ledger: failed to read current price for auction %s: %w", auctionID, err)
	}

	minRequired := currentHighest + l.cfg.MinIncrement
	if amount < minRequired {
		l.metrics.BidRejected("too_low")
		return models.Bid{}, fmt.Errorf("ledger: auction %s: %w",
			auctionID, &auctionerrors.BidTooLowError{MinRequired: minRequired})
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: l.now().UTC(),
	}

	if err := l.store.InsertBid(bid); err != nil {
		// The storage guard can still lose a race when a second service
		// instance shares the database; surface it as a plain rejection.
		if errors.Is(err, auctionerrors.ErrBidTooLow) {
			l.metrics.BidRejected("too_low")
			return models.Bid{}, fmt.Errorf("ledger: auction %s: %w", auctionID, err)
		}
		l.metrics.BidRejected("internal")
		return models.Bid{}, fmt.Errorf("ledger: failed to record bid for auction %s by %s: %w", auctionID, bidderID, err)
	}

	l.metrics.BidAccepted()
	l.afterAccept(auction, bid, previous)

	return bid, nil
}

// currentHighest returns the authoritative current price (starting price
// when no bids exist) and, when present, the previously highest bid.
func (l *Ledger) currentHighest(auction models.Auction) (int64, *models.Bid, error) {
	highest, err := l.store.GetHighestBid(auction.AuctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNoBids) {
			return auction.StartingPrice, nil, nil
		}
		return 0, nil, err
	}
	return highest.Amount, &highest, nil
}

// afterAccept fans the accepted bid out: full list broadcast plus seller
// and outbid notifications. Failures here never reach the bidder.
func (l *Ledger) afterAccept(auction models.Auction, bid models.Bid, previous *models.Bid) {
	if l.broadcaster != nil {
		bids, err := l.store.GetBidsByAuction(auction.AuctionID)
		if err != nil {
			utils.Error("ledger: failed to load bid list for broadcast", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
		} else {
			l.broadcaster.PublishBidList(auction.AuctionID, bids)
		}
	}

	if l.notifier == nil {
		return
	}
	l.notifier.Send(auction.SellerID, models.NotifyNewBidSeller,
		fmt.Sprintf("New bid of %d on your auction %q", bid.Amount, auction.Title))
	if previous != nil && previous.BidderID != bid.BidderID {
		l.notifier.Send(previous.BidderID, models.NotifyOutbid,
			fmt.Sprintf("You have been outbid on %q; the highest bid is now %d", auction.Title, bid.Amount))
	}
}

// lookupRejection picks the rejection counter label for a failed auction
// lookup. Only a genuinely missing auction counts as not_found; store
// failures are infrastructure errors.
func lookupRejection(err error) string {
	if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
		return "not_found"
	}
	return "internal"
}

// ListBids returns all bids for an auction, highest amount first.
func (l *Ledger) ListBids(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("ledger: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	bids, err := l.store.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// CurrentPrice returns the auction's authoritative current price: the
// highest bid amount, or the starting price when no bids exist.
func (l *Ledger) CurrentPrice(auctionID string) (int64, error) {
	auction, err := l.store.GetAuction(auctionID)
	if err != nil {
		return 0, fmt.Errorf("ledger: %w", err)
	}
	price, _, err := l.currentHighest(auction)
	if err != nil {
		return 0, fmt.Errorf("ledger: failed to read current price for auction %s: %w", auctionID, err)
	}
	return price, nil
}
