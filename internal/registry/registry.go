package registry

import (
	"fmt"
	"time"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// Registry owns auction metadata and the single one-way status transition.
// The ledger reads it for validation; the scheduler drives it for expiry.
type Registry struct {
	store repository.AuctionStore
}

// New creates a Registry backed by the given store.
func New(store repository.AuctionStore) *Registry {
	return &Registry{store: store}
}

// Create registers a new ACTIVE auction. Seller, starting price and
// deadline come from the catalog at auction creation time; the deadline is
// immutable afterwards.
func (r *Registry) Create(sellerID, title string, startingPrice int64, deadline time.Time) (models.Auction, error) {
	if sellerID == "" {
		return models.Auction{}, fmt.Errorf("registry: %w - missing seller ID", auctionerrors.ErrInvalidBid)
	}
	if startingPrice < 0 {
		return models.Auction{}, fmt.Errorf("registry: %w - negative starting price", auctionerrors.ErrInvalidBid)
	}
	if !deadline.After(time.Now()) {
		return models.Auction{}, fmt.Errorf("registry: %w - deadline already passed", auctionerrors.ErrInvalidBid)
	}

	auction := models.Auction{
		AuctionID:     utils.GenerateID(),
		SellerID:      sellerID,
		Title:         title,
		Status:        models.AuctionActive,
		StartingPrice: startingPrice,
		Deadline:      deadline.UTC(),
		CreatedAt:     time.Now().UTC(),
	}

	if err := r.store.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("registry: failed to create auction: %w", err)
	}
	return auction, nil
}

// Get returns auction metadata by id.
func (r *Registry) Get(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("registry: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	auction, err := r.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("registry: %w", err)
	}
	return auction, nil
}

// ListExpired returns ACTIVE auctions whose deadline is at or before now.
func (r *Registry) ListExpired(now time.Time) ([]models.Auction, error) {
	auctions, err := r.store.ListExpiredActiveAuctions(now)
	if err != nil {
		return nil, fmt.Errorf("registry: failed to list expired auctions: %w", err)
	}
	return auctions, nil
}

// TryClose flips the auction to the given terminal status only if it is
// still ACTIVE. changed=false means another caller won the transition; that
// is not an error.
func (r *Registry) TryClose(auctionID string, to models.AuctionStatus) (models.Auction, bool, error) {
	auction, changed, err := r.store.TryCloseAuction(auctionID, to)
	if err != nil {
		return models.Auction{}, false, fmt.Errorf("registry: failed to close auction %s: %w", auctionID, err)
	}
	return auction, changed, nil
}
