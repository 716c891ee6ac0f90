package auctionerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrNoBids               = errors.New("no bids found for auction")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Business logic errors
var (
	ErrInvalidBid       = errors.New("invalid bid")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrSelfBidForbidden = errors.New("seller may not bid on own auction")
	ErrAuctionClosed    = errors.New("auction is closed for bidding")
	ErrBusy             = errors.New("auction is busy")
)

// BidTooLowError carries the minimum acceptable amount so a caller can
// retry without another round trip to discover the current price.
type BidTooLowError struct {
	MinRequired int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low: minimum acceptable bid is %d", e.MinRequired)
}

// Unwrap makes errors.Is(err, ErrBidTooLow) hold for typed instances.
func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// MinRequired extracts the minimum acceptable amount from a bid-too-low
// error chain. ok is false when err carries no such amount.
func MinRequired(err error) (int64, bool) {
	var tooLow *BidTooLowError
	if errors.As(err, &tooLow) {
		return tooLow.MinRequired, true
	}
	return 0, false
}
