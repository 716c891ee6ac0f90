package models

import "time"

// AuctionStatus is the lifecycle state of an auction.
// Transitions are one-way: ACTIVE -> CLOSED or ACTIVE -> EXPIRED_NO_BIDS.
type AuctionStatus string

const (
	AuctionActive        AuctionStatus = "ACTIVE"
	AuctionClosed        AuctionStatus = "CLOSED"
	AuctionExpiredNoBids AuctionStatus = "EXPIRED_NO_BIDS"
)

// Terminal reports whether the status is an end state.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionClosed || s == AuctionExpiredNoBids
}

// NotificationCategory classifies a notification for its recipient.
type NotificationCategory string

const (
	NotifyOutbid        NotificationCategory = "OUTBID"
	NotifyNewBidSeller  NotificationCategory = "NEW_BID_SELLER"
	NotifyWin           NotificationCategory = "WIN"
	NotifyAuctionClosed NotificationCategory = "AUCTION_CLOSED"
)

// Auction represents a time-boxed sale of one item.
type Auction struct {
	AuctionID     string        `json:"auction_id"`
	SellerID      string        `json:"seller_id"`
	Title         string        `json:"title"`
	Status        AuctionStatus `json:"status"`
	StartingPrice int64         `json:"starting_price"`
	Deadline      time.Time     `json:"deadline"`
	WinnerID      string        `json:"winner_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Bid represents a user's bid on an auction. Amounts are integer currency
// units; within one auction accepted amounts strictly increase over time.
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is a fire-and-forget record addressed to one user. Only the
// read flag is ever mutated after creation.
type Notification struct {
	NotificationID string               `json:"notification_id"`
	RecipientID    string               `json:"recipient_id"`
	Category       NotificationCategory `json:"category"`
	Message        string               `json:"message"`
	Read           bool                 `json:"read"`
	CreatedAt      time.Time            `json:"created_at"`
}
