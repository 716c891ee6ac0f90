package hub

import (
	"time"

	"github.com/uizzuu/ddauction-project-sub000/internal/models"
)

// Wire event type tags for the per-auction channel.
const (
	EventBidList      = "BID_LIST"
	EventClosed       = "CLOSED"
	EventNotification = "NOTIFICATION"
	EventError        = "ERROR"
)

// BidView is the wire shape of one bid inside a broadcast list.
type BidView struct {
	BidID     string    `json:"bid_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// BidListEvent carries the full current bid list, highest first. It is
// always complete state, never a diff, so a dropped event self-corrects on
// the next broadcast.
type BidListEvent struct {
	Type      string    `json:"type"`
	AuctionID string    `json:"auction_id"`
	Bids      []BidView `json:"bids"`
}

// ClosedEvent is the terminal event for an auction. WinnerID and
// FinalAmount are null when the auction expired without bids.
type ClosedEvent struct {
	Type        string  `json:"type"`
	AuctionID   string  `json:"auction_id"`
	WinnerID    *string `json:"winner_id"`
	FinalAmount *int64  `json:"final_amount"`
}

// NotificationEvent delivers a persisted notification to a connected user.
type NotificationEvent struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// ErrorEvent answers a rejected bid-submit frame on the submitting
// connection only.
type ErrorEvent struct {
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	MinRequired *int64 `json:"min_required,omitempty"`
}

// BidViews converts stored bids into their wire shape, preserving order.
func BidViews(bids []models.Bid) []BidView {
	views := make([]BidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, BidView{
			BidID:     b.BidID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			CreatedAt: b.CreatedAt,
		})
	}
	return views
}
