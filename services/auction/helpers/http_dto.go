package helpers

import "time"

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	BidderID  string `json:"bidder_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
	IsWinning bool   `json:"is_winning"`
	CreatedAt string `json:"created_at"`
}

type CreateAuctionRequest struct {
	SellerID      string    `json:"seller_id" binding:"required"`
	Title         string    `json:"title" binding:"required"`
	StartingPrice int64     `json:"starting_price" binding:"gte=0"`
	Deadline      time.Time `json:"deadline" binding:"required"`
}

type AuctionResponse struct {
	AuctionID     string `json:"auction_id"`
	SellerID      string `json:"seller_id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	StartingPrice int64  `json:"starting_price"`
	CurrentPrice  int64  `json:"current_price"`
	Deadline      string `json:"deadline"`
	WinnerID      string `json:"winner_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}
