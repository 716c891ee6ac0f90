package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	model "github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/services/auction/helpers"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

type LedgerServiceInterface interface {
	PlaceBid(auctionID, bidderID string, amount int64) (model.Bid, error)
	ListBids(auctionID string) ([]model.Bid, error)
	CurrentPrice(auctionID string) (int64, error)
}

type RegistryServiceInterface interface {
	Create(sellerID, title string, startingPrice int64, deadline time.Time) (model.Auction, error)
	Get(auctionID string) (model.Auction, error)
}

type NotificationServiceInterface interface {
	ListForRecipient(recipientID string) ([]model.Notification, error)
	MarkRead(notificationID string) error
}

type AuctionHandler struct {
	ledger        LedgerServiceInterface
	registry      RegistryServiceInterface
	notifications NotificationServiceInterface
}

func NewAuctionHandler(ledger LedgerServiceInterface, registry RegistryServiceInterface, notifications NotificationServiceInterface) *AuctionHandler {
	return &AuctionHandler{ledger: ledger, registry: registry, notifications: notifications}
}

func bidResponse(bid model.Bid) helpers.BidResponse {
	return helpers.BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		IsWinning: bid.IsWinning,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PlaceBidHandler handles POST /bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.ledger.PlaceBid(req.AuctionID, req.BidderID, req.Amount)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorFields(kind, err))
		if kind == helpers.KindInternal {
			utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
				"auction_id": req.AuctionID,
				"bidder_id":  req.BidderID,
				"error":      err.Error(),
			})
		} else {
			// Expected rejections are part of normal operation.
			utils.Info("PlaceBidHandler: bid rejected", map[string]any{
				"auction_id": req.AuctionID,
				"bidder_id":  req.BidderID,
				"kind":       kind,
			})
		}
		return
	}

	utils.JSONResponse(c, http.StatusCreated, bidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
	})
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.registry.Create(req.SellerID, req.Title, req.StartingPrice, req.Deadline)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorFields(kind, err))
		utils.Warn("CreateAuctionHandler: failed to create auction", map[string]any{
			"seller_id": req.SellerID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, h.auctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
		"deadline":   auction.Deadline,
	})
}

func (h *AuctionHandler) auctionResponse(auction model.Auction) helpers.AuctionResponse {
	resp := helpers.AuctionResponse{
		AuctionID:     auction.AuctionID,
		SellerID:      auction.SellerID,
		Title:         auction.Title,
		Status:        string(auction.Status),
		StartingPrice: auction.StartingPrice,
		CurrentPrice:  auction.StartingPrice,
		Deadline:      auction.Deadline.UTC().Format(time.RFC3339),
		WinnerID:      auction.WinnerID,
		CreatedAt:     auction.CreatedAt.UTC().Format(time.RFC3339),
	}
	if price, err := h.ledger.CurrentPrice(auction.AuctionID); err == nil {
		resp.CurrentPrice = price
	}
	return resp
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.registry.Get(auctionID)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorFields(kind, err))
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, h.auctionResponse(auction), "auction retrieved successfully")
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.ledger.ListBids(auctionID)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorFields(kind, err))
		utils.Warn("GetBidsByAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, bidResponse(bid))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetNotificationsHandler handles GET /users/:user_id/notifications
func (h *AuctionHandler) GetNotificationsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	notifications, err := h.notifications.ListForRecipient(userID)
	if err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorFields(kind, err))
		utils.Warn("GetNotificationsHandler: error retrieving notifications", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notifications, "notifications retrieved successfully")
}

// MarkNotificationReadHandler handles PUT /notifications/:notification_id/read
func (h *AuctionHandler) MarkNotificationReadHandler(c *gin.Context) {
	notificationID := c.Param("notification_id")
	if err := h.notifications.MarkRead(notificationID); err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, helpers.ErrorFields(kind, err))
		utils.Warn("MarkNotificationReadHandler: error marking notification read", map[string]any{
			"notification_id": notificationID,
			"error":           err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "notification marked read")
}
