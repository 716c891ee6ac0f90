package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/internal/hub"
	model "github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/services/auction/helpers"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// BidPlacer is the slice of the ledger the websocket path needs.
type BidPlacer interface {
	PlaceBid(auctionID, bidderID string, amount int64) (model.Bid, error)
}

// AuctionReader is the slice of the registry the websocket path needs.
type AuctionReader interface {
	Get(auctionID string) (model.Auction, error)
}

// bidSubmitFrame is the inbound bid-submit message on the live channel.
type bidSubmitFrame struct {
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
}

// WSHandler upgrades client connections to the per-auction live channel:
// subscribe on connect, accept bid-submit frames, deliver bid list and
// terminal events via the hub.
type WSHandler struct {
	hub          *hub.Hub
	registry     AuctionReader
	placer       BidPlacer
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a websocket handler.
func NewWSHandler(h *hub.Hub, registry AuctionReader, placer BidPlacer, writeTimeout time.Duration) *WSHandler {
	return &WSHandler{
		hub:          h,
		registry:     registry,
		placer:       placer,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect cross-origin from the storefront.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle serves GET /ws/auctions/:auction_id. The optional user_id query
// parameter additionally subscribes the connection to that user's
// notifications.
func (h *WSHandler) Handle(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID := c.Query("user_id")

	if _, err := h.registry.Get(auctionID); err != nil {
		status, kind, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message, helpers.ErrorFields(kind, err))
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		utils.Warn("ws: upgrade failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	conn := hub.NewWSConn(raw, h.writeTimeout)
	if err := h.hub.Subscribe(conn, auctionID); err != nil {
		utils.Warn("ws: subscribe failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		_ = raw.Close()
		return
	}
	if userID != "" {
		h.hub.SubscribeUser(conn, userID)
	}

	h.readLoop(raw, conn, auctionID)
}

// readLoop consumes bid-submit frames until the client disconnects, then
// removes the connection from the hub.
func (h *WSHandler) readLoop(raw *websocket.Conn, conn hub.Conn, auctionID string) {
	defer func() {
		h.hub.Unsubscribe(conn)
		_ = raw.Close()
	}()

	for {
		var frame bidSubmitFrame
		if err := raw.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Warn("ws: connection closed unexpectedly", map[string]any{
					"auction_id": auctionID,
					"error":      err.Error(),
				})
			}
			return
		}

		// The channel is bound to one auction; a mismatched frame is a
		// client bug, answered without touching the ledger.
		if frame.AuctionID != "" && frame.AuctionID != auctionID {
			h.sendError(conn, helpers.KindInvalid, "frame auction_id does not match channel", nil)
			continue
		}

		if _, err := h.placer.PlaceBid(auctionID, frame.BidderID, frame.Amount); err != nil {
			_, kind, message := helpers.MapErrorToHTTP(err)
			var minRequired *int64
			if min, ok := auctionerrors.MinRequired(err); ok {
				minRequired = &min
			}
			h.sendError(conn, kind, message, minRequired)
		}
		// On success the hub broadcast delivers the updated list to every
		// subscriber including this connection.
	}
}

func (h *WSHandler) sendError(conn hub.Conn, kind, message string, minRequired *int64) {
	event := hub.ErrorEvent{Type: hub.EventError, Kind: kind, Message: message, MinRequired: minRequired}
	if err := conn.WriteJSON(event); err != nil {
		h.hub.Unsubscribe(conn)
		_ = conn.Close()
	}
}
